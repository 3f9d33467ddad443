package elopresenter

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/park285/elo-ladder-bot/internal/util"
)

// foldLines is the line count above which chat replies are folded behind
// KakaoTalk's "see more".
const foldLines = 8

// Sender is the chat egress used for Iris rooms.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Presenter delivers rendered replies to a chat room. Attachments are
// flattened into the message body since chat rooms have no attachment UI.
type Presenter struct {
	out Sender
}

func NewPresenter(out Sender) *Presenter {
	return &Presenter{out: out}
}

func (p *Presenter) Deliver(ctx context.Context, room string, r Reply) error {
	if p == nil || p.out == nil {
		return nil
	}
	if text := Flatten(r); text != "" {
		if strings.Count(text, "\n") >= foldLines {
			text = util.ApplySeeMoreWithHeader(text, r.Text, "")
		}
		if err := p.out.SendText(ctx, room, text); err != nil {
			return err
		}
	}
	if len(r.Image) > 0 {
		if err := p.out.SendImage(ctx, room, base64.StdEncoding.EncodeToString(r.Image)); err != nil {
			return err
		}
	}
	return nil
}

// Flatten joins the reply text and attachments into one plain message.
func Flatten(r Reply) string {
	parts := make([]string, 0, 1+len(r.Attachments))
	if t := strings.TrimSpace(r.Text); t != "" {
		parts = append(parts, t)
	}
	for _, a := range r.Attachments {
		block := strings.TrimSpace(a.Text)
		if f := strings.TrimSpace(a.Footer); f != "" {
			block += "\n" + f
		}
		if block = strings.TrimSpace(block); block != "" {
			parts = append(parts, block)
		}
	}
	return strings.Join(parts, "\n\n")
}
