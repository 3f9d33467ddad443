package elopresenter

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/park285/elo-ladder-bot/internal/util"
)

type recordingSender struct {
	texts  []string
	images []string
	err    error
}

func (s *recordingSender) SendText(_ context.Context, _ string, msg string) error {
	s.texts = append(s.texts, msg)
	return s.err
}

func (s *recordingSender) SendImage(_ context.Context, _ string, img string) error {
	s.images = append(s.images, img)
	return s.err
}

func TestFlatten(t *testing.T) {
	r := Reply{
		Text: "Title",
		Attachments: []Attachment{
			{Text: "1. @a (1212)", Footer: "singles"},
			{Text: "  "},
			{Text: "1. @a-@b (1200)"},
		},
	}
	want := "Title\n\n1. @a (1212)\nsingles\n\n1. @a-@b (1200)"
	if got := Flatten(r); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestPresenterDeliversTextAndImage(t *testing.T) {
	out := &recordingSender{}
	p := NewPresenter(out)
	err := p.Deliver(context.Background(), "room", Reply{Text: "hi", Image: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(out.texts) != 1 || out.texts[0] != "hi" {
		t.Fatalf("texts = %v", out.texts)
	}
	if len(out.images) != 1 || out.images[0] != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("images = %v", out.images)
	}
}

func TestPresenterFoldsLongReplies(t *testing.T) {
	out := &recordingSender{}
	rows := strings.Repeat("row\n", 12)
	if err := NewPresenter(out).Deliver(context.Background(), "room", Reply{Text: "Board", Attachments: []Attachment{{Text: rows}}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.HasPrefix(out.texts[0], "Board"+util.KakaoZeroWidthSpace) {
		t.Fatalf("long reply not folded")
	}
}

func TestPresenterStopsOnSendError(t *testing.T) {
	out := &recordingSender{err: errors.New("down")}
	err := NewPresenter(out).Deliver(context.Background(), "room", Reply{Text: "hi", Image: []byte{1}})
	if err == nil || len(out.images) != 0 {
		t.Fatalf("err = %v images = %d", err, len(out.images))
	}
}
