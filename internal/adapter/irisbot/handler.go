package irisbot

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	"github.com/park285/elo-ladder-bot/internal/irisfast"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// Service handles one chat invocation.
type Service interface {
	Handle(ctx context.Context, inv elodto.Invocation) elodto.Result
}

// Deliverer sends a rendered reply to a room.
type Deliverer interface {
	Deliver(ctx context.Context, room string, r elopresenter.Reply) error
}

type Options struct {
	Prefix       string
	AllowedRooms []string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Handler turns Iris chat messages into ladder invocations. The chat room is
// the team scope and the sender's display name is the invoker identity, so
// "@Name" mentions typed in KakaoTalk line up with the witness check.
type Handler struct {
	svc     Service
	format  *elopresenter.Formatter
	out     Deliverer
	prefix  string
	rooms   []string
	timeout time.Duration
	logger  *zap.Logger
}

func New(svc Service, format *elopresenter.Formatter, out Deliverer, opts Options) *Handler {
	h := &Handler{
		svc:     svc,
		format:  format,
		out:     out,
		prefix:  strings.TrimSpace(opts.Prefix),
		rooms:   opts.AllowedRooms,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if h.timeout <= 0 {
		h.timeout = 15 * time.Second
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Invocation extracts the command from msg. ok is false for messages the bot
// should ignore.
func (h *Handler) Invocation(msg *irisfast.Message) (inv elodto.Invocation, ok bool) {
	if msg == nil {
		return inv, false
	}
	text := strings.TrimSpace(msg.Msg)
	if text == "" || !strings.HasPrefix(text, h.prefix) {
		return inv, false
	}
	rest := text[len(h.prefix):]
	// "/elo" must not match "/elobot"
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return inv, false
	}
	if len(h.rooms) > 0 && !slices.Contains(h.rooms, msg.Room) {
		h.logger.Debug("iris_room_ignored", zap.String("room", msg.Room))
		return inv, false
	}
	return elodto.Invocation{
		TeamID: strings.TrimSpace(msg.Room),
		UserID: invokerID(msg),
		Text:   strings.TrimSpace(rest),
	}, true
}

// HandleMessage runs the command in msg and delivers the reply to its room.
func (h *Handler) HandleMessage(ctx context.Context, msg *irisfast.Message) {
	inv, ok := h.Invocation(msg)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	reply := h.format.Format(h.svc.Handle(ctx, inv))
	if err := h.out.Deliver(ctx, msg.Room, reply); err != nil {
		h.logger.Error("iris_reply_failed", zap.String("room", msg.Room), zap.Error(err))
	}
}

// invokerID prefers the display name and drops whitespace so it can be
// written as a single "@Name" mention. The raw user id is the fallback.
func invokerID(msg *irisfast.Message) string {
	if name := strings.Join(strings.Fields(msg.SenderName()), ""); name != "" {
		return name
	}
	return strings.TrimSpace(msg.UserID())
}
