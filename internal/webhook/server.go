package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	"github.com/park285/elo-ladder-bot/internal/metrics"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

const (
	CommandPath = "/slack/elo"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// Service handles one slash command invocation.
type Service interface {
	Handle(ctx context.Context, inv elodto.Invocation) elodto.Result
}

type Options struct {
	SigningSecret string
	SkipSigning   bool
	Timeout       time.Duration
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Server serves the Slack-style slash command endpoint.
type Server struct {
	svc     Service
	format  *elopresenter.Formatter
	opts    Options
	logger  *zap.Logger
	metrics fasthttp.RequestHandler
	srv     *fasthttp.Server
}

func New(svc Service, format *elopresenter.Formatter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	s := &Server{
		svc:    svc,
		format: format,
		opts:   opts,
		logger: opts.Logger,
	}
	if opts.Metrics != nil {
		s.metrics = fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}),
		)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "elo-ladder-bot",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: opts.Timeout + 5*time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// Handler routes a request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case CommandPath:
		if !ctx.IsPost() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		s.command(ctx)
	case HealthPath:
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("ok")
	case MetricsPath:
		if s.metrics == nil {
			ctx.NotFound()
			return
		}
		s.metrics(ctx)
	default:
		ctx.NotFound()
	}
}

type attachmentJSON struct {
	Text   string `json:"text"`
	Footer string `json:"footer,omitempty"`
}

type replyJSON struct {
	ResponseType string           `json:"response_type"`
	Text         string           `json:"text"`
	Attachments  []attachmentJSON `json:"attachments,omitempty"`
}

type errorJSON struct {
	Message string `json:"message"`
}

func (s *Server) command(ctx *fasthttp.RequestCtx) {
	if !s.opts.SkipSigning {
		if err := Verify(s.opts.SigningSecret, requestHeader(&ctx.Request.Header), ctx.PostBody()); err != nil {
			s.logger.Warn("webhook_signature_rejected", zap.Error(err))
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
	}

	args := ctx.PostArgs()
	inv := elodto.Invocation{
		TeamID: string(args.Peek("team_id")),
		UserID: string(args.Peek("user_id")),
		Text:   string(args.Peek("text")),
	}
	if inv.TeamID == "" {
		s.writeJSON(ctx, fasthttp.StatusBadRequest, errorJSON{Message: "missing parameter team_id"})
		return
	}
	if inv.UserID == "" {
		s.writeJSON(ctx, fasthttp.StatusBadRequest, errorJSON{Message: "missing parameter user_id"})
		return
	}

	hctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	reply := s.format.Format(s.svc.Handle(hctx, inv))

	out := replyJSON{ResponseType: string(reply.Visibility), Text: reply.Text}
	for _, a := range reply.Attachments {
		out.Attachments = append(out.Attachments, attachmentJSON{Text: a.Text, Footer: a.Footer})
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("webhook_encode_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

// Serve blocks until ln is closed or Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("webhook_listening", zap.String("addr", ln.Addr().String()))
	return s.srv.Serve(ln)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("webhook_shutdown_timeout")
	}
	return err
}
