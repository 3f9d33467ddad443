package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	"github.com/park285/elo-ladder-bot/internal/adapter/irisbot"
	appcfg "github.com/park285/elo-ladder-bot/internal/config"
	"github.com/park285/elo-ladder-bot/internal/elobuilder"
	"github.com/park285/elo-ladder-bot/internal/irisfast"
	"github.com/park285/elo-ladder-bot/internal/obslog"
	"github.com/park285/elo-ladder-bot/internal/webhook"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	deps, err := elobuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("elo_init_failed", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ws *irisfast.WebSocket
	if cfg.IrisEnabled() {
		ws = startIris(ctx, cfg, deps, logger)
	}

	var hook *webhook.Server
	if cfg.WebhookEnabled() {
		hook = webhook.New(deps.Service, deps.Formatter(cfg, elopresenter.TagSlack), webhook.Options{
			SigningSecret: cfg.SlackSigningSecret,
			SkipSigning:   cfg.SkipSlackSigning,
			Metrics:       deps.Metrics,
			Logger:        logger,
		})
		go func() {
			if err := hook.ListenAndServe(cfg.WebhookAddr); err != nil {
				logger.Error("webhook_stopped", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("elo_bot_shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if hook != nil {
		if err := hook.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("webhook_shutdown_failed", zap.Error(err))
		}
	}
	if ws != nil {
		_ = ws.Close(shutdownCtx)
	}
}

func irisHeaders(cfg *appcfg.AppConfig) irisfast.HeaderProvider {
	return func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}
}

func startIris(ctx context.Context, cfg *appcfg.AppConfig, deps *elobuilder.Deps, logger *zap.Logger) *irisfast.WebSocket {
	headers := irisHeaders(cfg)
	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithLogger(logger),
	)

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.SetLogger(logger)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		if state == irisfast.WSStateFailed {
			logger.Error("iris_ws_state", zap.Stringer("state", state))
			return
		}
		logger.Info("iris_ws_state", zap.Stringer("state", state))
	})

	egress := irisfast.NewEgress(irisfast.TransportAuto, false, client, ws, logger)
	handler := irisbot.New(deps.Service, deps.Formatter(cfg, elopresenter.TagPlain), elopresenter.NewPresenter(egress), irisbot.Options{
		Prefix:       cfg.BotPrefix,
		AllowedRooms: cfg.AllowedRooms,
		Logger:       logger,
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		// keep the read loop free
		go handler.HandleMessage(ctx, msg)
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ws.Connect(cctx); err != nil {
		// a failed first dial is retried by the reconnect loop
		if ws.State() == irisfast.WSStateFailed {
			logger.Fatal("iris_ws_connect_failed", zap.Error(err))
		}
		logger.Warn("iris_ws_connect_retrying", zap.Error(err))
	}
	return ws
}
