package elobuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	"github.com/park285/elo-ladder-bot/internal/config"
	"github.com/park285/elo-ladder-bot/internal/metrics"
	"github.com/park285/elo-ladder-bot/internal/msgcat"
	svcelo "github.com/park285/elo-ladder-bot/internal/service/elo"
)

// Store names reported by OpenRepository.
const (
	StoreSQL    = "sql"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Deps struct {
	Service *svcelo.Service
	Repo    svcelo.Repository
	Store   string
	Catalog *msgcat.Catalog
	Metrics *metrics.Metrics
}

// Formatter returns a reply formatter for the given mention style. Chat
// rooms get the leaderboard chart as well.
func (d *Deps) Formatter(cfg *config.AppConfig, style elopresenter.TagStyle) *elopresenter.Formatter {
	var opts []elopresenter.Option
	if style == elopresenter.TagPlain {
		opts = append(opts, elopresenter.WithChart(elopresenter.NewChartRenderer(0)))
	}
	return elopresenter.NewFormatter(d.Catalog, cfg.BotPrefix, style, opts...)
}

func (d *Deps) Close() error {
	if d == nil || d.Repo == nil {
		return nil
	}
	return d.Repo.Close()
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, store, err := OpenRepository(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	logger.Info("elo_store_opened", zap.String("store", store))
	if store == StoreMemory {
		logger.Warn("elo_store_memory", zap.String("hint", "ratings are lost on restart; set DATABASE_URL or REDIS_URL"))
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svc := svcelo.NewService(repo, svcelo.Options{
		Engine: svcelo.EngineOptions{
			KFactor:       cfg.KFactor,
			InitialRating: cfg.InitialRating,
			MaxRetries:    cfg.MaxUpdateRetries,
		},
		ReservedIdentities: cfg.ReservedIDs,
		LeaderboardSize:    cfg.LeaderboardSize,
		Logger:             logger,
		Metrics:            m,
	})

	return &Deps{Service: svc, Repo: repo, Store: store, Catalog: cat, Metrics: m}, nil
}

// OpenRepository picks the store: SQL when DATABASE_URL is set, then Redis,
// then memory. migrate applies pending SQL migrations first.
func OpenRepository(ctx context.Context, cfg *config.AppConfig, migrate bool) (svcelo.Repository, string, error) {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		db, err := svcelo.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		if migrate {
			if err := svcelo.Migrate(db, false); err != nil {
				_ = db.Close()
				return nil, "", fmt.Errorf("migrate database: %w", err)
			}
		}
		return svcelo.NewSQLRepository(db), StoreSQL, nil
	case strings.TrimSpace(cfg.RedisURL) != "":
		rdb, err := svcelo.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, "", fmt.Errorf("open redis: %w", err)
		}
		return svcelo.NewRedisRepository(rdb), StoreRedis, nil
	default:
		return svcelo.NewMemoryRepository(), StoreMemory, nil
	}
}
