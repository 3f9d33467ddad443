package elo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/elo-ladder-bot/internal/domain"
	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
	"github.com/park285/elo-ladder-bot/internal/metrics"
)

const DefaultMaxUpdateRetries = 5

// MatchOutcome is the applied result of one game: both entries after the
// update and the delta each one received.
type MatchOutcome struct {
	GameType *domain.GameType
	Outcome  coreelo.Outcome
	Team1    *domain.RatingEntry
	Team2    *domain.RatingEntry
	Delta1   float64
	Delta2   float64
}

type EngineOptions struct {
	KFactor       float64
	InitialRating float64
	MaxRetries    int
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Engine applies match results to rating entries.
type Engine struct {
	repo       Repository
	calc       coreelo.Calculator
	initial    float64
	maxRetries int
	logger     *zap.Logger
	metrics    *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

func NewEngine(repo Repository, opts EngineOptions) *Engine {
	if opts.InitialRating <= 0 {
		opts.InitialRating = coreelo.DefaultInitialRating
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxUpdateRetries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		repo:       repo,
		calc:       coreelo.NewCalculator(opts.KFactor),
		initial:    opts.InitialRating,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		sleep:      sleepWithContext,
	}
}

func (e *Engine) InitialRating() float64 { return e.initial }

// Record applies a validated result. Team 1 is always the reported winner
// for a win. Conflicting concurrent writes are retried with backoff; once
// the budget is spent the error wraps ErrConflictRetriesExhausted.
func (e *Engine) Record(ctx context.Context, gt *domain.GameType, req *coreelo.Request, outcome coreelo.Outcome) (*MatchOutcome, error) {
	if outcome == coreelo.OutcomeUnrecognized {
		return nil, fmt.Errorf("record match: outcome not recognized")
	}
	part := domain.Partition{TeamID: gt.TeamID, GameTypeID: gt.ID, TeamSize: req.TeamSize()}
	k1 := domain.EntryKey{Partition: part, MemberKey: req.Team1Key()}
	k2 := domain.EntryKey{Partition: part, MemberKey: req.Team2Key()}

	res := &MatchOutcome{GameType: gt, Outcome: outcome}
	apply := func(t1, t2 *domain.RatingEntry) error {
		d1, d2 := e.calc.Apply(t1.Rating, t2.Rating, outcome)
		t1.Rating += d1
		t2.Rating += d2
		t1.LastRatingChange = d1
		t2.LastRatingChange = d2
		res.Delta1, res.Delta2 = d1, d2
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		t1, t2, err := e.repo.UpdatePair(ctx, k1, k2, e.initial, apply)
		if err == nil {
			res.Team1, res.Team2 = t1, t2
			e.metrics.Match(outcome.String(), part.TeamSize)
			e.logger.Info("elo_match_recorded",
				zap.String("team_id", gt.TeamID),
				zap.String("game", gt.Name),
				zap.String("outcome", outcome.String()),
				zap.String("team1", t1.MemberKey),
				zap.String("team2", t2.MemberKey),
				zap.Float64("delta1", res.Delta1),
				zap.Float64("delta2", res.Delta2),
				zap.Int("attempt", attempt),
			)
			return res, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
		e.metrics.Conflict()
		e.logger.Warn("elo_update_conflict",
			zap.String("game", gt.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == e.maxRetries {
			break
		}
		if err := e.sleep(ctx, backoffDuration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConflictRetriesExhausted, e.maxRetries, lastErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 10 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 10ms, 20ms ...
}
