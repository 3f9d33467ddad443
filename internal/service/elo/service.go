package elo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
	"github.com/park285/elo-ladder-bot/internal/metrics"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// FailureMessage is shown for every operational failure.
const FailureMessage = "Something went wrong while handling that command. Please try again later."

// DoubleReplyError means a handler tried to reply twice to one invocation.
type DoubleReplyError struct {
	First  string
	Second string
}

func (e *DoubleReplyError) Error() string {
	return fmt.Sprintf("second reply %q after %q for one invocation", e.Second, e.First)
}

// replySlot holds the single reply of an invocation.
type replySlot struct {
	res elodto.Result
}

func (r *replySlot) Set(res elodto.Result) error {
	if r.res != nil {
		return &DoubleReplyError{First: r.res.Kind(), Second: res.Kind()}
	}
	r.res = res
	return nil
}

type Options struct {
	Engine             EngineOptions
	ReservedIdentities []string
	LeaderboardSize    int
	Logger             *zap.Logger
	Metrics            *metrics.Metrics
}

// Service turns one command text into exactly one reply.
type Service struct {
	repo        Repository
	validator   *coreelo.Validator
	engine      *Engine
	leaderboard *Leaderboards
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewService(repo Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = logger
	}
	if opts.Engine.Metrics == nil {
		opts.Engine.Metrics = opts.Metrics
	}
	return &Service{
		repo:        repo,
		validator:   coreelo.NewValidator(repo, opts.ReservedIdentities),
		engine:      NewEngine(repo, opts.Engine),
		leaderboard: NewLeaderboards(repo, opts.LeaderboardSize),
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

func (s *Service) Repository() Repository { return s.repo }

// Handle never returns an error: usage problems become Help, rule violations
// become Rejected and anything else becomes Failure after being logged.
func (s *Service) Handle(ctx context.Context, inv elodto.Invocation) elodto.Result {
	start := time.Now()
	cmd := coreelo.ParseCommand(inv.Text)

	slot := &replySlot{}
	err := s.dispatch(ctx, inv, cmd, slot)
	if err == nil && slot.res == nil {
		err = errors.New("handler produced no reply")
	}
	if err != nil {
		s.metrics.Failure()
		s.logger.Error("elo_command_failed",
			zap.String("team_id", inv.TeamID),
			zap.String("user_id", inv.UserID),
			zap.String("text", inv.Text),
			zap.Error(err),
		)
		return elodto.Failure{Message: FailureMessage}
	}
	s.metrics.Command(slot.res.Kind(), time.Since(start))
	return slot.res
}

func (s *Service) dispatch(ctx context.Context, inv elodto.Invocation, cmd coreelo.Command, slot *replySlot) error {
	if strings.TrimSpace(inv.TeamID) == "" || strings.TrimSpace(inv.UserID) == "" {
		return errors.New("invocation without team or user")
	}

	switch cmd.Kind {
	case coreelo.CommandHelp:
		return slot.Set(elodto.Help{})
	case coreelo.CommandResult:
		return s.handleResult(ctx, inv, cmd.Text, slot)
	case coreelo.CommandRating:
		res, err := s.leaderboard.Summary(ctx, inv.TeamID, inv.UserID)
		if err != nil {
			return err
		}
		return slot.Set(res)
	case coreelo.CommandLeaderboard:
		res, err := s.leaderboard.Top(ctx, inv.TeamID, cmd.Arg)
		if err != nil {
			return err
		}
		return slot.Set(res)
	case coreelo.CommandRegister:
		return s.handleRegister(ctx, inv, cmd.Arg, slot)
	case coreelo.CommandGames:
		games, err := s.repo.ListGameTypes(ctx, inv.TeamID)
		if err != nil {
			return fmt.Errorf("list game types: %w", err)
		}
		names := make([]string, 0, len(games))
		for _, gt := range games {
			names = append(names, gt.Name)
		}
		return slot.Set(elodto.GameList{Names: names})
	}
	return fmt.Errorf("unknown command kind %d", cmd.Kind)
}

func (s *Service) handleResult(ctx context.Context, inv elodto.Invocation, text string, slot *replySlot) error {
	req, err := coreelo.ParseResult(text)
	if errors.Is(err, coreelo.ErrMalformedCommand) {
		return slot.Set(elodto.Help{Reason: elodto.HelpMalformed})
	}
	if err != nil {
		return err
	}
	outcome := coreelo.Classify(req.VerbPhrase)
	if outcome == coreelo.OutcomeUnrecognized {
		return slot.Set(elodto.Help{Reason: elodto.HelpUnrecognized})
	}

	gt, err := s.validator.Validate(ctx, inv.TeamID, inv.UserID, req)
	var rej *coreelo.Rejection
	if errors.As(err, &rej) {
		s.metrics.Rejection(string(rej.Reason))
		s.logger.Debug("elo_result_rejected",
			zap.String("team_id", inv.TeamID),
			zap.String("user_id", inv.UserID),
			zap.String("reason", string(rej.Reason)),
		)
		return slot.Set(elodto.Rejected{Reason: string(rej.Reason), GameType: rej.GameType})
	}
	if err != nil {
		return err
	}

	match, err := s.engine.Record(ctx, gt, req, outcome)
	if err != nil {
		return fmt.Errorf("record %s result: %w", gt.Name, err)
	}
	return slot.Set(elodto.MatchRecorded{
		GameType:    gt.Name,
		Outcome:     outcome.String(),
		Team1Tag:    match.Team1.MemberKey,
		Team1Delta:  match.Delta1,
		Team1Rating: match.Team1.Rating,
		Team2Tag:    match.Team2.MemberKey,
		Team2Delta:  match.Delta2,
		Team2Rating: match.Team2.Rating,
	})
}

func (s *Service) handleRegister(ctx context.Context, inv elodto.Invocation, name string, slot *replySlot) error {
	gt, err := s.repo.RegisterGameType(ctx, inv.TeamID, name)
	if errors.Is(err, ErrGameTypeExists) {
		return slot.Set(elodto.GameAlreadyRegistered{GameType: name})
	}
	if err != nil {
		return fmt.Errorf("register game type %q: %w", name, err)
	}
	s.logger.Info("elo_game_registered",
		zap.String("team_id", inv.TeamID),
		zap.String("game", gt.Name),
		zap.String("game_id", gt.ID),
	)
	return slot.Set(elodto.GameRegistered{GameType: gt.Name})
}
