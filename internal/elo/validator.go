package elo

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/elo-ladder-bot/internal/domain"
)

type RejectReason string

const (
	RejectUnfairTeams        RejectReason = "unfair_teams"
	RejectSelfReport         RejectReason = "self_report"
	RejectDisallowedIdentity RejectReason = "disallowed_identity"
	RejectDuplicateEntrant   RejectReason = "duplicate_entrant"
	RejectUnknownGame        RejectReason = "unknown_game"
)

// Rejection is a user-facing refusal of a game result. It is terminal but not
// an operational failure.
type Rejection struct {
	Reason   RejectReason
	GameType string
}

func (r *Rejection) Error() string {
	if r.GameType != "" {
		return fmt.Sprintf("game result rejected: %s (%s)", r.Reason, r.GameType)
	}
	return "game result rejected: " + string(r.Reason)
}

// DefaultReservedIdentities are system placeholders and broadcast mentions
// that can never take part in a game.
var DefaultReservedIdentities = []string{"@USLACKBOT", "!channel", "!here", "!everyone"}

// GameTypeFinder resolves a game name within a team. A nil result with a nil
// error means the game is not registered.
type GameTypeFinder interface {
	FindGameType(ctx context.Context, teamID, name string) (*domain.GameType, error)
}

type Validator struct {
	games    GameTypeFinder
	reserved map[string]struct{}
}

func NewValidator(games GameTypeFinder, reserved []string) *Validator {
	if reserved == nil {
		reserved = DefaultReservedIdentities
	}
	set := make(map[string]struct{}, len(reserved))
	for _, id := range reserved {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return &Validator{games: games, reserved: set}
}

// Validate applies the fairness rules in order and resolves the game type.
// Rule violations come back as *Rejection; any other error is operational.
func (v *Validator) Validate(ctx context.Context, teamID, invoker string, req *Request) (*domain.GameType, error) {
	if rej := v.CheckParticipants(invoker, req); rej != nil {
		return nil, rej
	}
	gt, err := v.games.FindGameType(ctx, teamID, req.GameType)
	if err != nil {
		return nil, fmt.Errorf("find game type %q: %w", req.GameType, err)
	}
	if gt == nil {
		return nil, &Rejection{Reason: RejectUnknownGame, GameType: req.GameType}
	}
	return gt, nil
}

// CheckParticipants applies the rules that need no directory lookup.
func (v *Validator) CheckParticipants(invoker string, req *Request) *Rejection {
	if (req.P2 == "") != (req.P4 == "") {
		return &Rejection{Reason: RejectUnfairTeams}
	}
	participants := req.Participants()
	if invoker = Identity(invoker); invoker != "" {
		for _, p := range participants {
			if p == invoker {
				return &Rejection{Reason: RejectSelfReport}
			}
		}
	}
	for _, p := range participants {
		if _, ok := v.reserved[p]; ok {
			return &Rejection{Reason: RejectDisallowedIdentity}
		}
	}
	distinct := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p != "" {
			distinct[p] = struct{}{}
		}
	}
	if len(distinct) != req.TeamSize()*2 {
		return &Rejection{Reason: RejectDuplicateEntrant}
	}
	return nil
}
