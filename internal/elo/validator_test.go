package elo

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/elo-ladder-bot/internal/domain"
)

type stubFinder struct {
	games map[string]*domain.GameType
	err   error
	calls int
}

func (s *stubFinder) FindGameType(_ context.Context, teamID, name string) (*domain.GameType, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.games[teamID+"/"+name], nil
}

func newStubFinder() *stubFinder {
	return &stubFinder{games: map[string]*domain.GameType{
		"T/chess": {ID: "g1", TeamID: "T", Name: "chess"},
	}}
}

func rejectionReason(t *testing.T, err error) RejectReason {
	t.Helper()
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected *Rejection, got %v", err)
	}
	return rej.Reason
}

func TestValidateRulesInOrder(t *testing.T) {
	cases := []struct {
		name    string
		invoker string
		req     Request
		want    RejectReason
	}{
		{"unfair teams", "U9", Request{P1: "@a", P2: "@b", P3: "@c", GameType: "chess"}, RejectUnfairTeams},
		{"unfair beats self report", "U1", Request{P1: "@U1", P3: "@c", P4: "@d", GameType: "chess"}, RejectUnfairTeams},
		{"self report", "U1", Request{P1: "@a", P3: "@U1", GameType: "chess"}, RejectSelfReport},
		{"self report already prefixed", "@a", Request{P1: "@a", P3: "@b", GameType: "chess"}, RejectSelfReport},
		{"reserved bot", "U9", Request{P1: "@USLACKBOT", P3: "@b", GameType: "chess"}, RejectDisallowedIdentity},
		{"reserved broadcast", "U9", Request{P1: "@a", P3: "!channel", GameType: "chess"}, RejectDisallowedIdentity},
		{"duplicate singles", "U9", Request{P1: "@a", P3: "@a", GameType: "chess"}, RejectDuplicateEntrant},
		{"duplicate across sides", "U9", Request{P1: "@a", P2: "@b", P3: "@b", P4: "@c", GameType: "chess"}, RejectDuplicateEntrant},
		{"duplicate within side", "U9", Request{P1: "@a", P2: "@a", P3: "@b", P4: "@c", GameType: "chess"}, RejectDuplicateEntrant},
		{"unknown game", "U9", Request{P1: "@a", P3: "@b", GameType: "go"}, RejectUnknownGame},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := NewValidator(newStubFinder(), nil)
			req := c.req
			_, err := v.Validate(context.Background(), "T", c.invoker, &req)
			if got := rejectionReason(t, err); got != c.want {
				t.Fatalf("reason = %s, want %s", got, c.want)
			}
		})
	}
}

func TestValidateAcceptsFairMatch(t *testing.T) {
	finder := newStubFinder()
	v := NewValidator(finder, nil)
	gt, err := v.Validate(context.Background(), "T", "U9", &Request{P1: "@a", P2: "@b", P3: "@c", P4: "@d", GameType: "chess"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if gt == nil || gt.ID != "g1" {
		t.Fatalf("unexpected game type %+v", gt)
	}
}

func TestValidateSkipsLookupOnRejection(t *testing.T) {
	finder := newStubFinder()
	v := NewValidator(finder, nil)
	_, _ = v.Validate(context.Background(), "T", "U1", &Request{P1: "@U1", P3: "@b", GameType: "chess"})
	if finder.calls != 0 {
		t.Fatalf("directory consulted %d times after a participant rejection", finder.calls)
	}
}

func TestValidateDirectoryErrorIsOperational(t *testing.T) {
	finder := newStubFinder()
	finder.err = errors.New("store down")
	v := NewValidator(finder, nil)
	_, err := v.Validate(context.Background(), "T", "U9", &Request{P1: "@a", P3: "@b", GameType: "chess"})
	var rej *Rejection
	if err == nil || errors.As(err, &rej) {
		t.Fatalf("expected operational error, got %v", err)
	}
}

func TestValidateCustomReservedList(t *testing.T) {
	v := NewValidator(newStubFinder(), []string{"@bot"})
	_, err := v.Validate(context.Background(), "T", "U9", &Request{P1: "@bot", P3: "@b", GameType: "chess"})
	if got := rejectionReason(t, err); got != RejectDisallowedIdentity {
		t.Fatalf("reason = %s", got)
	}
	if _, err := v.Validate(context.Background(), "T", "U9", &Request{P1: "!here", P3: "@b", GameType: "chess"}); err != nil {
		t.Fatalf("!here should be allowed with a custom list: %v", err)
	}
}
