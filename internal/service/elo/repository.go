package elo

import (
	"context"
	"errors"

	"github.com/park285/elo-ladder-bot/internal/domain"
)

var (
	// ErrConflict means a concurrent writer touched one of the rows of a pair
	// update. The caller may retry.
	ErrConflict = errors.New("rating entry update conflict")
	// ErrGameTypeExists is returned when a team registers a name twice.
	ErrGameTypeExists = errors.New("game type already registered")
	// ErrConflictRetriesExhausted wraps the last ErrConflict once the retry
	// budget is spent.
	ErrConflictRetriesExhausted = errors.New("rating update retries exhausted")
)

// PairUpdateFunc mutates both entries of a match in place. Returning an error
// aborts the update and nothing is written.
type PairUpdateFunc func(t1, t2 *domain.RatingEntry) error

// Repository stores game types and rating entries.
type Repository interface {
	RegisterGameType(ctx context.Context, teamID, name string) (*domain.GameType, error)
	// FindGameType returns nil, nil when the name is not registered.
	FindGameType(ctx context.Context, teamID, name string) (*domain.GameType, error)
	ListGameTypes(ctx context.Context, teamID string) ([]*domain.GameType, error)

	// UpdatePair loads (or lazily creates at initial) both entries, applies fn
	// and persists both rows atomically. Either both rows change or neither.
	UpdatePair(ctx context.Context, k1, k2 domain.EntryKey, initial float64, fn PairUpdateFunc) (t1, t2 *domain.RatingEntry, err error)

	ListPartition(ctx context.Context, p domain.Partition) ([]*domain.RatingEntry, error)
	// ListEntriesForMember returns every entry in the team whose member key
	// contains the identity.
	ListEntriesForMember(ctx context.Context, teamID, member string) ([]*domain.RatingEntry, error)

	Close() error
}

func validPair(k1, k2 domain.EntryKey) error {
	if k1 == k2 {
		return errors.New("rating pair must name two distinct entries")
	}
	if k1.Partition != k2.Partition {
		return errors.New("rating pair spans two partitions")
	}
	return nil
}

func cloneEntry(e *domain.RatingEntry) *domain.RatingEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
