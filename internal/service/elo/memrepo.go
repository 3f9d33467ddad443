package elo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/elo-ladder-bot/internal/domain"
	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
)

// memrepo keeps everything in process memory. Used when no store is
// configured and by tests.
type memrepo struct {
	mu sync.RWMutex

	games   map[string]*domain.GameType // teamID|name -> game type
	entries map[domain.EntryKey]*domain.RatingEntry

	now func() time.Time
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games:   make(map[string]*domain.GameType),
		entries: make(map[domain.EntryKey]*domain.RatingEntry),
		now:     time.Now,
	}
}

func gameIndex(teamID, name string) string {
	return teamID + "|" + strings.TrimSpace(name)
}

func (m *memrepo) RegisterGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	name = strings.TrimSpace(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	key := gameIndex(teamID, name)
	if _, exists := m.games[key]; exists {
		return nil, ErrGameTypeExists
	}
	gt := &domain.GameType{ID: uuid.NewString(), TeamID: teamID, Name: name, CreatedAt: m.now().UTC()}
	m.games[key] = gt
	copy := *gt
	return &copy, nil
}

func (m *memrepo) FindGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gt, ok := m.games[gameIndex(teamID, name)]
	if !ok {
		return nil, nil
	}
	copy := *gt
	return &copy, nil
}

func (m *memrepo) ListGameTypes(ctx context.Context, teamID string) ([]*domain.GameType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.GameType, 0)
	for _, gt := range m.games {
		if gt.TeamID == teamID {
			copy := *gt
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memrepo) UpdatePair(ctx context.Context, k1, k2 domain.EntryKey, initial float64, fn PairUpdateFunc) (*domain.RatingEntry, *domain.RatingEntry, error) {
	if err := validPair(k1, k2); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	load := func(k domain.EntryKey) *domain.RatingEntry {
		if e, ok := m.entries[k]; ok {
			return cloneEntry(e)
		}
		return domain.NewRatingEntry(k, initial, now)
	}
	t1, t2 := load(k1), load(k2)
	if err := fn(t1, t2); err != nil {
		return nil, nil, err
	}
	t1.UpdatedAt, t2.UpdatedAt = now, now
	m.entries[k1] = cloneEntry(t1)
	m.entries[k2] = cloneEntry(t2)
	return t1, t2, nil
}

func (m *memrepo) ListPartition(ctx context.Context, p domain.Partition) ([]*domain.RatingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RatingEntry, 0)
	for k, e := range m.entries {
		if k.Partition == p {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (m *memrepo) ListEntriesForMember(ctx context.Context, teamID, member string) ([]*domain.RatingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RatingEntry, 0)
	for k, e := range m.entries {
		if k.TeamID == teamID && coreelo.HasMember(k.MemberKey, member) {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (m *memrepo) Close() error { return nil }
