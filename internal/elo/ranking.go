package elo

import (
	"sort"

	"github.com/park285/elo-ladder-bot/internal/domain"
)

// DefaultLeaderboardSize is the number of rows in a top-N leaderboard.
const DefaultLeaderboardSize = 10

// Ranked pairs an entry with its dense rank inside its partition.
type Ranked struct {
	Entry *domain.RatingEntry
	Rank  int
}

// SortEntries orders entries by rating descending. Equal ratings are ordered
// by member key so the result is deterministic.
func SortEntries(entries []*domain.RatingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].MemberKey < entries[j].MemberKey
	})
}

// DenseRank sorts a copy of entries and assigns dense ranks starting at 1:
// equal ratings share a rank and the next lower rating gets rank+1.
func DenseRank(entries []*domain.RatingEntry) []Ranked {
	sorted := append([]*domain.RatingEntry(nil), entries...)
	SortEntries(sorted)

	out := make([]Ranked, 0, len(sorted))
	rank := 0
	for i, e := range sorted {
		if i == 0 || e.Rating != sorted[i-1].Rating {
			rank++
		}
		out = append(out, Ranked{Entry: e, Rank: rank})
	}
	return out
}

// TopN returns at most n ranked rows from the top of the partition.
func TopN(entries []*domain.RatingEntry, n int) []Ranked {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	ranked := DenseRank(entries)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RankOf returns the dense rank of memberKey, or 0 when it is absent.
func RankOf(entries []*domain.RatingEntry, memberKey string) int {
	for _, r := range DenseRank(entries) {
		if r.Entry.MemberKey == memberKey {
			return r.Rank
		}
	}
	return 0
}

// Surrounding returns every entry whose rank lies within one of the target's
// rank, ordered by rank. Ties mean the window can hold more than three rows.
// It is empty when memberKey is not in the partition.
func Surrounding(entries []*domain.RatingEntry, memberKey string) []Ranked {
	ranked := DenseRank(entries)
	target := 0
	for _, r := range ranked {
		if r.Entry.MemberKey == memberKey {
			target = r.Rank
			break
		}
	}
	if target == 0 {
		return nil
	}
	var out []Ranked
	for _, r := range ranked {
		if r.Rank >= target-1 && r.Rank <= target+1 {
			out = append(out, r)
		}
	}
	return out
}
