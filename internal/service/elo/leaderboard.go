package elo

import (
	"context"
	"fmt"
	"sort"

	"github.com/park285/elo-ladder-bot/internal/domain"
	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// Leaderboards answers the read-only ranking queries. Reads are not
// serialized with concurrent matches; a slightly stale ranking is fine.
type Leaderboards struct {
	repo Repository
	size int
}

func NewLeaderboards(repo Repository, size int) *Leaderboards {
	if size <= 0 {
		size = coreelo.DefaultLeaderboardSize
	}
	return &Leaderboards{repo: repo, size: size}
}

// Top returns the top rows of both team sizes for a game. The result is a
// Rejected reply when the game is not registered.
func (l *Leaderboards) Top(ctx context.Context, teamID, game string) (elodto.Result, error) {
	gt, err := l.repo.FindGameType(ctx, teamID, game)
	if err != nil {
		return nil, fmt.Errorf("find game type %q: %w", game, err)
	}
	if gt == nil {
		return elodto.Rejected{Reason: string(coreelo.RejectUnknownGame), GameType: game}, nil
	}

	out := elodto.Leaderboard{GameType: gt.Name}
	for _, size := range []int{domain.TeamSizeSingles, domain.TeamSizeDoubles} {
		entries, err := l.repo.ListPartition(ctx, domain.Partition{TeamID: teamID, GameTypeID: gt.ID, TeamSize: size})
		if err != nil {
			return nil, fmt.Errorf("list %s partition: %w", gt.Name, err)
		}
		rows := toRows(coreelo.TopN(entries, l.size), "")
		if size == domain.TeamSizeDoubles {
			out.Doubles = rows
		} else {
			out.Singles = rows
		}
	}
	return out, nil
}

// Summary returns every entry the user belongs to with its dense rank and
// the entries ranked directly around it.
func (l *Leaderboards) Summary(ctx context.Context, teamID, userID string) (elodto.Result, error) {
	member := coreelo.Identity(userID)
	entries, err := l.repo.ListEntriesForMember(ctx, teamID, member)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", member, err)
	}
	if len(entries) == 0 {
		return elodto.RatingSummary{}, nil
	}

	games, err := l.repo.ListGameTypes(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list game types: %w", err)
	}
	names := make(map[string]string, len(games))
	for _, gt := range games {
		names[gt.ID] = gt.Name
	}

	blocks := make([]elodto.RatingBlock, 0, len(entries))
	for _, e := range entries {
		part, err := l.repo.ListPartition(ctx, e.Key().Partition)
		if err != nil {
			return nil, fmt.Errorf("list partition: %w", err)
		}
		window := coreelo.Surrounding(part, e.MemberKey)
		block := elodto.RatingBlock{
			GameType:   names[e.GameTypeID],
			Doubles:    e.Doubles(),
			Tag:        e.MemberKey,
			Rating:     e.Rating,
			LastChange: e.LastRatingChange,
			Window:     toRows(window, e.MemberKey),
		}
		for _, r := range window {
			if r.Entry.MemberKey == e.MemberKey {
				block.Rank = r.Rank
				block.Rating = r.Entry.Rating
				block.LastChange = r.Entry.LastRatingChange
			}
		}
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].GameType != blocks[j].GameType {
			return blocks[i].GameType < blocks[j].GameType
		}
		if blocks[i].Doubles != blocks[j].Doubles {
			return !blocks[i].Doubles
		}
		return blocks[i].Tag < blocks[j].Tag
	})
	return elodto.RatingSummary{Rows: blocks}, nil
}

func toRows(ranked []coreelo.Ranked, highlight string) []elodto.Row {
	if len(ranked) == 0 {
		return nil
	}
	rows := make([]elodto.Row, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, elodto.Row{
			Rank:       r.Rank,
			Tag:        r.Entry.MemberKey,
			Rating:     r.Entry.Rating,
			LastChange: r.Entry.LastRatingChange,
			Highlight:  highlight != "" && r.Entry.MemberKey == highlight,
		})
	}
	return rows
}
