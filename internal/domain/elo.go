package domain

import "time"

// Team sizes a composition can be rated at.
const (
	TeamSizeSingles = 1
	TeamSizeDoubles = 2
)

type GameType struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Partition identifies the set of entries ranked against each other.
type Partition struct {
	TeamID     string
	GameTypeID string
	TeamSize   int
}

// EntryKey is the unique key of a RatingEntry.
type EntryKey struct {
	Partition
	MemberKey string
}

// RatingEntry is the current rating of one composition (one or two members)
// for one game type. LastRatingChange only reflects the most recent match.
type RatingEntry struct {
	TeamID           string    `json:"team_id"`
	GameTypeID       string    `json:"game_type_id"`
	TeamSize         int       `json:"team_size"`
	MemberKey        string    `json:"member_key"`
	Rating           float64   `json:"rating"`
	LastRatingChange float64   `json:"last_rating_change"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (e *RatingEntry) Key() EntryKey {
	return EntryKey{
		Partition: Partition{TeamID: e.TeamID, GameTypeID: e.GameTypeID, TeamSize: e.TeamSize},
		MemberKey: e.MemberKey,
	}
}

func (e *RatingEntry) Doubles() bool { return e.TeamSize == TeamSizeDoubles }

// NewRatingEntry returns a fresh entry at the initial rating.
func NewRatingEntry(key EntryKey, initial float64, now time.Time) *RatingEntry {
	return &RatingEntry{
		TeamID:     key.TeamID,
		GameTypeID: key.GameTypeID,
		TeamSize:   key.TeamSize,
		MemberKey:  key.MemberKey,
		Rating:     initial,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
