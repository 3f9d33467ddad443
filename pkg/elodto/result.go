package elodto

// Visibility tells the transport who should see a reply.
type Visibility string

const (
	Ephemeral Visibility = "ephemeral"
	InChannel Visibility = "in_channel"
)

// Result is the single reply produced for one invocation. The set of
// implementations is closed.
type Result interface {
	Kind() string
	Visibility() Visibility
	isResult()
}

// Help is the usage reply. Reason says what sent the user here and is empty
// when help was asked for.
type Help struct {
	Reason string
}

const (
	HelpMalformed    = "malformed"
	HelpUnrecognized = "unrecognized_verb"
)

type Rejected struct {
	Reason   string
	GameType string
}

type MatchRecorded struct {
	GameType    string
	Outcome     string
	Team1Tag    string
	Team1Delta  float64
	Team1Rating float64
	Team2Tag    string
	Team2Delta  float64
	Team2Rating float64
}

// Row is one ranked line of a leaderboard or rating window.
type Row struct {
	Rank       int
	Tag        string
	Rating     float64
	LastChange float64
	Highlight  bool
}

// Leaderboard holds the top rows of each team size; a side with no entries
// is nil.
type Leaderboard struct {
	GameType string
	Singles  []Row
	Doubles  []Row
}

// RatingBlock is one of the invoker's entries with its neighbourhood.
type RatingBlock struct {
	GameType   string
	Doubles    bool
	Tag        string
	Rank       int
	Rating     float64
	LastChange float64
	Window     []Row
}

type RatingSummary struct {
	Rows []RatingBlock
}

type GameRegistered struct {
	GameType string
}

type GameAlreadyRegistered struct {
	GameType string
}

type GameList struct {
	Names []string
}

// Failure is the generic reply for an operational error. Details stay in
// the logs.
type Failure struct {
	Message string
}

func (Help) Kind() string                  { return "help" }
func (Rejected) Kind() string              { return "rejected" }
func (MatchRecorded) Kind() string         { return "match_recorded" }
func (Leaderboard) Kind() string           { return "leaderboard" }
func (RatingSummary) Kind() string         { return "rating" }
func (GameRegistered) Kind() string        { return "game_registered" }
func (GameAlreadyRegistered) Kind() string { return "game_already_registered" }
func (GameList) Kind() string              { return "games" }
func (Failure) Kind() string               { return "failure" }

func (Help) Visibility() Visibility                  { return Ephemeral }
func (Rejected) Visibility() Visibility              { return Ephemeral }
func (MatchRecorded) Visibility() Visibility         { return InChannel }
func (Leaderboard) Visibility() Visibility           { return Ephemeral }
func (RatingSummary) Visibility() Visibility         { return Ephemeral }
func (GameRegistered) Visibility() Visibility        { return Ephemeral }
func (GameAlreadyRegistered) Visibility() Visibility { return Ephemeral }
func (GameList) Visibility() Visibility              { return Ephemeral }
func (Failure) Visibility() Visibility               { return Ephemeral }

func (Help) isResult()                  {}
func (Rejected) isResult()              {}
func (MatchRecorded) isResult()         {}
func (Leaderboard) isResult()           {}
func (RatingSummary) isResult()         {}
func (GameRegistered) isResult()        {}
func (GameAlreadyRegistered) isResult() {}
func (GameList) isResult()              {}
func (Failure) isResult()               {}
