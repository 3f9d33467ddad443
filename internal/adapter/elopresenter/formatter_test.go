package elopresenter

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/elo-ladder-bot/internal/msgcat"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

func newTestFormatter(style TagStyle, opts ...Option) *Formatter {
	fixed := time.Date(2026, 3, 4, 15, 5, 0, 0, time.UTC)
	opts = append([]Option{
		WithClock(func() time.Time { return fixed }),
		WithEmojiPicker(func(int) int { return 0 }),
	}, opts...)
	return NewFormatter(msgcat.MustDefault(), "/elo", style, opts...)
}

func TestFormatMatchWin(t *testing.T) {
	f := newTestFormatter(TagSlack)
	r := f.Format(elodto.MatchRecorded{
		GameType: "chess", Outcome: "win",
		Team1Tag: "@U1", Team1Delta: 12, Team1Rating: 1212,
		Team2Tag: "@U2", Team2Delta: -12, Team2Rating: 1188,
	})
	want := "Congratulations to <@U1> (+12.0) :aaw_yeah: on defeating <@U2> (-12.0) :bruh: at chess!"
	if r.Text != want {
		t.Fatalf("got %q\nwant %q", r.Text, want)
	}
	if r.Visibility != elodto.InChannel {
		t.Fatalf("visibility = %s", r.Visibility)
	}
}

func TestFormatMatchTieDoubles(t *testing.T) {
	f := newTestFormatter(TagPlain)
	r := f.Format(elodto.MatchRecorded{
		GameType: "foosball", Outcome: "tie",
		Team1Tag: "@a-@b", Team1Delta: -1.5,
		Team2Tag: "@c-@d", Team2Delta: 1.5,
	})
	if !strings.HasPrefix(r.Text, "@a & @b (-1.5)") || !strings.Contains(r.Text, "tied @c & @d (+1.5)") {
		t.Fatalf("got %q", r.Text)
	}
}

func TestTagStyles(t *testing.T) {
	if got := newTestFormatter(TagSlack).Tag("!here-@U1"); got != "<!here> & <@U1>" {
		t.Fatalf("slack tag = %q", got)
	}
	if got := newTestFormatter(TagPlain).Tag("@U1"); got != "@U1" {
		t.Fatalf("plain tag = %q", got)
	}
}

func TestFormatHelp(t *testing.T) {
	f := newTestFormatter(TagSlack)
	r := f.Format(elodto.Help{})
	if !strings.Contains(r.Text, "`/elo`") || len(r.Attachments) != 1 {
		t.Fatalf("help = %+v", r)
	}
	if !strings.Contains(r.Attachments[0].Text, "/elo leaderboard [game]") {
		t.Fatalf("help body missing commands")
	}
	r = f.Format(elodto.Help{Reason: elodto.HelpUnrecognized})
	if !strings.HasPrefix(r.Text, "I don't know who won") {
		t.Fatalf("unrecognized help = %q", r.Text)
	}
	if r.Visibility != elodto.Ephemeral {
		t.Fatalf("help should be ephemeral")
	}
}

func TestFormatRejections(t *testing.T) {
	f := newTestFormatter(TagSlack)
	cases := map[string]string{
		"unfair_teams":        "2 on 1 isn't very fair",
		"self_report":         "A third-party witness",
		"disallowed_identity": ":areyoukiddingme:",
		"duplicate_entrant":   "Am I seeing double",
		"unknown_game":        "The game of darts has not been registered",
	}
	for reason, prefix := range cases {
		r := f.Format(elodto.Rejected{Reason: reason, GameType: "darts"})
		if !strings.HasPrefix(r.Text, prefix) {
			t.Fatalf("%s: got %q", reason, r.Text)
		}
	}
	r := f.Format(elodto.Rejected{Reason: "unknown_game", GameType: "darts"})
	if len(r.Attachments) != 1 || !strings.Contains(r.Attachments[0].Text, "/elo register [game]") {
		t.Fatalf("unknown game hint missing: %+v", r.Attachments)
	}
}

func TestFormatLeaderboard(t *testing.T) {
	f := newTestFormatter(TagSlack)
	r := f.Format(elodto.Leaderboard{
		GameType: "chess",
		Singles: []elodto.Row{
			{Rank: 1, Tag: "@U1", Rating: 1211.6},
			{Rank: 2, Tag: "@U2", Rating: 1188.4},
		},
	})
	if r.Text != "Here is the current leaderboard for chess:" {
		t.Fatalf("title = %q", r.Text)
	}
	if len(r.Attachments) != 1 {
		t.Fatalf("only the singles side should render: %+v", r.Attachments)
	}
	a := r.Attachments[0]
	if a.Text != "1. <@U1> (1212)\n2. <@U2> (1188)" {
		t.Fatalf("rows = %q", a.Text)
	}
	if !strings.HasSuffix(a.Footer, "Accurate as of March 4, 2026 3:05pm UTC") {
		t.Fatalf("footer = %q", a.Footer)
	}
	if r.Image != nil {
		t.Fatalf("no chart configured")
	}

	empty := f.Format(elodto.Leaderboard{GameType: "chess"})
	if empty.Text != "No one has played any ELO rated games of chess yet." || empty.Attachments != nil {
		t.Fatalf("empty = %+v", empty)
	}
}

func TestFormatLeaderboardWithChart(t *testing.T) {
	f := newTestFormatter(TagSlack, WithChart(NewChartRenderer(480)))
	r := f.Format(elodto.Leaderboard{GameType: "chess", Doubles: []elodto.Row{{Rank: 1, Tag: "@a-@b", Rating: 1200}}})
	if len(r.Image) == 0 {
		t.Fatalf("chart not attached")
	}
}

func TestFormatRatingSummary(t *testing.T) {
	f := newTestFormatter(TagPlain)
	r := f.Format(elodto.RatingSummary{Rows: []elodto.RatingBlock{{
		GameType: "chess", Tag: "@U2", Rank: 2, Rating: 1188, LastChange: -12,
		Window: []elodto.Row{
			{Rank: 1, Tag: "@U1", Rating: 1212},
			{Rank: 2, Tag: "@U2", Rating: 1188, Highlight: true},
		},
	}}})
	if r.Text != "Your rating in chess :mat_icon_person: is 1188 (rank 2, last change -12.0)." {
		t.Fatalf("line = %q", r.Text)
	}
	if len(r.Attachments) != 1 || r.Attachments[0].Text != "1. @U1 (1212)\n*2. @U2 (1188)*" {
		t.Fatalf("window = %+v", r.Attachments)
	}

	none := f.Format(elodto.RatingSummary{})
	if none.Text != "You haven't played any ELO rated games yet." {
		t.Fatalf("none = %q", none.Text)
	}
}

func TestFormatRegistryReplies(t *testing.T) {
	f := newTestFormatter(TagSlack)
	if got := f.Format(elodto.GameRegistered{GameType: "chess"}).Text; got != "Successfully registered chess for this team!" {
		t.Fatalf("registered = %q", got)
	}
	if got := f.Format(elodto.GameAlreadyRegistered{}).Text; got != "That game has already been registered." {
		t.Fatalf("exists = %q", got)
	}
	list := f.Format(elodto.GameList{Names: []string{"chess", "darts"}}).Text
	if list != "Here are all the registered types of games for this team:\n• chess\n• darts" {
		t.Fatalf("games = %q", list)
	}
	if got := f.Format(elodto.GameList{}).Text; !strings.Contains(got, "`/elo register [game]`") {
		t.Fatalf("no games = %q", got)
	}
}

func TestFormatFailure(t *testing.T) {
	f := newTestFormatter(TagSlack)
	for _, res := range []elodto.Result{elodto.Failure{Message: "x"}, nil} {
		if got := f.Format(res).Text; !strings.HasPrefix(got, "Uh oh! Something went wrong.") {
			t.Fatalf("failure = %q", got)
		}
	}
}
