package elopresenter

import (
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
	"github.com/park285/elo-ladder-bot/internal/msgcat"
	"github.com/park285/elo-ladder-bot/internal/obslog"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// TagStyle selects how member identities are written in replies.
type TagStyle int

const (
	// TagSlack wraps identities as Slack mentions (<@U1>, <!here>).
	TagSlack TagStyle = iota
	// TagPlain prints identities as stored (@U1).
	TagPlain
)

const timestampLayout = "January 2, 2006 3:04pm MST"

var (
	winEmoji = []string{
		"aaw_yeah", "awesome", "bananadance", "cheers", "clapping", "congrats", "dancing_pickle",
		"excellent", "fastparrot", "fiestaparrot", "nailedit", "parrot", "partywizard", "success",
		"very_nice", "woohoo", "yes",
	}
	loseEmoji = []string{
		"bruh", "crying", "disappointed_jacob", "doh", "dumpster_fire", "facepalm", "feelsbad",
		"nooooooo", "oof", "sadparrot", "sad_mac", "shame", "surprised_pikachu", "wellthen",
	}
)

// Attachment mirrors a Slack message attachment.
type Attachment struct {
	Text   string `json:"text"`
	Footer string `json:"footer,omitempty"`
}

// Reply is a transport-neutral rendered result.
type Reply struct {
	Visibility  elodto.Visibility
	Text        string
	Attachments []Attachment
	// Image is an optional PNG for transports that can post pictures.
	Image []byte
}

type Option func(*Formatter)

func WithClock(now func() time.Time) Option { return func(f *Formatter) { f.now = now } }

// WithEmojiPicker replaces the random emoji choice.
func WithEmojiPicker(pick func(n int) int) Option { return func(f *Formatter) { f.pick = pick } }

// WithChart attaches a leaderboard chart to leaderboard replies.
func WithChart(c *ChartRenderer) Option { return func(f *Formatter) { f.chart = c } }

// Formatter renders elodto results through the message catalog.
type Formatter struct {
	cat    *msgcat.Catalog
	prefix string
	style  TagStyle
	now    func() time.Time
	pick   func(n int) int
	chart  *ChartRenderer
}

func NewFormatter(cat *msgcat.Catalog, prefix string, style TagStyle, opts ...Option) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	f := &Formatter{
		cat:    cat,
		prefix: strings.TrimSpace(prefix),
		style:  style,
		now:    time.Now,
		pick:   rand.Intn,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Formatter) Prefix() string { return f.prefix }

func (f *Formatter) Format(res elodto.Result) Reply {
	if res == nil {
		return Reply{Visibility: elodto.Ephemeral, Text: f.render("failure", nil)}
	}
	out := Reply{Visibility: res.Visibility()}
	switch r := res.(type) {
	case elodto.Help:
		f.help(&out, r)
	case elodto.Rejected:
		f.rejected(&out, r)
	case elodto.MatchRecorded:
		f.match(&out, r)
	case elodto.Leaderboard:
		f.leaderboard(&out, r)
	case elodto.RatingSummary:
		f.rating(&out, r)
	case elodto.GameRegistered:
		out.Text = f.render("register.ok", map[string]any{"Game": r.GameType})
	case elodto.GameAlreadyRegistered:
		out.Text = f.render("register.exists", nil)
	case elodto.GameList:
		f.games(&out, r)
	case elodto.Failure:
		out.Text = f.render("failure", nil)
	default:
		out.Text = f.render("failure", nil)
	}
	return out
}

func (f *Formatter) help(out *Reply, r elodto.Help) {
	data := map[string]any{"Prefix": f.prefix}
	out.Text = f.render("help.title", data)
	if r.Reason != "" {
		out.Text = f.render("help."+r.Reason, data) + "\n" + out.Text
	}
	out.Attachments = []Attachment{{Text: f.render("help.body", data)}}
}

func (f *Formatter) rejected(out *Reply, r elodto.Rejected) {
	data := map[string]any{"Prefix": f.prefix, "Game": r.GameType}
	out.Text = f.render("rejected."+r.Reason, data)
	if r.Reason == string(coreelo.RejectUnknownGame) {
		out.Attachments = []Attachment{{Text: f.render("rejected.unknown_game_hint", data)}}
	}
}

func (f *Formatter) match(out *Reply, r elodto.MatchRecorded) {
	data := map[string]any{
		"Team1":     f.Tag(r.Team1Tag),
		"Team2":     f.Tag(r.Team2Tag),
		"Delta1":    r.Team1Delta,
		"Delta2":    r.Team2Delta,
		"Game":      r.GameType,
		"WinEmoji":  winEmoji[f.pick(len(winEmoji))],
		"LoseEmoji": loseEmoji[f.pick(len(loseEmoji))],
	}
	key := "match.win"
	if r.Outcome == coreelo.OutcomeTie.String() {
		key = "match.tie"
	}
	out.Text = f.render(key, data)
}

func (f *Formatter) leaderboard(out *Reply, r elodto.Leaderboard) {
	data := map[string]any{"Game": r.GameType, "Now": f.now().Format(timestampLayout)}
	if len(r.Singles) == 0 && len(r.Doubles) == 0 {
		out.Text = f.render("leaderboard.empty", data)
		return
	}
	out.Text = f.render("leaderboard.title", data)
	if len(r.Singles) > 0 {
		out.Attachments = append(out.Attachments, Attachment{
			Text:   f.rows(r.Singles, "leaderboard.row"),
			Footer: f.render("leaderboard.footer_singles", data),
		})
	}
	if len(r.Doubles) > 0 {
		out.Attachments = append(out.Attachments, Attachment{
			Text:   f.rows(r.Doubles, "leaderboard.row"),
			Footer: f.render("leaderboard.footer_doubles", data),
		})
	}
	if f.chart != nil {
		img, err := f.chart.LeaderboardPNG(r, f.plainTag)
		if err != nil {
			obslog.L().Warn("elo_chart_render_failed", zap.String("game", r.GameType), zap.Error(err))
		} else {
			out.Image = img
		}
	}
}

func (f *Formatter) rating(out *Reply, r elodto.RatingSummary) {
	if len(r.Rows) == 0 {
		out.Text = f.render("rating.none", nil)
		return
	}
	lines := make([]string, 0, len(r.Rows))
	for _, b := range r.Rows {
		lines = append(lines, f.render("rating.line", map[string]any{
			"Game":       b.GameType,
			"Doubles":    b.Doubles,
			"Rating":     b.Rating,
			"Rank":       b.Rank,
			"LastChange": b.LastChange,
		}))
		out.Attachments = append(out.Attachments, Attachment{Text: f.rows(b.Window, "rating.window_row")})
	}
	out.Text = strings.Join(lines, "\n")
}

func (f *Formatter) games(out *Reply, r elodto.GameList) {
	if len(r.Names) == 0 {
		out.Text = f.render("games.none", map[string]any{"Prefix": f.prefix})
		return
	}
	lines := []string{f.render("games.title", nil)}
	for _, n := range r.Names {
		lines = append(lines, f.render("games.row", map[string]any{"Game": n}))
	}
	out.Text = strings.Join(lines, "\n")
}

func (f *Formatter) rows(rows []elodto.Row, key string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, f.render(key, map[string]any{
			"Rank":      row.Rank,
			"Tag":       f.Tag(row.Tag),
			"Rating":    row.Rating,
			"Highlight": row.Highlight,
		}))
	}
	return strings.Join(lines, "\n")
}

// Tag renders a member key for display: "@U1-@U2" becomes "<@U1> & <@U2>"
// in Slack style.
func (f *Formatter) Tag(memberKey string) string {
	members := coreelo.Members(memberKey)
	parts := make([]string, 0, len(members))
	for _, m := range members {
		if f.style == TagSlack {
			m = "<" + m + ">"
		}
		parts = append(parts, m)
	}
	return strings.Join(parts, " & ")
}

func (f *Formatter) plainTag(memberKey string) string {
	return strings.Join(coreelo.Members(memberKey), " & ")
}

func (f *Formatter) render(key string, data any) string {
	if data == nil {
		data = map[string]any{}
	}
	out, err := f.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("elo_template_render_failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return out
}
