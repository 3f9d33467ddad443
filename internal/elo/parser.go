package elo

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedCommand means the text does not follow the game result grammar.
var ErrMalformedCommand = errors.New("malformed game result command")

type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomeWin
	OutcomeTie
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeTie:
		return "tie"
	default:
		return "unrecognized"
	}
}

var (
	victoryTerms = []string{
		"beat", "defeated", "conquered", "won against", "got the better of", "vanquished", "trounced",
		"routed", "overpowered", "overcame", "overwhelmed", "overthrew", "subdued", "quashed", "crushed",
		"thrashed", "whipped", "wiped the floor with", "clobbered", "owned", "pwned", "wrecked",
	}
	tieTerms = []string{"tied", "drawed"}

	victorySet = termSet(victoryTerms)
	tieSet     = termSet(tieTerms)
)

// mention matches a Slack style mention (<@U123|name>, <!here>) or a bare
// @name token.
const mention = `(<[^>]*>|@[^\s<>]+)`

var resultPattern = regexp.MustCompile(
	`^` + mention + `(?: +and +` + mention + `)? +([A-Za-z ]*) +` +
		mention + `(?: +and +` + mention + `)? +at +(.*)$`,
)

// Request is a parsed game result. P2 and P4 are empty for singles.
type Request struct {
	P1, P2     string
	P3, P4     string
	VerbPhrase string
	GameType   string
}

// ParseResult parses "P1 [and P2] VERB P3 [and P4] at GAME".
func ParseResult(text string) (*Request, error) {
	m := resultPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, ErrMalformedCommand
	}
	req := &Request{
		P1:         normalizeMention(m[1]),
		P2:         normalizeMention(m[2]),
		VerbPhrase: strings.TrimSpace(m[3]),
		P3:         normalizeMention(m[4]),
		P4:         normalizeMention(m[5]),
		GameType:   strings.TrimSpace(m[6]),
	}
	if req.P1 == "" || req.P3 == "" || req.GameType == "" {
		return nil, ErrMalformedCommand
	}
	return req, nil
}

// Classify maps a verb phrase to an outcome.
func Classify(verb string) Outcome {
	v := strings.ToLower(strings.TrimSpace(verb))
	if _, ok := victorySet[v]; ok {
		return OutcomeWin
	}
	if _, ok := tieSet[v]; ok {
		return OutcomeTie
	}
	return OutcomeUnrecognized
}

// Participants returns p1..p4 in order, including empty slots.
func (r *Request) Participants() []string {
	return []string{r.P1, r.P2, r.P3, r.P4}
}

// TeamSize is 2 only when both sides name a partner.
func (r *Request) TeamSize() int {
	if r.P2 != "" && r.P4 != "" {
		return 2
	}
	return 1
}

func (r *Request) Team1Key() string { return MemberKey(r.P1, r.P2) }
func (r *Request) Team2Key() string { return MemberKey(r.P3, r.P4) }

func normalizeMention(tok string) string {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") {
		inner := tok[1 : len(tok)-1]
		if i := strings.IndexByte(inner, '|'); i >= 0 {
			inner = inner[:i]
		}
		return strings.TrimSpace(inner)
	}
	return tok
}

func termSet(terms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		out[t] = struct{}{}
	}
	return out
}
