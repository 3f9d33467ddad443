package elo

import "strings"

type CommandKind int

const (
	CommandHelp CommandKind = iota
	CommandResult
	CommandRating
	CommandLeaderboard
	CommandRegister
	CommandGames
)

// Command is the routed form of a raw command text. Arg holds the text after
// the subcommand word (the game name for leaderboard/register); Text keeps
// the full trimmed input for game results.
type Command struct {
	Kind CommandKind
	Arg  string
	Text string
}

// ParseCommand routes text on its first word. Empty text and "help" always
// route to help, as do leaderboard/register without a game name.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" || text == "help" {
		return Command{Kind: CommandHelp}
	}
	head, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch head {
	case "rating":
		return Command{Kind: CommandRating}
	case "games":
		return Command{Kind: CommandGames}
	case "leaderboard":
		if rest == "" {
			return Command{Kind: CommandHelp}
		}
		return Command{Kind: CommandLeaderboard, Arg: rest}
	case "register":
		if rest == "" {
			return Command{Kind: CommandHelp}
		}
		return Command{Kind: CommandRegister, Arg: rest}
	}
	return Command{Kind: CommandResult, Text: text}
}
