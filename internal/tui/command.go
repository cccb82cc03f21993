package tui

import "strings"

// Command is one parsed prompt entry, e.g. ":add BOB42A" or ":image x.png".
// Args is the raw tail after the command name; each command interprets it
// on its own.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits a prompt entry (leading ':' already stripped) into
// a lowercase command name and its argument tail.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}
}
