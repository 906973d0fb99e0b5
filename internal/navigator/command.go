package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCommand is returned by ParseCommand and Do.
	ErrUnknownCommand = errors.New("unknown navigation command")
	// ErrNoteNotShown means the active note has no line in the index.
	ErrNoteNotShown = errors.New("note not in luhmann index")
)

// Command names a navigation operation exposed to hosts.
type Command string

const (
	CommandTop     Command = "top"
	CommandAll     Command = "all"
	CommandForward Command = "forward"
	CommandBack    Command = "back"
	CommandUnfold  Command = "unfold"
	CommandDepth   Command = "depth"
	CommandCurrent Command = "current"
)

// Commands lists every command in help order.
var Commands = []Command{
	CommandTop, CommandAll, CommandForward, CommandBack, CommandUnfold, CommandDepth, CommandCurrent,
}

// ParseCommand parses a command name, case-insensitively.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Commands {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Do dispatches cmd. depth is only used by CommandDepth and loc only by
// CommandCurrent.
func (n *Navigator) Do(ctx context.Context, d Display, cmd Command, depth int, loc NoteLocator) error {
	switch cmd {
	case CommandTop:
		return n.FocusTopLevel(ctx, d)
	case CommandAll:
		return n.FocusAll(ctx, d)
	case CommandForward:
		return n.StepForward(ctx, d)
	case CommandBack:
		return n.StepBack(ctx, d)
	case CommandUnfold:
		return n.Unfold(ctx, d)
	case CommandDepth:
		return n.SetDepthWindow(ctx, d, depth)
	case CommandCurrent:
		return n.JumpToCurrentNote(ctx, d, loc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}
}
