package dictation

import (
	"errors"
	"fmt"

	"dictate/internal/command"
	"dictate/internal/tracker"
)

// execute applies a spoken command to the typed history and the screen. It
// returns the number of characters erased.
func (c *Controller) execute(cmd command.Command) (int, error) {
	inj, hist := c.deps.Injector, c.deps.Tracker
	c.log.Infow("command", "kind", cmd)

	switch cmd.Kind {
	case command.DeleteThat:
		r, err := hist.PopLast()
		if err != nil {
			return 0, err
		}
		if err := inj.SendBackspace(r.Chars); err != nil {
			return 0, fmt.Errorf("erase last dictation: %w", err)
		}
		return r.Chars, nil

	case command.NewLine, command.NewParagraph:
		breaks := "\n"
		if cmd.Kind == command.NewParagraph {
			breaks = "\n\n"
		}
		if err := inj.TypeText(breaks); err != nil {
			return 0, fmt.Errorf("type line break: %w", err)
		}
		hist.Record(breaks, true)
		return 0, nil

	case command.Undo:
		if err := inj.SendUndo(); err != nil {
			return 0, fmt.Errorf("undo: %w", err)
		}
		// the editor's undo may not line up with our spans; forget the newest
		if s, ok := hist.DropLast(); ok {
			c.log.Debugw("dropped span after undo", "seq", s.Seq)
		}
		return 0, nil

	case command.Backspace:
		if err := inj.SendBackspace(1); err != nil {
			return 0, fmt.Errorf("backspace: %w", err)
		}
		hist.TrimChars(1)
		return 1, nil

	case command.DeleteLastWords:
		r := hist.PopLastWords(cmd.Count)
		if r.Words == 0 {
			return 0, tracker.ErrNothingToDelete
		}
		if r.Words < cmd.Count {
			c.log.Infow("fewer words in history than requested", "requested", cmd.Count, "removed", r.Words)
		}
		if err := inj.SendBackspace(r.Chars); err != nil {
			return 0, fmt.Errorf("erase words: %w", err)
		}
		return r.Chars, nil
	}
	return 0, errors.New("unknown command " + cmd.String())
}
