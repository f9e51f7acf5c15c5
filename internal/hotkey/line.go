package hotkey

import (
	"bufio"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"dictate/internal/logging"
)

// LineMonitor turns lines read from r into chord events, for terminals and
// platforms without a global hook. Lines alternate between Down and Up. With
// pulse set every line is a full press, a Down followed by an Up, which is
// what toggle mode expects. The channel closes at EOF or when ctx is done.
func LineMonitor(ctx context.Context, r io.Reader, pulse bool, log *zap.SugaredLogger) <-chan Event {
	log = logging.OrNop(log)
	out := make(chan Event, 4)
	go func() {
		defer close(out)
		send := func(k Kind) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case out <- Event{Kind: k, At: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(r)
		held := false
		for scanner.Scan() {
			if pulse {
				if !send(Down) || !send(Up) {
					return
				}
				continue
			}
			next := Down
			if held {
				next = Up
			}
			if !send(next) {
				return
			}
			held = !held
		}
		if err := scanner.Err(); err != nil {
			log.Warnw("line monitor read failed", "error", err)
		}
	}()
	return out
}
