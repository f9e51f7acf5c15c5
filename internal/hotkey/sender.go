package hotkey

import (
	"time"

	"go.uber.org/zap"

	"dictate/internal/logging"
)

// upWait bounds how long a key-up may wait for room in the channel. It stays
// below the system's low-level hook timeout.
const upWait = 200 * time.Millisecond

// sender turns raw key edges into chord events. Auto-repeat key-downs are
// coalesced into the first one. A key-down is dropped when the consumer is
// behind; a key-up waits for room, since losing it would leave a hold
// recording running until the ceiling.
type sender struct {
	out  chan Event
	held bool
	wait time.Duration
	log  *zap.SugaredLogger
}

func newSender(out chan Event, log *zap.SugaredLogger) *sender {
	return &sender{out: out, wait: upWait, log: logging.OrNop(log)}
}

func (s *sender) down() {
	if s.held {
		return
	}
	s.held = true
	select {
	case s.out <- Event{Kind: Down, At: time.Now()}:
	default:
		s.log.Warnw("chord press dropped, consumer is behind")
	}
}

func (s *sender) up() {
	if !s.held {
		return
	}
	s.held = false
	ev := Event{Kind: Up, At: time.Now()}
	select {
	case s.out <- ev:
		return
	default:
	}
	timer := time.NewTimer(s.wait)
	defer timer.Stop()
	select {
	case s.out <- ev:
	case <-timer.C:
		s.log.Errorw("chord release dropped, consumer is stuck", "waited", s.wait)
	}
}
