package ui

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"dictate/internal/asr"
	"dictate/internal/dictation"
)

// Status prints one line per dictation event. It is a dictation.Observer.
type Status struct {
	mu sync.Mutex
	p  *Printer
}

var _ dictation.Observer = (*Status)(nil)

func NewStatus(out io.Writer) *Status {
	return &Status{p: NewPrinter(out)}
}

func (s *Status) print(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.line(text)
}

func (s *Status) StateChanged(_, to dictation.State) {
	switch to {
	case dictation.Recording:
		s.print(s.p.style(RecordingDotStyle, "●") + " recording")
	case dictation.Transcribing:
		s.print(s.p.style(BusyDotStyle, "●") + " transcribing")
	case dictation.Idle:
		s.print(s.p.style(IdleDotStyle, "○") + " ready")
	}
}

func (s *Status) Finished(res dictation.Result) {
	if res.IsCommand() {
		s.print(s.p.style(SuccessStyle, "✓") + " " + res.Command.String())
		return
	}
	msg := fmt.Sprintf("%s %s", s.p.style(SuccessStyle, "✓"), clip(res.Final, s.p.width-2))
	if res.EditSkipped {
		msg += s.p.style(DimStyle, " (unedited)")
	}
	s.print(msg)
}

func (s *Status) Failed(err error) {
	if errors.Is(err, asr.ErrEmptyInput) {
		return
	}
	s.print(s.p.style(ErrorStyle, "✗") + " " + err.Error())
}
