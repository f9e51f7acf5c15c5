// Package notify shows desktop notifications for dictation events.
package notify

import (
	"errors"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"dictate/internal/asr"
	"dictate/internal/dictation"
	"dictate/internal/logging"
	"dictate/internal/record"
	"dictate/internal/tracker"
)

const title = "Dictate"

var _ dictation.Observer = (*Notifier)(nil)

// Notifier is a dictation.Observer that raises desktop notifications.
type Notifier struct {
	send func(title, message string) error
	log  *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Notifier {
	return &Notifier{
		send: func(t, m string) error { return beeep.Notify(t, m, "") },
		log:  logging.OrNop(log),
	}
}

func (n *Notifier) notify(message string) {
	if err := n.send(title, message); err != nil {
		n.log.Debugw("notification failed", "error", err)
	}
}

func (n *Notifier) StateChanged(from, to dictation.State) {
	switch {
	case to == dictation.Recording:
		n.notify("Recording started")
	case from == dictation.Recording && to == dictation.Transcribing:
		n.notify("Recording finished")
	}
}

func (n *Notifier) Finished(res dictation.Result) {
	if res.IsCommand() {
		n.notify("Command: " + res.Command.String())
		return
	}
	if res.EditSkipped {
		n.notify("Typed without AI edit")
		return
	}
	n.notify("Paste success")
}

func (n *Notifier) Failed(err error) {
	switch {
	case errors.Is(err, record.ErrCaptureUnavailable):
		n.notify("Microphone unavailable")
	case errors.Is(err, asr.ErrTranscriptionFailed):
		n.notify("Transcription failed")
	case errors.Is(err, tracker.ErrNothingToDelete):
		n.notify("Nothing to delete")
	default:
		n.notify("Dictation failed")
	}
}
