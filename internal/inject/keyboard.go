//go:build windows || linux

package inject

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
	"go.uber.org/zap"

	"dictate/internal/logging"
)

// Keyboard pastes text through the clipboard and sends editing keys. The
// previous clipboard contents are restored after each paste.
type Keyboard struct {
	kb           keybd_event.KeyBonding
	pasteDelay   time.Duration
	restoreDelay time.Duration
	log          *zap.SugaredLogger
}

// NewKeyboard opens the virtual keyboard.
func NewKeyboard(log *zap.SugaredLogger) (*Keyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("open virtual keyboard: %w", err)
	}
	return &Keyboard{
		kb:           kb,
		pasteDelay:   80 * time.Millisecond,
		restoreDelay: 120 * time.Millisecond,
		log:          logging.OrNop(log),
	}, nil
}

func (k *Keyboard) TypeText(text string) error {
	if text == "" {
		return nil
	}
	if OnlyNewlines(text) {
		for _, r := range text {
			if r == '\n' {
				if err := k.press(false, keybd_event.VK_ENTER); err != nil {
					return err
				}
			}
		}
		return nil
	}

	orig, readErr := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	time.Sleep(k.pasteDelay)

	err := k.press(true, keybd_event.VK_V)
	time.Sleep(k.restoreDelay)
	if readErr == nil {
		if rerr := clipboard.WriteAll(orig); rerr != nil {
			k.log.Warnw("restore clipboard failed", "error", rerr)
		}
	}
	if err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	return nil
}

func (k *Keyboard) SendUndo() error {
	if err := k.press(true, keybd_event.VK_Z); err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	return nil
}

func (k *Keyboard) SendBackspace(count int) error {
	for i := 0; i < count; i++ {
		if err := k.press(false, keybd_event.VK_BACKSPACE); err != nil {
			return fmt.Errorf("backspace: %w", err)
		}
	}
	return nil
}

func (k *Keyboard) press(ctrl bool, key int) error {
	k.kb.Clear()
	k.kb.HasCTRL(ctrl)
	k.kb.SetKeys(key)
	return k.kb.Launching()
}
