//go:build !windows && !linux

package inject

import (
	"fmt"

	"go.uber.org/zap"
)

// Keyboard is unavailable on this platform.
type Keyboard struct{}

func NewKeyboard(_ *zap.SugaredLogger) (*Keyboard, error) {
	return nil, fmt.Errorf("%w: no virtual keyboard on this platform", ErrUnsupported)
}

func (*Keyboard) TypeText(string) error   { return ErrUnsupported }
func (*Keyboard) SendUndo() error         { return ErrUnsupported }
func (*Keyboard) SendBackspace(int) error { return ErrUnsupported }
