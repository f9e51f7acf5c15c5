//go:build !windows

package hotkey

import (
	"context"

	"go.uber.org/zap"
)

// Listen is not supported on non-Windows builds; use LineMonitor.
func Listen(ctx context.Context, chord Chord, log *zap.SugaredLogger) (<-chan Event, error) {
	return nil, ErrUnsupported
}
