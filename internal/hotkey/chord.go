// Package hotkey reports presses and releases of the dictation chord.
package hotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned by Listen on platforms without a keyboard hook.
var ErrUnsupported = errors.New("global hotkey not supported on this platform")

// Modifier bits, matching the Win32 MOD_* values.
const (
	ModAlt   uint32 = 0x0001
	ModCtrl  uint32 = 0x0002
	ModShift uint32 = 0x0004
	ModWin   uint32 = 0x0008
)

// Kind is the edge of a chord event.
type Kind int

const (
	Down Kind = iota
	Up
)

func (k Kind) String() string {
	if k == Up {
		return "up"
	}
	return "down"
}

// Event is one chord edge. Key-down events repeat while the chord is held.
type Event struct {
	Kind Kind
	At   time.Time
}

// Chord is a parsed key combination.
type Chord struct {
	Spec string
	Mods uint32
	VK   uint32
}

func (c Chord) String() string { return c.Spec }

var namedKeys = map[string]uint32{
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"enter":     0x0D,
	"return":    0x0D,
	"tab":       0x09,
	"backspace": 0x08,
	"insert":    0x2D,
	"delete":    0x2E,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"add":       0x6B,
	"plus":      0x6B,
	"kpadd":     0x6B,
	"subtract":  0x6D,
	"minus":     0x6D,
	"capslock":  0x14,
	"pause":     0x13,
	"scroll":    0x91,
}

// ParseChord accepts strings like "alt+q", "ctrl+shift+F1" or "esc".
func ParseChord(s string) (Chord, error) {
	spec := strings.TrimSpace(s)
	if spec == "" {
		return Chord{}, fmt.Errorf("empty hotkey")
	}
	parts := strings.Split(spec, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}

	c := Chord{Spec: strings.Join(parts, "+")}
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "alt", "menu":
			c.Mods |= ModAlt
		case "ctrl", "control":
			c.Mods |= ModCtrl
		case "shift":
			c.Mods |= ModShift
		case "win", "meta", "super":
			c.Mods |= ModWin
		default:
			return Chord{}, fmt.Errorf("unsupported modifier %q in %q", p, s)
		}
	}

	vk, err := keyCode(parts[len(parts)-1])
	if err != nil {
		return Chord{}, fmt.Errorf("invalid hotkey %q: %w", s, err)
	}
	c.VK = vk
	return c, nil
}

func keyCode(tok string) (uint32, error) {
	if len(tok) == 1 {
		ch := tok[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return uint32(ch - 'a' + 'A'), nil
		case ch >= '0' && ch <= '9':
			return uint32(ch), nil
		}
	}
	if v, ok := namedKeys[tok]; ok {
		return v, nil
	}
	if n, ok := numberAfter(tok, "f"); ok && n >= 1 && n <= 24 {
		return 0x70 + uint32(n-1), nil
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if n, ok := numberAfter(tok, prefix); ok && n >= 0 && n <= 9 {
			return 0x60 + uint32(n), nil
		}
	}
	return 0, fmt.Errorf("unsupported key token %q", tok)
}

func numberAfter(tok, prefix string) (int, bool) {
	if !strings.HasPrefix(tok, prefix) || len(tok) == len(prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(tok[len(prefix):])
	return n, err == nil
}
