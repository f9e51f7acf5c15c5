package hotkey

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseChord(t *testing.T) {
	cases := map[string]Chord{
		"alt+q":              {Spec: "alt+q", Mods: ModAlt, VK: 'Q'},
		"Ctrl+Shift+F1":      {Spec: "ctrl+shift+f1", Mods: ModCtrl | ModShift, VK: 0x70},
		"esc":                {Spec: "esc", VK: 0x1B},
		"ctrl + shift+space": {Spec: "ctrl+shift+space", Mods: ModCtrl | ModShift, VK: 0x20},
		"win+numpad5":        {Spec: "win+numpad5", Mods: ModWin, VK: 0x65},
		"f24":                {Spec: "f24", VK: 0x87},
		"ctrl+7":             {Spec: "ctrl+7", Mods: ModCtrl, VK: '7'},
	}
	for in, want := range cases {
		got, err := ParseChord(in)
		if err != nil {
			t.Fatalf("ParseChord(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseChord(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestParseChordRejects(t *testing.T) {
	for _, in := range []string{"", "ctrl+", "hyper+a", "f25", "ctrl+banana"} {
		if _, err := ParseChord(in); err == nil {
			t.Fatalf("ParseChord(%q) should fail", in)
		}
	}
}

func collect(t *testing.T, ch <-chan Event) []Kind {
	t.Helper()
	var kinds []Kind
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return kinds
			}
			kinds = append(kinds, ev.Kind)
		case <-timeout:
			t.Fatalf("line monitor did not close")
		}
	}
}

func TestLineMonitorAlternates(t *testing.T) {
	ch := LineMonitor(context.Background(), strings.NewReader("\n\n\n"), false, nil)
	got := collect(t, ch)
	want := []Kind{Down, Up, Down}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLineMonitorPulse(t *testing.T) {
	ch := LineMonitor(context.Background(), strings.NewReader("go\nstop\n"), true, nil)
	got := collect(t, ch)
	want := []Kind{Down, Up, Down, Up}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLineMonitorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := LineMonitor(ctx, strings.NewReader(strings.Repeat("\n", 100)), false, nil)
	if n := len(collect(t, ch)); n != 0 {
		t.Fatalf("monitor kept sending after cancel: %d events", n)
	}
}

func TestSenderCoalescesRepeats(t *testing.T) {
	out := make(chan Event, 16)
	s := newSender(out, nil)
	s.down()
	s.down()
	s.down()
	s.up()
	s.up()
	close(out)

	var kinds []Kind
	for ev := range out {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 2 || kinds[0] != Down || kinds[1] != Up {
		t.Fatalf("expected Down, Up; got %v", kinds)
	}
}

func TestSenderKeepsReleaseWhenFull(t *testing.T) {
	out := make(chan Event, 1)
	s := newSender(out, nil)
	s.wait = 2 * time.Second

	out <- Event{Kind: Up}
	s.down()
	if !s.held {
		t.Fatalf("press must be tracked even when its event is dropped")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		<-out
	}()
	s.up()
	select {
	case ev := <-out:
		if ev.Kind != Up {
			t.Fatalf("expected the release, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("release was dropped")
	}
}

func TestSenderGivesUpOnStuckConsumer(t *testing.T) {
	out := make(chan Event)
	s := newSender(out, nil)
	s.wait = 20 * time.Millisecond
	s.held = true

	start := time.Now()
	s.up()
	if time.Since(start) > time.Second {
		t.Fatalf("up must not block past its wait")
	}
	if s.held {
		t.Fatalf("release must clear the held state")
	}
}
