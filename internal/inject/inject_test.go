package inject

import (
	"bytes"
	"testing"
)

func TestMemoryEditing(t *testing.T) {
	m := &Memory{}
	_ = m.TypeText("hello world")
	_ = m.SendBackspace(6)
	if m.Text() != "hello" {
		t.Fatalf("expected hello, got %q", m.Text())
	}
	_ = m.TypeText(" there")
	_ = m.SendUndo()
	if m.Text() != "hello" {
		t.Fatalf("undo should revert the last paste, got %q", m.Text())
	}
	_ = m.SendBackspace(99)
	if m.Text() != "" {
		t.Fatalf("expected empty field, got %q", m.Text())
	}
	if len(m.Calls) != 5 {
		t.Fatalf("expected 5 recorded calls, got %v", m.Calls)
	}
}

func TestOnlyNewlines(t *testing.T) {
	if !OnlyNewlines("\n\n") || !OnlyNewlines("\r\n") {
		t.Fatalf("expected newline-only text")
	}
	if OnlyNewlines("") || OnlyNewlines("a\n") {
		t.Fatalf("unexpected newline-only result")
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{W: &buf}
	_ = c.TypeText("héllo")
	_ = c.SendBackspace(2)
	_ = c.SendUndo()
	want := "héllo" + "\b \b\b \b" + "\b \b\b \b\b \b\b \b\b \b"
	if buf.String() != want {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}
