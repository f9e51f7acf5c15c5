package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"dictate/internal/db"
	"dictate/internal/dictionary"
	"dictate/internal/record"
	"dictate/internal/snippet"
)

// Printer writes listings, styled when out is a terminal.
type Printer struct {
	out   io.Writer
	color bool
	width int
}

// NewPrinter detects color support and width from out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, color: shouldUseColor(out), width: determineWidth(out)}
}

// NewPlainPrinter never styles output and clips lines at width.
func NewPlainPrinter(out io.Writer, width int) *Printer {
	if width <= 0 {
		width = 80
	}
	return &Printer{out: out, width: width}
}

func shouldUseColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func determineWidth(out io.Writer) int {
	if file, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) line(text string) {
	fmt.Fprintln(p.out, text)
}

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", "⏎")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string([]rune(s)[:n-1]) + "…"
}

func pad(s string, n int) string {
	if gap := n - utf8.RuneCountInString(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// twoColumns lays out key/value rows with the key column capped at a third
// of the width.
func (p *Printer) twoColumns(rows [][2]string, tag func(i int) string) {
	keyWidth := 0
	for _, r := range rows {
		keyWidth = max(keyWidth, utf8.RuneCountInString(r[0]))
	}
	keyWidth = min(keyWidth, p.width/3)
	for i, r := range rows {
		suffix := ""
		if tag != nil {
			suffix = tag(i)
		}
		rest := p.width - keyWidth - 4 - utf8.RuneCountInString(suffix)
		key := pad(clip(r[0], keyWidth), keyWidth)
		p.line(key + "  " + p.style(DimStyle, "→") + " " + clip(r[1], rest) + p.styleTag(suffix))
	}
}

func (p *Printer) styleTag(tag string) string {
	if tag == "" {
		return ""
	}
	return p.style(AutoStyle, tag)
}

// Words lists dictionary entries. Auto-learned entries are tagged.
func (p *Printer) Words(entries []dictionary.Entry) {
	if len(entries) == 0 {
		p.line(p.style(DimStyle, "no words"))
		return
	}
	p.line(p.style(HeaderStyle, fmt.Sprintf("%d words", len(entries))))
	rows := make([][2]string, len(entries))
	for i, e := range entries {
		rows[i] = [2]string{e.Spoken, e.Corrected}
	}
	p.twoColumns(rows, func(i int) string {
		if entries[i].Provenance == dictionary.Auto {
			return " (auto)"
		}
		return ""
	})
}

// Snippets lists snippet triggers and expansions.
func (p *Printer) Snippets(entries []snippet.Entry) {
	if len(entries) == 0 {
		p.line(p.style(DimStyle, "no snippets"))
		return
	}
	p.line(p.style(HeaderStyle, fmt.Sprintf("%d snippets", len(entries))))
	rows := make([][2]string, len(entries))
	for i, e := range entries {
		rows[i] = [2]string{e.Trigger, e.Expansion}
	}
	p.twoColumns(rows, nil)
}

// History lists journal rows, newest first.
func (p *Printer) History(rows []db.Dictation) {
	if len(rows) == 0 {
		p.line(p.style(DimStyle, "no dictations yet"))
		return
	}
	for _, d := range rows {
		stamp := d.CreatedAt.Format("2006-01-02 15:04:05")
		body := d.Final
		switch {
		case d.Command != "":
			body = "[" + d.Command + "]"
		case d.EditSkipped:
			body += " (unedited)"
		}
		head := stamp + "  " + fmt.Sprintf("%5.1fs", d.AudioDuration.Seconds()) + "  "
		p.line(p.style(DimStyle, head) + clip(body, p.width-utf8.RuneCountInString(head)))
	}
}

// Devices lists audio input devices.
func (p *Printer) Devices(devices []record.DeviceInfo) {
	if len(devices) == 0 {
		p.line(p.style(DimStyle, "no input devices"))
		return
	}
	for _, d := range devices {
		mark := "  "
		if d.Default {
			mark = p.style(SuccessStyle, "* ")
		}
		info := fmt.Sprintf("[%d] %s (%s, %d ch, %.0f Hz)", d.Index, d.Name, d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
		p.line(mark + clip(info, p.width-2))
	}
}

// Done prints a short success message.
func (p *Printer) Done(msg string) {
	p.line(p.style(SuccessStyle, msg))
}

// Error prints err.
func (p *Printer) Error(err error) {
	p.line(p.style(ErrorStyle, "error: ") + err.Error())
}
