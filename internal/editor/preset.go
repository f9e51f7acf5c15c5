package editor

import (
	"fmt"
	"strings"
)

// Preset selects the rewrite profile handed to an AI provider.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetEmail   Preset = "email"
	PresetCode    Preset = "code"
	PresetNotes   Preset = "notes"
	PresetCommit  Preset = "commit"
)

var presetPrompts = map[Preset]string{
	PresetDefault: `Clean up this transcribed speech. Fix grammar, remove filler words,
add proper punctuation and capitalization. Keep the meaning and tone intact.
Return ONLY the cleaned text, nothing else.

Text: {text}`,
	PresetEmail: `Convert this transcribed speech into a professional email.
Fix grammar, structure it properly with greeting/body/closing if appropriate.
Be concise but complete. Return ONLY the email text, nothing else.

Text: {text}`,
	PresetCommit: `Convert this transcribed speech into a concise git commit message.
Follow conventional commit format if possible (feat:, fix:, docs:, etc.).
Keep it under 72 characters for the first line. Return ONLY the commit message.

Text: {text}`,
	PresetNotes: `Clean up this transcribed speech into well-formatted notes.
Use bullet points where appropriate. Fix grammar and organize logically.
Return ONLY the formatted notes, nothing else.

Text: {text}`,
	PresetCode: `Convert this transcribed speech into code or a code comment.
If it's describing code, write the code. If it's explaining something,
make it a clear comment. Return ONLY the code/comment, nothing else.

Text: {text}`,
}

// Presets lists the known presets in display order.
func Presets() []Preset {
	return []Preset{PresetDefault, PresetEmail, PresetCode, PresetNotes, PresetCommit}
}

// ParsePreset accepts a preset name case-insensitively. An empty name is the
// default preset.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PresetDefault, nil
	}
	if _, ok := presetPrompts[p]; !ok {
		return "", fmt.Errorf("unknown preset %q", s)
	}
	return p, nil
}

// BuildPrompt renders the prompt for text. A custom prompt replaces the
// preset's; "{text}" marks where the transcript goes, and a prompt without
// the marker gets the transcript appended.
func BuildPrompt(text string, preset Preset, customPrompt string) string {
	tmpl := strings.TrimSpace(customPrompt)
	if tmpl == "" {
		var ok bool
		if tmpl, ok = presetPrompts[preset]; !ok {
			tmpl = presetPrompts[PresetDefault]
		}
	}
	if !strings.Contains(tmpl, "{text}") {
		return tmpl + "\n\nText: " + text
	}
	return strings.ReplaceAll(tmpl, "{text}", text)
}
