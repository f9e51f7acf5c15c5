package editor

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bum+\b`),
	regexp.MustCompile(`(?i)\buh+\b`),
	regexp.MustCompile(`(?i)\byou know\b`),
	regexp.MustCompile(`(?i)\bi mean\b`),
	regexp.MustCompile(`(?i)\bkind of\b`),
	regexp.MustCompile(`(?i)\bsort of\b`),
	regexp.MustCompile(`(?i)\bbasically\b`),
	regexp.MustCompile(`(?i)\bactually\b`),
	regexp.MustCompile(`(?i)\bliterally\b`),
	regexp.MustCompile(`(?i)\bhonestly\b`),
}

var (
	// "like," is filler, "I like it" is not.
	fillerLike       = regexp.MustCompile(`(?i)\blike(\s*,)`)
	multiSpace       = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
	repeatedComma    = regexp.MustCompile(`,(\s*,)+`)
	leadingComma     = regexp.MustCompile(`^[\s,]+`)
	missingSpace     = regexp.MustCompile(`([,!?;:])(\pL)`)
	missingSentSpace = regexp.MustCompile(`(\.)(\p{Lu})`)
)

// Basic is the rule-based provider. It needs no network and ignores the
// preset.
type Basic struct{}

func (Basic) Edit(_ context.Context, text string, _ Preset, _ string) (string, error) {
	return Cleanup(text), nil
}

// Cleanup removes filler words, normalizes spacing around punctuation,
// capitalizes the first letter and ends the text with a period when it has
// no final punctuation.
func Cleanup(text string) string {
	out := fillerLike.ReplaceAllString(text, "$1")
	for _, re := range fillerPatterns {
		out = re.ReplaceAllString(out, "")
	}
	out = multiSpace.ReplaceAllString(out, " ")
	out = spaceBeforePunct.ReplaceAllString(out, "$1")
	out = repeatedComma.ReplaceAllString(out, ",")
	out = leadingComma.ReplaceAllString(out, "")
	out = missingSpace.ReplaceAllString(out, "$1 $2")
	out = missingSentSpace.ReplaceAllString(out, "$1 $2")
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, ",")
	if out == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(out)
	out = string(unicode.ToUpper(r)) + out[size:]
	if !strings.ContainsAny(out[len(out)-1:], ".!?") {
		out += "."
	}
	return out
}
