package utils

import "strings"

const (
	// DefaultMaskShowChars is how many characters Mask keeps at each end.
	DefaultMaskShowChars = 4

	maskRune   = '•'
	maxMaskRun = 20
)

// MaskPlaceholder is returned for values too short to reveal any part of.
var MaskPlaceholder = strings.Repeat(string(maskRune), 8)

// Mask renders a secret for display, keeping the first and last four characters.
func Mask(value string) string {
	return MaskWith(value, DefaultMaskShowChars)
}

// MaskWith keeps showChars characters at each end of value and replaces the
// middle with a run of mask characters capped at 20, so the output does not
// encode the true length of long secrets. Values of 2*showChars characters or
// fewer collapse to MaskPlaceholder.
func MaskWith(value string, showChars int) string {
	if showChars < 0 {
		showChars = 0
	}
	runes := []rune(value)
	// Compared without multiplying so huge widths cannot overflow.
	if showChars >= len(runes) || len(runes)-showChars <= showChars {
		return MaskPlaceholder
	}

	hidden := min(len(runes)-2*showChars, maxMaskRun)

	var b strings.Builder
	b.Grow(len(value))
	b.WriteString(string(runes[:showChars]))
	b.WriteString(strings.Repeat(string(maskRune), hidden))
	b.WriteString(string(runes[len(runes)-showChars:]))
	return b.String()
}
