package sechat

import (
	"strings"
	"unicode/utf8"
)

// SplitStrategy selects how a message longer than the service's length cap
// is broken into wire parts before sending.
type SplitStrategy int

const (
	// SplitNone sends one part, truncated to exactly the cap.
	SplitNone SplitStrategy = iota

	// SplitWord breaks at spaces; every non-final part ends in "..." and
	// fits the cap. When no space exists before the cap the break is hard.
	SplitWord

	// SplitNewline breaks only at newlines. A single line longer than the
	// cap is kept verbatim as its own part.
	SplitNewline
)

// DefaultMaxMessageLength is the service's single-line message cap.
const DefaultMaxMessageLength = 500

const partEllipsis = "..."

// Split breaks text into wire parts of at most max characters according to
// the strategy. Text already within the cap is returned as a single part
// unchanged.
func Split(text string, max int, strategy SplitStrategy) []string {
	if len(text) <= max {
		return []string{text}
	}

	switch strategy {
	case SplitNewline:
		return splitNewline(text, max)
	case SplitWord:
		return splitWord(text, max)
	default:
		return []string{text[:runeSafeCut(text, max)]}
	}
}

// runeSafeCut returns the largest cut point at or below max that does not
// split a multibyte rune. Invalid UTF-8 with no boundary above zero gets
// the plain byte cut.
func runeSafeCut(s string, max int) int {
	if len(s) <= max {
		return len(s)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

func splitNewline(text string, max int) []string {
	var parts []string
	cur := ""
	for _, line := range strings.Split(text, "\n") {
		switch {
		case cur == "":
			cur = line
		case len(cur)+1+len(line) <= max:
			cur += "\n" + line
		default:
			parts = append(parts, cur)
			cur = line
		}
	}
	return append(parts, cur)
}

func splitWord(text string, max int) []string {
	var parts []string
	rest := text
	for len(rest) > max {
		// A non-final part carries the ellipsis, so the cut must leave
		// room for it.
		cut := max - len(partEllipsis)
		idx := strings.LastIndex(rest[:cut+1], " ")
		if idx <= 0 {
			cut = runeSafeCut(rest, cut)
			parts = append(parts, rest[:cut]+partEllipsis)
			rest = rest[cut:]
			continue
		}
		parts = append(parts, rest[:idx]+partEllipsis)
		rest = rest[idx+1:]
	}
	return append(parts, rest)
}
