package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxNameLength is the rune limit of a document base name.
	DefaultMaxNameLength = 100

	// Untitled replaces names that sanitize to nothing.
	Untitled = "untitled"
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// reservedNames cannot be used as file names on Windows.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize turns name into a portable file base name of at most maxLen runes
// (DefaultMaxNameLength when maxLen <= 0). It strips markup tags, the
// characters <>:"/\|?* and control characters, normalizes to NFC, collapses
// whitespace and never returns an empty string. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}

	s := markupTag.ReplaceAllString(name, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = trimEdges(s)

	if utf8.RuneCountInString(s) > maxLen {
		s = trimEdges(string([]rune(s)[:maxLen]))
	}
	if s == "" {
		return Untitled
	}
	if reservedNames[strings.ToUpper(s)] {
		s += "_"
	}
	return s
}

// trimEdges removes leading and trailing spaces and dots.
func trimEdges(s string) string {
	return strings.Trim(s, " .")
}
