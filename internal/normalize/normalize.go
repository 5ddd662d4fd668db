// Package normalize canonicalizes raw document text before any matching:
// Unicode compatibility folding, bidi-control stripping, whitespace cleanup
// and decimal/thousands separator unification.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	arabicDecimalSeparator   = '\u066b'
	arabicThousandsSeparator = '\u066c'
	arabicTatweel            = '\u0640'
)

// Normalize applies, in order: NFKC folding, removal of invisible and
// bidirectional control characters, whitespace collapsing and separator
// unification. The result is stable: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	// Stripping tatweel or joiners can leave canonically composable
	// sequences behind, hence the second pass.
	s := norm.NFKC.String(stripControls(norm.NFKC.String(raw)))
	s = collapseWhitespace(s)
	return unifySeparators(s)
}

// Cell normalizes a single table cell. Cells are single-line values, so line
// breaks inside a cell become spaces.
func Cell(raw string) string {
	s := Normalize(raw)
	if strings.IndexByte(s, '\n') < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\n", " ")
}

// stripControls drops bidi marks, zero-width characters and tatweel, turns
// every space-like rune into a plain space and maps Arabic-Indic digits and
// dash variants onto their ASCII forms.
func stripControls(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isBidiControl(r), isZeroWidth(r), r == arabicTatweel:
			continue
		case r == '\r' || r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= '\u0660' && r <= '\u0669':
			b.WriteRune('0' + (r - '\u0660'))
		case r >= '\u06f0' && r <= '\u06f9':
			b.WriteRune('0' + (r - '\u06f0'))
		case isDash(r):
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBidiControl(r rune) bool {
	switch {
	case r == '\u200e', r == '\u200f', r == '\u061c':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

func isZeroWidth(r rune) bool {
	return r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\u2060' || r == '\ufeff'
}

func isDash(r rune) bool {
	return (r >= '\u2010' && r <= '\u2015') || r == '\u2212' || r == '\ufe63'
}

// collapseWhitespace turns CR/CRLF into LF, squeezes horizontal whitespace,
// trims every line and drops blank lines.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// unifySeparators rewrites locale-specific separators so that the only
// decimal point is '.' and digit groups carry no thousands separator.
func unifySeparators(s string) string {
	if !strings.ContainsAny(s, ",\u066b\u066c") {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		switch r {
		case arabicDecimalSeparator:
			b.WriteByte('.')
		case arabicThousandsSeparator:
			switch {
			case groupsThousands(runes, i):
			case betweenDigits(runes, i):
				b.WriteByte('.')
			default:
				b.WriteRune(r)
			}
		case ',':
			if !groupsThousands(runes, i) {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// groupsThousands reports whether the separator at i sits between a digit and
// a group of exactly three digits.
func groupsThousands(runes []rune, i int) bool {
	if i == 0 || !isDigit(runes[i-1]) || i+3 >= len(runes) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if !isDigit(runes[j]) {
			return false
		}
	}
	return i+4 >= len(runes) || !isDigit(runes[i+4])
}

func betweenDigits(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1])
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsNumeric reports whether a normalized string is a plain decimal number
// such as "12" or "2.5". Inner spaces are ignored.
func IsNumeric(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return false
	}
	dot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot && i > 0 && i < len(s)-1:
			dot = true
		default:
			return false
		}
	}
	return true
}
