package membership

import (
	"fmt"
	"strings"
	"unicode"
)

// fallbackAbbreviation is used when a name has no letters or digits.
const fallbackAbbreviation = "GRP"

// Abbreviation derives the member-number prefix from a group name.
//
//	three or more words: initials of the first three
//	two words:           first two characters of word one + first of word two
//	one word:            first three characters
//
// Only letters and digits count; the result is upper-cased.
func Abbreviation(name string) string {
	var words [][]rune
	for _, f := range strings.Fields(name) {
		var w []rune
		for _, r := range f {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				w = append(w, unicode.ToUpper(r))
			}
		}
		if len(w) > 0 {
			words = append(words, w)
		}
	}

	var out []rune
	switch {
	case len(words) >= 3:
		out = []rune{words[0][0], words[1][0], words[2][0]}
	case len(words) == 2:
		out = append(out, words[0][:min(2, len(words[0]))]...)
		out = append(out, words[1][0])
	case len(words) == 1:
		out = words[0][:min(3, len(words[0]))]
	default:
		return fallbackAbbreviation
	}
	return string(out)
}

// MemberNumber formats the seq-th member number of a group, e.g. LSC-007.
func MemberNumber(abbr string, seq int64) string {
	return fmt.Sprintf("%s-%03d", abbr, seq)
}
