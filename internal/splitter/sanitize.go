package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// normalizeNewlines turns every line break into a space. Block structure comes from markup only.
func normalizeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

// collapse trims s and collapses runs of whitespace to a single space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var asciiReplacements = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "AE", 'œ': "oe", 'Œ': "OE", 'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L", 'đ': "d", 'Đ': "D", 'ð': "d", 'Ð': "D", 'þ': "th", 'Þ': "TH",
	'ı': "i", 'ĸ': "k",
	'‘': "'", '’': "'", '‚': "'", '‛': "'", '“': `"`, '”': `"`, '„': `"`, '«': `"`, '»': `"`,
	'–': "-", '—': "-", '‒': "-", '−': "-", '…': "...", '•': "*", '·': ".",
	'€': "EUR", '£': "GBP", '©': "(c)", '®': "(R)", '™': "TM", '×': "x",
}

// toASCII transliterates s to ASCII. Marks are stripped after decomposition,
// known symbols are mapped and anything else becomes '?'.
func toASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			if rep, ok := asciiReplacements[r]; ok {
				b.WriteString(rep)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}
