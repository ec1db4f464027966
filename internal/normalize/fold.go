package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FoldName reduces a person's name to its matching form: accents removed,
// lower case, inner whitespace collapsed. "  José  PÉREZ" and "jose perez"
// fold to the same value.
func FoldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(stripAccents(name))), " ")
}

// FoldHeader reduces a column header to its lookup form: accents removed,
// lower case, runs of anything but letters and digits replaced by a single
// "_" and trimmed. "Hora Inicio (h)" folds to "hora_inicio_h".
func FoldHeader(h string) string {
	h = strings.ToLower(stripAccents(h))
	var b strings.Builder
	pendingSep := false
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
