package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips diacritics so "PADARIA SÃO JOSÉ" and
// "padaria sao jose" match the same keywords.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func containsAny(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

// tokens splits folded text into alphanumeric words.
func tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// similarDescriptions treats equal text, containment, or a token Jaccard
// index at or above minJaccard as the same description.
func similarDescriptions(a, b string, minJaccard float64) bool {
	fa, fb := fold(a), fold(b)
	if fa == "" || fb == "" {
		return false
	}
	if fa == fb || strings.Contains(fa, fb) || strings.Contains(fb, fa) {
		return true
	}
	ta, tb := tokens(a), tokens(b)
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return false
	}
	return float64(inter)/float64(union) >= minJaccard
}

var transferNoise = map[string]bool{
	"pix": true, "enviado": true, "enviada": true, "env": true, "transf": true,
	"transferencia": true, "ted": true, "doc": true, "para": true, "qr": true,
	"code": true, "chave": true, "pagamento": true, "pgto": true, "de": true,
	"da": true, "do": true,
}

// recipientKey normalizes the counterpart of a transfer: folded, without
// transfer vocabulary, digits or punctuation.
func recipientKey(detalhes, description string) string {
	src := detalhes
	if strings.TrimSpace(src) == "" {
		src = description
	}
	words := strings.FieldsFunc(fold(src), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	kept := words[:0]
	for _, w := range words {
		if transferNoise[w] || len(w) < 2 {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
