package search

import (
	"strconv"
	"strings"
)

// decodeQuery extracts the value of q (up to the first &) from a raw query
// or form-body string, percent-decoding %HH pairs byte-wise and leaving
// malformed %-sequences as literal text. If isForm is true, '+' is replaced
// with ' ' before percent-decoding, matching application/x-www-form-urlencoded
// bodies.
func decodeQuery(raw string, isForm bool) string {
	q := extractParam(raw, "q")
	if isForm {
		q = strings.ReplaceAll(q, "+", " ")
	}
	return percentDecode(q)
}

// extractParam pulls the value following "key=" up to the next '&'.
func extractParam(raw, key string) string {
	prefix := key + "="
	idx := strings.Index(raw, prefix)
	if idx == -1 {
		return ""
	}
	value := raw[idx+len(prefix):]
	if amp := strings.Index(value, "&"); amp != -1 {
		value = value[:amp]
	}
	return value
}

// percentDecode decodes %HH byte sequences, leaving any malformed %
// sequence (not followed by two hex digits) as literal text.
func percentDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// tokenize implements the front-end's own query tokenization rule, distinct
// from htmlx.ExtractWords: split on ASCII whitespace, strip non-alphanumerics
// from each word before lowercasing, then keep tokens of length [3,32]. This
// is deliberately not unified with the crawler's tokenizer (which requires
// 70% alphabetic characters rather than stripping to pure alphanumerics) so
// that query terms the crawler's filter would reject — e.g. "f00bar" — remain
// independently searchable.
func tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		var b strings.Builder
		for _, r := range f {
			switch {
			case r >= 'a' && r <= 'z':
				b.WriteRune(r)
			case r >= 'A' && r <= 'Z':
				b.WriteRune(r - 'A' + 'a')
			case r >= '0' && r <= '9':
				b.WriteRune(r)
			}
		}
		clean := b.String()
		if len(clean) >= 3 && len(clean) <= 32 {
			tokens = append(tokens, clean)
		}
	}
	return tokens
}
