// Package htmlx implements the crawler's text-extraction and tokenization
// pipeline: HTML in, plain text and word tokens out. It is deliberately not
// built on a general HTML tokenizer — the source program this was distilled
// from works by ordered regex/string passes over raw markup, including a
// defined behavior for unmatched opening tags, and the round-trip law
// extract_text(extract_text(h)) == extract_text(h) depends on reproducing
// that exact ordering rather than "well-formed HTML" semantics.
package htmlx

import (
	"regexp"
	"strings"
)

var (
	scriptOpen = regexp.MustCompile(`(?i)<script[^>]*>`)
	styleOpen  = regexp.MustCompile(`(?i)<style[^>]*>`)
	anyTag     = regexp.MustCompile(`<[^>]*>`)
	titleOpen  = regexp.MustCompile(`(?i)<title[^>]*>`)
	titleClose = regexp.MustCompile(`(?i)</title>`)
	linkTag    = regexp.MustCompile(`(?i)<a\s+[^>]*href\s*=\s*"([^"]*)"[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// entity decode order: nbsp, lt, gt, quot before amp, so that a literal
// "&amp;lt;" in the source (an escaped ampersand followed by "lt;") decodes
// to "&lt;" rather than being unescaped twice into "<".
var entities = []struct {
	encoded string
	decoded string
}{
	{"&nbsp;", " "},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", "\""},
	{"&amp;", "&"},
}

// ExtractText converts raw HTML into normalized plain text: comments and
// script/style blocks are dropped entirely, remaining tags are blanked,
// the minimal entity set is decoded, and whitespace is collapsed.
func ExtractText(html string) string {
	s := stripComments(html)
	s = stripBlock(s, scriptOpen, "</script>")
	s = stripBlock(s, styleOpen, "</style>")
	s = anyTag.ReplaceAllString(s, " ")
	s = decodeEntities(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripComments removes <!-- ... --> blocks. An unmatched opener truncates
// the remainder of the document, matching the source parser's behavior.
func stripComments(s string) string {
	for {
		start := strings.Index(s, "<!--")
		if start == -1 {
			return s
		}
		rest := s[start+4:]
		end := strings.Index(rest, "-->")
		if end == -1 {
			return s[:start]
		}
		s = s[:start] + rest[end+3:]
	}
}

// stripBlock removes every occurrence of a tag matched by open through its
// case-insensitive closing tag. An opener with no matching closer truncates
// the remainder of the document.
func stripBlock(s string, open *regexp.Regexp, closeTag string) string {
	for {
		loc := open.FindStringIndex(s)
		if loc == nil {
			return s
		}
		start, afterOpen := loc[0], loc[1]
		idx := strings.Index(strings.ToLower(s[afterOpen:]), closeTag)
		if idx == -1 {
			return s[:start]
		}
		endOfClose := afterOpen + idx + len(closeTag)
		s = s[:start] + s[endOfClose:]
	}
}

func decodeEntities(s string) string {
	for _, e := range entities {
		s = strings.ReplaceAll(s, e.encoded, e.decoded)
	}
	return s
}

// GetTitle returns the text between the first <title> and the following
// </title>, or "" if either marker is absent.
func GetTitle(html string) string {
	openLoc := titleOpen.FindStringIndex(html)
	if openLoc == nil {
		return ""
	}
	closeLoc := titleClose.FindStringIndex(html[openLoc[1]:])
	if closeLoc == nil {
		return ""
	}
	return html[openLoc[1] : openLoc[1]+closeLoc[0]]
}

// ExtractLinks finds every href value inside an <a ...> tag and resolves it
// against baseURL per the scheme/absolute-path/relative-path rules.
func ExtractLinks(html, baseURL string) []string {
	matches := linkTag.FindAllStringSubmatch(html, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		href := m[1]
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		links = append(links, resolveLink(href, baseURL))
	}
	return links
}

func resolveLink(href, baseURL string) string {
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		if schemeEnd := strings.Index(baseURL, "://"); schemeEnd != -1 {
			authorityEnd := strings.Index(baseURL[schemeEnd+3:], "/")
			if authorityEnd != -1 {
				return baseURL[:schemeEnd+3+authorityEnd] + href
			}
		}
		return baseURL + href
	}
	if lastSlash := strings.LastIndex(baseURL, "/"); lastSlash != -1 {
		return baseURL[:lastSlash+1] + href
	}
	return baseURL + "/" + href
}

// ExtractWords splits text on ASCII whitespace and keeps tokens whose
// length is in [3,32] and whose characters are at least 70% alphabetic,
// lowercasing survivors.
func ExtractWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if isValidWord(f) {
			words = append(words, strings.ToLower(f))
		}
	}
	return words
}

func isValidWord(word string) bool {
	n := len(word)
	if n < 3 || n > 32 {
		return false
	}
	letters := 0
	for _, r := range word {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return float64(letters) >= 0.7*float64(n)
}
