package rag

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/xhad/research/internal/models"
)

// sourcesMarker matches a "Sources:" line, tolerating case, a singular
// "Source:", markdown heading hashes and bold stars around the word.
var sourcesMarker = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?\**\s*sources?\s*\**\s*:\s*\**(.*)$`)

// ParseAnswer splits model output into answer text and sources.
//
//	answer  := text [marker sources]
//	marker  := a line starting with "Sources:" (last one wins)
//	sources := the rest of the marker line, split on commas that start
//	           a new absolute URL, then one source per following line
//
// Whitespace is trimmed, list bullets are stripped, blank lines and
// repeated sources are dropped. Output without a marker has no sources.
func ParseAnswer(raw string) models.Answer {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	marker := -1
	var rest string
	for i, line := range lines {
		if m := sourcesMarker.FindStringSubmatch(line); m != nil {
			marker = i
			rest = m[1]
		}
	}
	if marker < 0 {
		return models.Answer{Text: strings.TrimSpace(raw)}
	}

	var candidates []string
	candidates = append(candidates, splitInline(rest)...)
	candidates = append(candidates, lines[marker+1:]...)

	seen := make(map[string]bool)
	var sources []string
	for _, c := range candidates {
		c = trimBullet(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		sources = append(sources, c)
	}

	return models.Answer{
		Text:    strings.TrimSpace(strings.Join(lines[:marker], "\n")),
		Sources: sources,
	}
}

// splitInline splits a comma separated list of URLs. A piece that is not
// an absolute URL stays attached to the one before it, so commas inside a
// URL or in plain text titles do not split.
func splitInline(rest string) []string {
	var out []string
	for _, piece := range strings.Split(rest, ",") {
		if len(out) > 0 && !isAbsoluteURL(piece) {
			out[len(out)-1] += "," + piece
			continue
		}
		out = append(out, piece)
	}
	return out
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	return err == nil && u.Scheme != "" && u.Host != ""
}

func trimBullet(s string) string {
	s = strings.TrimSpace(s)
	for _, bullet := range []string{"-", "*", "•"} {
		if strings.HasPrefix(s, bullet) {
			return strings.TrimSpace(strings.TrimPrefix(s, bullet))
		}
	}
	return s
}
