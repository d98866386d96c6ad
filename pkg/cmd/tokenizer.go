package cmd

import (
	"strings"
	"unicode/utf8"
)

// identifierWindow bounds how much of a message body is searched for a
// (possibly multi-word) command identifier.
const identifierWindow = 50

// Candidates returns every identifier candidate for body, most specific first:
// the whole window, then each prefix ending before a space, longest first.
func Candidates(body string) []string {
	window := body
	if len(window) > identifierWindow {
		cut := identifierWindow
		for cut > 0 && !utf8.RuneStart(window[cut]) {
			cut--
		}
		window = window[:cut]
	}

	out := make([]string, 0, 4)
	if window != "" {
		out = append(out, window)
	}
	for i := len(window) - 1; i > 0; i-- {
		if isSpace(window[i]) && !isSpace(window[i-1]) {
			out = append(out, window[:i])
		}
	}
	return out
}

// Resolve finds the longest candidate identifier of body accepted by known and
// returns it with the unconsumed remainder. ok is false on NoMatch.
func Resolve(body string, known func(string) bool) (identifier, remainder string, ok bool) {
	for _, c := range Candidates(body) {
		if known(c) {
			return c, body[len(c):], true
		}
	}
	return "", "", false
}

type segment struct {
	value string
	start int
}

// SplitArguments splits the raw argument remainder on unescaped commas.
// A backslash-escaped comma is kept as a literal comma, each argument is
// trimmed, and a blank remainder yields no arguments.
func SplitArguments(remainder string) []string {
	segs := splitSegments(remainder)
	args := make([]string, len(segs))
	for i, s := range segs {
		args[i] = s.value
	}
	return args
}

func splitSegments(remainder string) []segment {
	if strings.TrimSpace(remainder) == "" {
		return nil
	}

	var (
		segs  []segment
		buf   strings.Builder
		start int
	)
	flush := func(next int) {
		segs = append(segs, segment{value: strings.TrimSpace(buf.String()), start: start})
		buf.Reset()
		start = next
	}

	for i := 0; i < len(remainder); i++ {
		c := remainder[i]
		switch {
		case c == '\\' && i+1 < len(remainder) && remainder[i+1] == ',':
			buf.WriteByte(',')
			i++
		case c == ',':
			flush(i + 1)
		default:
			buf.WriteByte(c)
		}
	}
	flush(len(remainder))
	return segs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
