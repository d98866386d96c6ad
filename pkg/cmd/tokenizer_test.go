package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesLongestFirst(t *testing.T) {
	got := Candidates("quote add https://chat/1/2/3")
	assert.Equal(t, []string{"quote add https://chat/1/2/3", "quote add", "quote"}, got)
}

func TestCandidatesWindow(t *testing.T) {
	body := "a " + strings.Repeat("x", 60)
	got := Candidates(body)
	require.NotEmpty(t, got)
	assert.Len(t, got[0], identifierWindow)
	assert.Equal(t, "a", got[len(got)-1])
}

func TestCandidatesWindowRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", identifierWindow-1) + "é tail"
	got := Candidates(body)
	require.NotEmpty(t, got)
	assert.Equal(t, strings.Repeat("a", identifierWindow-1), got[0])
}

func TestCandidatesCollapsesRepeatedSpaces(t *testing.T) {
	assert.Equal(t, []string{"quote  add", "quote"}, Candidates("quote  add"))
}

func TestResolveLongestMatch(t *testing.T) {
	known := map[string]bool{"quote": true, "quote add": true}
	id, rest, ok := Resolve("quote add https://chat/1/2/3", func(s string) bool { return known[s] })
	require.True(t, ok)
	assert.Equal(t, "quote add", id)
	assert.Equal(t, " https://chat/1/2/3", rest)

	id, rest, ok = Resolve("quote 4", func(s string) bool { return known[s] })
	require.True(t, ok)
	assert.Equal(t, "quote", id)
	assert.Equal(t, " 4", rest)
}

func TestResolveNoMatch(t *testing.T) {
	_, _, ok := Resolve("unknown thing", func(string) bool { return false })
	assert.False(t, ok)
	_, _, ok = Resolve("", func(string) bool { return true })
	assert.False(t, ok)
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", " Sol", []string{"Sol"}},
		{"escaped comma", `x\, y, z`, []string{"x, y", "z"}},
		{"trims", "  Sol ,  Achenar  ", []string{"Sol", "Achenar"}},
		{"empty middle", "a,,b", []string{"a", "", "b"}},
		{"trailing comma", "a,", []string{"a", ""}},
		{"lone backslash", `a\b`, []string{`a\b`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArguments(tt.in))
		})
	}
}

func TestInvocationRest(t *testing.T) {
	inv := &Invocation{}
	inv.setArguments(` hello, {"content": "a, b"}, tail`)
	require.Len(t, inv.Args, 4)
	assert.Equal(t, `{"content": "a, b"}, tail`, inv.Rest(1))
	assert.Equal(t, "", inv.Rest(9))

	inv.setArguments(`x\, y, z`)
	assert.Equal(t, `x\, y, z`, inv.Rest(0))
	assert.Equal(t, "z", inv.Rest(1))
}
