package elite

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatDistance renders d with two decimals and thousands grouping.
func FormatDistance(d float64) string {
	return printer.Sprintf("%.2f", d)
}

// FormatCount renders n with thousands grouping.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// Distance is the euclidean distance between a and b in light years.
func Distance(a, b Coords) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !runeStart(s[n]) {
		n--
	}
	return s[:n]
}

func runeStart(b byte) bool { return b&0xC0 != 0x80 }
