package tools

import (
	"strconv"
)

// suffixReserve is runes reserved for the truncation message.
const suffixReserve = 80

// DefaultMaxOutputRunes caps tool output recorded in the conversation log.
const DefaultMaxOutputRunes = 20000

// TruncateOutput caps s at maxRunes runes. If maxRunes <= 0, returns s unchanged.
// The start of s is kept and a suffix with the total rune count is appended.
// Truncated JSON may be invalid; the model can retry with a narrower request.
func TruncateOutput(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	keep := maxRunes - suffixReserve
	if keep <= 0 {
		keep = 1
	}
	return string(r[:keep]) + "\n...[output truncated, total " + strconv.Itoa(len(r)) + " runes]"
}
