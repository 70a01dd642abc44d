package gateway

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseInt reads the leading integer of s the way the UI layer does: leading
// whitespace and an optional sign are accepted and anything after the digits
// is ignored. ok is false when s has no integer prefix.
func ParseInt(s string) (n int, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
