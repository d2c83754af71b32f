package analysis

import (
	"strconv"
	"strings"
)

// ConvertLineNumber converts a textual line number to an int. Blank input and
// anything that is not a base-10 integer in the 32-bit range yields 0, which
// stands for "no specific line" (top of the file).
func ConvertLineNumber(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}
