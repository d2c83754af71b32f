package analysis

import (
	"fmt"
	"strings"
)

// Severity ranks an issue. Higher values are more severe.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityNormal
	SeverityHigh
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityError:  "ERROR",
	SeverityHigh:   "HIGH",
	SeverityNormal: "NORMAL",
	SeverityLow:    "LOW",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses one of the canonical names ERROR, HIGH, NORMAL, LOW
// (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(s, name) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// SeverityFromString guesses a severity from the level text a tool printed,
// e.g. "error", "fatal error", "warning" or "note". Unknown text maps to
// SeverityNormal.
func SeverityFromString(level string) Severity {
	l := strings.ToLower(strings.TrimSpace(level))
	switch {
	case strings.Contains(l, "error"), strings.Contains(l, "fatal"), l == "critical", l == "severe":
		return SeverityError
	case l == "high", strings.Contains(l, "mandatory"):
		return SeverityHigh
	case strings.Contains(l, "note"), strings.Contains(l, "info"), l == "low", l == "style":
		return SeverityLow
	default:
		return SeverityNormal
	}
}
