package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Issues is the ordered result of a parse. The zero value is ready to use.
type Issues struct {
	origin string
	items  []Issue
	info   []string
	errors []string
}

// NewIssues returns an empty collection.
func NewIssues() *Issues {
	return &Issues{}
}

func (s *Issues) Add(is Issue) {
	s.items = append(s.items, is)
}

func (s *Issues) AddAll(other *Issues) {
	if other == nil {
		return
	}
	s.items = append(s.items, other.items...)
	s.info = append(s.info, other.info...)
	s.errors = append(s.errors, other.errors...)
}

func (s *Issues) Size() int {
	return len(s.items)
}

func (s *Issues) IsEmpty() bool {
	return len(s.items) == 0
}

// Get returns the i-th issue in insertion order.
func (s *Issues) Get(i int) Issue {
	return s.items[i]
}

// All returns a copy of the issues in insertion order.
func (s *Issues) All() []Issue {
	out := make([]Issue, len(s.items))
	copy(out, s.items)
	return out
}

// SizeOf counts the issues with exactly the given severity.
func (s *Issues) SizeOf(sev Severity) int {
	n := 0
	for _, is := range s.items {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

// Filter returns a new collection with the issues that satisfy keep.
func (s *Issues) Filter(keep func(Issue) bool) *Issues {
	out := &Issues{origin: s.origin}
	for _, is := range s.items {
		if keep(is) {
			out.items = append(out.items, is)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories, sorted.
func (s *Issues) Categories() []string {
	return s.distinct(func(is Issue) string { return is.Category })
}

// Files returns the distinct file names, sorted.
func (s *Issues) Files() []string {
	return s.distinct(func(is Issue) string { return is.FileName })
}

func (s *Issues) distinct(key func(Issue) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, is := range s.items {
		k := key(is)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Origin is the ID of the parser or check that produced the issues.
func (s *Issues) Origin() string {
	return s.origin
}

func (s *Issues) SetOrigin(origin string) {
	s.origin = origin
}

// LogInfo records an informational message about the parse.
func (s *Issues) LogInfo(format string, args ...any) {
	s.info = append(s.info, fmt.Sprintf(format, args...))
}

// LogError records a problem that did not abort the parse.
func (s *Issues) LogError(format string, args ...any) {
	s.errors = append(s.errors, fmt.Sprintf(format, args...))
}

func (s *Issues) InfoMessages() []string {
	return append([]string(nil), s.info...)
}

func (s *Issues) ErrorMessages() []string {
	return append([]string(nil), s.errors...)
}

// MarshalJSON encodes the collection as a JSON array of issues.
func (s *Issues) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

func (s *Issues) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.items)
}
