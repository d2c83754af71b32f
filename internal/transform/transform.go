// Package transform builds line transformers that clean up tool output before
// a parser sees it: wrapper prefixes, terminal colors, stray whitespace and
// non-normalized Unicode.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// Settings selects the transformers to chain. The fields are applied in
// declaration order.
type Settings struct {
	StripANSI        bool          `yaml:"strip_ansi" toml:"strip_ansi"`
	StripPrefix      string        `yaml:"strip_prefix" toml:"strip_prefix"`
	Replace          []Replacement `yaml:"replace" toml:"replace"`
	TrimSpace        bool          `yaml:"trim_space" toml:"trim_space"`
	NormalizeUnicode bool          `yaml:"normalize_unicode" toml:"normalize_unicode"`
}

// Replacement substitutes every occurrence of Old with New.
type Replacement struct {
	Old string `yaml:"old" toml:"old"`
	New string `yaml:"new" toml:"new"`
}

// IsZero reports whether no transformer is configured.
func (s Settings) IsZero() bool {
	return !s.StripANSI && s.StripPrefix == "" && len(s.Replace) == 0 && !s.TrimSpace && !s.NormalizeUnicode
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes terminal escape sequences such as colors.
func StripANSI() analysis.Transformer {
	return func(s string) string {
		if !strings.Contains(s, "\x1b") {
			return s
		}
		return ansiRe.ReplaceAllString(s, "")
	}
}

// StripPrefix removes a leading match of re, e.g. timestamps or "[INFO] "
// injected by CI runners and build wrappers.
func StripPrefix(re *regexp.Regexp) analysis.Transformer {
	return func(s string) string {
		loc := re.FindStringIndex(s)
		if loc == nil || loc[0] != 0 {
			return s
		}
		return s[loc[1]:]
	}
}

// Replace substitutes old with new.
func Replace(old, new string) analysis.Transformer {
	return func(s string) string {
		return strings.ReplaceAll(s, old, new)
	}
}

// TrimSpace removes leading and trailing white space.
func TrimSpace() analysis.Transformer {
	return strings.TrimSpace
}

// NormalizeNFC converts the line to Unicode normalization form C, so that
// file names and messages compare equal regardless of how the tool composed
// accented characters.
func NormalizeNFC() analysis.Transformer {
	return norm.NFC.String
}

// Chain applies fns in order. Nil entries are skipped; an empty chain is the
// identity.
func Chain(fns ...analysis.Transformer) analysis.Transformer {
	var chain []analysis.Transformer
	for _, fn := range fns {
		if fn != nil {
			chain = append(chain, fn)
		}
	}
	switch len(chain) {
	case 0:
		return analysis.Identity
	case 1:
		return chain[0]
	}
	return func(s string) string {
		for _, fn := range chain {
			s = fn(s)
		}
		return s
	}
}

// Build turns settings into a single transformer.
func Build(s Settings) (analysis.Transformer, error) {
	var fns []analysis.Transformer
	if s.StripANSI {
		fns = append(fns, StripANSI())
	}
	if s.StripPrefix != "" {
		re, err := regexp.Compile(s.StripPrefix)
		if err != nil {
			return nil, fmt.Errorf("strip_prefix: %w", err)
		}
		fns = append(fns, StripPrefix(re))
	}
	for i, r := range s.Replace {
		if r.Old == "" {
			return nil, fmt.Errorf("replace[%d]: old must not be empty", i)
		}
		fns = append(fns, Replace(r.Old, r.New))
	}
	if s.TrimSpace {
		fns = append(fns, TrimSpace())
	}
	if s.NormalizeUnicode {
		fns = append(fns, NormalizeNFC())
	}
	return Chain(fns...), nil
}
