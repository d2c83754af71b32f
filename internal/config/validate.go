package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/transform"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParserLookup reports whether a parser ID is known.
type ParserLookup interface {
	Has(id string) bool
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config, parsers ParserLookup) []ValidationError {
	var errs []ValidationError

	if len(cfg.Checks) == 0 {
		errs = append(errs, ValidationError{Field: "checks", Message: "at least one check is required"})
	}
	if cfg.Log.Format != "" && cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("must be text or json, got %q", cfg.Log.Format)})
	}
	if cfg.Defaults.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Defaults.Timeout); err != nil {
			errs = append(errs, ValidationError{Field: "defaults.timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Defaults.Timeout)})
		}
	}

	// Iterate in a stable order so errors are reported deterministically.
	names := make([]string, 0, len(cfg.Checks))
	for name := range cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := cfg.Checks[name]
		prefix := "checks." + name
		if c.Command == "" {
			errs = append(errs, ValidationError{Field: prefix + ".command", Message: "is required"})
		}
		if c.Parser == "" {
			errs = append(errs, ValidationError{Field: prefix + ".parser", Message: "is required"})
		} else if !parsers.Has(c.Parser) {
			errs = append(errs, ValidationError{Field: prefix + ".parser", Message: fmt.Sprintf("unrecognized parser %q", c.Parser)})
		}
		switch c.Input {
		case "", "combined", "stdout", "stderr":
		default:
			errs = append(errs, ValidationError{Field: prefix + ".input", Message: fmt.Sprintf("must be combined, stdout or stderr, got %q", c.Input)})
		}
		if c.Timeout != "" {
			if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
				errs = append(errs, ValidationError{Field: prefix + ".timeout", Message: fmt.Sprintf("invalid duration %q", c.Timeout)})
			}
		}
		if c.FailOn != "" {
			if _, err := analysis.ParseSeverity(c.FailOn); err != nil {
				errs = append(errs, ValidationError{Field: prefix + ".fail_on", Message: err.Error()})
			}
		}
		if c.MaxIssues != nil && *c.MaxIssues < 0 {
			errs = append(errs, ValidationError{Field: prefix + ".max_issues", Message: "must not be negative"})
		}
		if c.AutoFix && c.FixCommand == "" {
			errs = append(errs, ValidationError{Field: prefix + ".fix_command", Message: "is required when auto_fix is set"})
		}
		if _, err := transform.Build(c.Transform); err != nil {
			errs = append(errs, ValidationError{Field: prefix + ".transform", Message: err.Error()})
		}
	}

	for _, checkName := range cfg.DefaultChecks {
		if _, ok := cfg.Checks[checkName]; !ok {
			errs = append(errs, ValidationError{
				Field:   "default_checks",
				Message: fmt.Sprintf("references undefined check %q", checkName),
			})
		}
	}

	gates := make([]string, 0, len(cfg.Gates))
	for name := range cfg.Gates {
		gates = append(gates, name)
	}
	sort.Strings(gates)
	for _, name := range gates {
		g := cfg.Gates[name]
		if len(g.Checks) == 0 {
			errs = append(errs, ValidationError{Field: "gates." + name + ".checks", Message: "at least one check is required"})
		}
		for _, checkName := range g.Checks {
			if _, ok := cfg.Checks[checkName]; !ok {
				errs = append(errs, ValidationError{
					Field:   "gates." + name + ".checks",
					Message: fmt.Sprintf("references undefined check %q", checkName),
				})
			}
		}
	}

	return errs
}

// CheckTimeout parses a check's timeout, falling back to def.
func CheckTimeout(c Check, def time.Duration) time.Duration {
	if c.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
