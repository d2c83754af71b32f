package checks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/config"
	"github.com/lucasnoah/warnfactory/internal/transform"
)

// GateCheckResult holds the result of a single check within a gate run.
type GateCheckResult struct {
	Check     string `json:"check"`
	Passed    bool   `json:"passed"`
	AutoFixed bool   `json:"auto_fixed,omitempty"`
	Runs      int    `json:"runs"`
	Issues    int    `json:"issues"`
	Summary   string `json:"summary,omitempty"`
}

// GateFailure describes a remaining failure after a gate run.
type GateFailure struct {
	Count   int    `json:"count,omitempty"`
	Summary string `json:"summary"`
}

// GateResult is the structured output of a full gate run.
type GateResult struct {
	Gate              string                 `json:"gate"`
	Passed            bool                   `json:"passed"`
	Canceled          bool                   `json:"canceled,omitempty"`
	Checks            []GateCheckResult      `json:"checks"`
	RemainingFailures map[string]GateFailure `json:"remaining_failures,omitempty"`
}

// JSON returns the gate result as indented JSON.
func (g *GateResult) JSON() (string, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GateOpts configures a gate run.
type GateOpts struct {
	Gate     string
	Checks   []CheckConfig
	Continue bool // run all checks even if some fail
}

// RunGate executes all checks of a gate and returns a structured result.
// Each check result is also returned individually for DB logging. A canceled
// check stops the gate without marking it failed.
func (r *Runner) RunGate(ctx context.Context, dir string, opts GateOpts) (*GateResult, []*Result, error) {
	gate := &GateResult{
		Gate:              opts.Gate,
		Passed:            true,
		RemainingFailures: make(map[string]GateFailure),
	}

	var allResults []*Result

	for _, chk := range opts.Checks {
		result, err := r.Run(ctx, dir, chk)
		if err != nil {
			return nil, allResults, fmt.Errorf("run check %q: %w", chk.Name, err)
		}
		allResults = append(allResults, result)

		if result.Canceled {
			gate.Canceled = true
			break
		}

		runs := 1
		if result.AutoFixed {
			runs = 2
		}

		gate.Checks = append(gate.Checks, GateCheckResult{
			Check:     chk.Name,
			Passed:    result.Passed,
			AutoFixed: result.AutoFixed,
			Runs:      runs,
			Issues:    result.Issues.Size(),
			Summary:   result.Summary,
		})

		if !result.Passed {
			gate.Passed = false
			gate.RemainingFailures[chk.Name] = GateFailure{
				Count:   result.Issues.Size(),
				Summary: result.Summary,
			}

			if !opts.Continue {
				break
			}
		}
	}

	return gate, allResults, nil
}

// ConfigFor converts a configured check into the runner's CheckConfig.
func ConfigFor(name string, c config.Check) (CheckConfig, error) {
	cc := CheckConfig{
		Name:       name,
		Command:    c.Command,
		Parser:     c.Parser,
		Timeout:    config.CheckTimeout(c, DefaultTimeout),
		AutoFix:    c.AutoFix,
		FixCommand: c.FixCommand,
		MaxIssues:  c.MaxIssues,
	}
	input, err := ParseInput(c.Input)
	if err != nil {
		return CheckConfig{}, fmt.Errorf("check %q: %w", name, err)
	}
	cc.Input = input
	if c.FailOn != "" {
		sev, err := analysis.ParseSeverity(c.FailOn)
		if err != nil {
			return CheckConfig{}, fmt.Errorf("check %q: fail_on: %w", name, err)
		}
		cc.FailOn = sev
	}
	if !c.Transform.IsZero() {
		tr, err := transform.Build(c.Transform)
		if err != nil {
			return CheckConfig{}, fmt.Errorf("check %q: %w", name, err)
		}
		cc.Transform = tr
	}
	return cc, nil
}
