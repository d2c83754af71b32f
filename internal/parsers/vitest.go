package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// VitestParser parses vitest/jest JSON reporter output. Every failed assertion
// becomes an error issue in the suite's file.
type VitestParser struct {
	*analysis.Base
}

type vitestOutput struct {
	TestResults []vitestSuiteResult `json:"testResults"`
}

type vitestSuiteResult struct {
	Name             string                  `json:"name"`
	AssertionResults []vitestAssertionResult `json:"assertionResults"`
}

type vitestAssertionResult struct {
	FullName        string   `json:"fullName"`
	Status          string   `json:"status"` // "passed", "failed"
	FailureMessages []string `json:"failureMessages"`
	Location        *struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"location"`
}

// NewVitest returns a vitest/jest JSON parser with the given ID.
func NewVitest(id string, opts ...analysis.Option) analysis.Parser {
	return &VitestParser{Base: analysis.NewBase(id, opts...)}
}

// StdoutOnly reports true; the JSON report is printed on stdout.
func (p *VitestParser) StdoutOnly() bool { return true }

func (p *VitestParser) Parse(ctx context.Context, r io.Reader) (*analysis.Issues, error) {
	text, err := analysis.ReadTransformed(r, p.Transformer())
	if err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, err)
	}

	var raw vitestOutput
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, fmt.Errorf("could not parse test JSON: %w", err))
	}

	issues := analysis.NewIssues()
	issues.SetOrigin(p.ID())
	for _, suite := range raw.TestResults {
		if err := analysis.Canceled(ctx); err != nil {
			return nil, err
		}
		for _, a := range suite.AssertionResults {
			if a.Status != "failed" {
				continue
			}
			errMsg := ""
			if len(a.FailureMessages) > 0 {
				errMsg = a.FailureMessages[0]
			}
			b := p.IssueBuilder().
				SetFileName(suite.Name).
				SetSeverity(analysis.SeverityError).
				SetCategory("Test failure").
				SetMessage(a.FullName + ": " + firstLine(errMsg)).
				SetDescription(errMsg)
			if a.Location != nil {
				b.SetLineStart(a.Location.Line).SetColumnStart(a.Location.Column)
			}
			issues.Add(b.Build())
		}
	}
	return issues, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
