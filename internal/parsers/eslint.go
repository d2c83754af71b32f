package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// ESLintParser parses ESLint JSON output (eslint -f json).
type ESLintParser struct {
	*analysis.Base
}

type eslintFile struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID    string `json:"ruleId"`
	Severity  int    `json:"severity"` // 1=warning, 2=error
	Fatal     bool   `json:"fatal"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
}

// NewESLint returns an ESLint JSON parser with the given ID.
func NewESLint(id string, opts ...analysis.Option) analysis.Parser {
	return &ESLintParser{Base: analysis.NewBase(id, opts...)}
}

// StdoutOnly reports true; the JSON report is printed on stdout.
func (p *ESLintParser) StdoutOnly() bool { return true }

func (p *ESLintParser) Parse(ctx context.Context, r io.Reader) (*analysis.Issues, error) {
	text, err := analysis.ReadTransformed(r, p.Transformer())
	if err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, err)
	}

	issues := analysis.NewIssues()
	issues.SetOrigin(p.ID())
	if strings.TrimSpace(text) == "" {
		return issues, nil
	}

	var files []eslintFile
	if err := json.Unmarshal([]byte(text), &files); err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, fmt.Errorf("could not parse ESLint JSON: %w", err))
	}

	for _, f := range files {
		if err := analysis.Canceled(ctx); err != nil {
			return nil, err
		}
		for _, m := range f.Messages {
			sev := analysis.SeverityNormal
			if m.Severity == 2 || m.Fatal {
				sev = analysis.SeverityError
			}
			issues.Add(p.IssueBuilder().
				SetFileName(f.FilePath).
				SetLineStart(m.Line).
				SetLineEnd(m.EndLine).
				SetColumnStart(m.Column).
				SetColumnEnd(m.EndColumn).
				SetSeverity(sev).
				SetCategory(m.RuleID).
				SetMessage(m.Message).
				Build())
		}
	}
	issues.LogInfo("parsed %d files", len(files))
	return issues, nil
}
