package parsers

import (
	"regexp"
	"strings"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// PrettierParser parses prettier --check output. Every listed file becomes an
// issue at line 0.
//
//	Checking formatting...
//	[warn] src/auth.ts
//	[warn] Code style issues found in the above file(s). Forgot to run Prettier?
type PrettierParser struct {
	*analysis.LineParser
}

var prettierLineRe = regexp.MustCompile(`^\s*\[warn\] (.+?)\s*$`)

// NewPrettier returns a prettier parser with the given ID.
func NewPrettier(id string, opts ...analysis.Option) analysis.Parser {
	p := &PrettierParser{}
	p.LineParser = analysis.NewLineParser(analysis.NewBase(id, opts...), prettierLineRe, p.match)
	return p
}

func (p *PrettierParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	file := m[1]
	// Skip summary lines
	if strings.Contains(file, "Code style issues") || strings.Contains(file, "Forgot to run") {
		return analysis.Issue{}, false
	}
	return b.SetFileName(file).
		SetSeverity(analysis.SeverityLow).
		SetCategory("Formatting").
		SetMessage("file is not formatted").
		Build(), true
}
