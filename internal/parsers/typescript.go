package parsers

import (
	"regexp"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// TypeScriptParser parses tsc --noEmit output.
type TypeScriptParser struct {
	*analysis.LineParser
}

// tsc output format: src/auth.ts(42,5): error TS2345: Argument of type...
var tscLineRe = regexp.MustCompile(`^\s*(.+)\((\d+),(\d+)\):\s+(error|warning)\s+(TS\d+):\s+(.+)$`)

// NewTypeScript returns a tsc parser with the given ID.
func NewTypeScript(id string, opts ...analysis.Option) analysis.Parser {
	p := &TypeScriptParser{}
	p.LineParser = analysis.NewLineParser(analysis.NewBase(id, opts...), tscLineRe, p.match)
	return p
}

func (p *TypeScriptParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	return b.SetFileName(m[1]).
		SetLineStartText(m[2]).
		SetColumnStartText(m[3]).
		SetSeverity(analysis.SeverityFromString(m[4])).
		SetCategory(m[5]).
		SetMessage(m[6]).
		Build(), true
}
