package parsers

import (
	"regexp"
	"strings"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// GCCParser parses gcc and clang diagnostics:
//
//	src/main.c:12:5: warning: unused variable 'x' [-Wunused-variable]
type GCCParser struct {
	*analysis.LineParser
}

var gccLineRe = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(warning|error|fatal error|note):\s*(.*?)(?:\s+\[-W([^\]]+)\])?$`)

// NewGCC returns a gcc/clang parser with the given ID.
func NewGCC(id string, opts ...analysis.Option) analysis.Parser {
	p := &GCCParser{}
	p.LineParser = analysis.NewLineParser(analysis.NewBase(id, opts...), gccLineRe, p.match).
		WithPrefilter(func(line string) bool {
			return strings.Contains(line, "warning") || strings.Contains(line, "error") || strings.Contains(line, "note")
		})
	return p
}

func (p *GCCParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	message := m[5]
	return b.SetFileName(m[1]).
		SetLineStartText(m[2]).
		SetColumnStartText(m[3]).
		SetSeverity(analysis.SeverityFromString(m[4])).
		SetCategory(analysis.ClassifyIfEmpty(m[6], message)).
		SetMessage(message).
		Build(), true
}
