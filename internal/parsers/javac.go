package parsers

import (
	"regexp"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// JavacParser parses javac diagnostics, both plain and as relayed by maven:
//
//	src/Foo.java:42: warning: [deprecation] bar() in Baz has been deprecated
//	[WARNING] /work/src/Foo.java:[42,7] [unchecked] unchecked conversion
type JavacParser struct {
	*analysis.LineParser
}

var javacLineRe = regexp.MustCompile(
	`^(?:\[(WARNING|ERROR)\]\s+(.+?\.java):\[(\d+)(?:,(\d+))?\]|(.+?\.java):(\d+):\s*(warning|error):)\s*(?:\[(\w+)\]\s*)?(.*)$`)

// NewJavac returns a javac parser with the given ID.
func NewJavac(id string, opts ...analysis.Option) analysis.Parser {
	p := &JavacParser{}
	p.LineParser = analysis.NewLineParser(analysis.NewBase(id, opts...), javacLineRe, p.match)
	return p
}

func (p *JavacParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	level, file, line, col := m[1], m[2], m[3], m[4]
	if file == "" {
		level, file, line, col = m[7], m[5], m[6], ""
	}
	message := m[9]
	return b.SetFileName(file).
		SetLineStartText(line).
		SetColumnStartText(col).
		SetSeverity(analysis.SeverityFromString(level)).
		SetCategory(analysis.ClassifyIfEmpty(m[8], message)).
		SetMessage(message).
		Build(), true
}
