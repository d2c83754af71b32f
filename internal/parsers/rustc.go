package parsers

import (
	"regexp"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// RustcParser parses rustc and cargo diagnostics, where the location follows
// the message on its own line:
//
//	warning: unused variable: `x`
//	 --> src/main.rs:2:9
type RustcParser struct {
	*analysis.DocumentParser
}

var rustcBlockRe = regexp.MustCompile(`(?m)^(warning|error)(?:\[(\w+)\])?: (.+)\n[ \t]*--> (.+?):(\d+):(\d+)$`)

// NewRustc returns a rustc/cargo parser with the given ID.
func NewRustc(id string, opts ...analysis.Option) analysis.Parser {
	p := &RustcParser{}
	p.DocumentParser = analysis.NewDocumentParser(analysis.NewBase(id, opts...), rustcBlockRe, p.match)
	return p
}

func (p *RustcParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	message := m[3]
	return b.SetFileName(m[4]).
		SetLineStartText(m[5]).
		SetColumnStartText(m[6]).
		SetSeverity(analysis.SeverityFromString(m[1])).
		SetCategory(analysis.ClassifyIfEmpty(m[2], message)).
		SetMessage(message).
		Build(), true
}
