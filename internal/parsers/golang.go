package parsers

import (
	"regexp"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// GoParser parses go build and go vet output:
//
//	./main.go:14:2: fmt.Printf format %d has arg s of wrong type string
type GoParser struct {
	*analysis.LineParser
}

var goLineRe = regexp.MustCompile(`^(?:vet: )?(\S+\.go):(\d+)(?::(\d+))?: (.+)$`)

// NewGo returns a go toolchain parser with the given ID.
func NewGo(id string, opts ...analysis.Option) analysis.Parser {
	p := &GoParser{}
	p.LineParser = analysis.NewLineParser(analysis.NewBase(id, opts...), goLineRe, p.match)
	return p
}

func (p *GoParser) match(m []string, b *analysis.IssueBuilder) (analysis.Issue, bool) {
	return b.SetFileName(m[1]).
		SetLineStartText(m[2]).
		SetColumnStartText(m[3]).
		SetCategory(analysis.ClassifyWarning(m[4])).
		SetMessage(m[4]).
		Build(), true
}
