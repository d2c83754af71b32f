package analysis

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"
)

// maxLineLen bounds a single line of tool output.
const maxLineLen = 1 << 20

// Matcher turns a regexp match into an issue. The builder is fresh for each
// match and already carries the parser ID as type. Returning false drops the
// match.
type Matcher func(m []string, b *IssueBuilder) (Issue, bool)

// LineParser matches a regexp against each transformed input line. Variants
// embed it and supply the pattern and a Matcher.
type LineParser struct {
	*Base
	pattern   *regexp.Regexp
	match     Matcher
	prefilter func(line string) bool
}

// NewLineParser builds a line-oriented parser.
func NewLineParser(base *Base, pattern *regexp.Regexp, match Matcher) *LineParser {
	return &LineParser{Base: base, pattern: pattern, match: match}
}

// WithPrefilter skips lines for which keep returns false before running the
// regexp.
func (p *LineParser) WithPrefilter(keep func(line string) bool) *LineParser {
	p.prefilter = keep
	return p
}

func (p *LineParser) Parse(ctx context.Context, r io.Reader) (*Issues, error) {
	transform := p.Transformer()
	issues := NewIssues()
	issues.SetOrigin(p.ID())

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := Canceled(ctx); err != nil {
			return nil, err
		}
		line := transform(scanner.Text())
		if p.prefilter != nil && !p.prefilter(line) {
			continue
		}
		m := p.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if is, ok := p.match(m, p.IssueBuilder()); ok {
			issues.Add(is)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewParsingError(p.ID(), lineNo+1, err)
	}
	return issues, nil
}

// DocumentParser runs a multi-line regexp over the whole input after every line
// has been transformed.
type DocumentParser struct {
	*Base
	pattern *regexp.Regexp
	match   Matcher
}

// NewDocumentParser builds a parser that matches across line boundaries.
func NewDocumentParser(base *Base, pattern *regexp.Regexp, match Matcher) *DocumentParser {
	return &DocumentParser{Base: base, pattern: pattern, match: match}
}

func (p *DocumentParser) Parse(ctx context.Context, r io.Reader) (*Issues, error) {
	text, err := ReadTransformed(r, p.Transformer())
	if err != nil {
		return nil, NewParsingError(p.ID(), 0, err)
	}
	issues := NewIssues()
	issues.SetOrigin(p.ID())
	for _, m := range p.pattern.FindAllStringSubmatch(text, -1) {
		if err := Canceled(ctx); err != nil {
			return nil, err
		}
		if is, ok := p.match(m, p.IssueBuilder()); ok {
			issues.Add(is)
		}
	}
	return issues, nil
}

// ReadTransformed reads all of r and applies transform to every line. Lines are
// joined with "\n"; carriage returns before a newline are dropped.
func ReadTransformed(r io.Reader, transform Transformer) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lines[i] = transform(strings.TrimSuffix(line, "\r"))
	}
	return strings.Join(lines, "\n"), nil
}
