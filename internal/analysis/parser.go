package analysis

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Parser converts the raw text output of a build tool or compiler into issues.
//
// Parse returns a *ParsingError (errors.Is(err, ErrParsing)) when the input has a
// structural problem it cannot recover from, and an error wrapping ErrCanceled
// when ctx is done before parsing finishes. Callers should report the former and
// silently drop the latter.
type Parser interface {
	ID() string
	Parse(ctx context.Context, r io.Reader) (*Issues, error)
}

// Transformer rewrites a single input line before a parser matches it.
type Transformer func(string) string

// Identity returns its input unchanged.
func Identity(s string) string { return s }

// Option configures a Base at construction time.
type Option func(*Base)

// WithTransformer installs fn as the line transformer. A nil fn is ignored.
func WithTransformer(fn Transformer) Option {
	return func(b *Base) {
		if fn != nil {
			b.transformer = fn
		}
	}
}

// Base holds the state shared by every parser variant: a fixed ID and the line
// transformer. Concrete parsers embed it and implement Parse.
type Base struct {
	id string

	mu          sync.RWMutex
	transformer Transformer
}

// NewBase creates the shared parser state for the given ID. It panics if id is
// empty; a parser without an identity cannot seed the issues it produces.
func NewBase(id string, opts ...Option) *Base {
	if id == "" {
		panic("analysis: parser ID must not be empty")
	}
	b := &Base{id: id}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the parser ID.
func (b *Base) ID() string {
	return b.id
}

// SetTransformer replaces the line transformer. It returns ErrNilTransformer
// and keeps the current transformer if fn is nil.
func (b *Base) SetTransformer(fn Transformer) error {
	if fn == nil {
		return ErrNilTransformer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transformer = fn
	return nil
}

// Transformer returns the installed line transformer, or Identity if none was set.
func (b *Base) Transformer() Transformer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.transformer == nil {
		return Identity
	}
	return b.transformer
}

// LineNumber converts a textual line number, see ConvertLineNumber.
func (b *Base) LineNumber(s string) int {
	return ConvertLineNumber(s)
}

// IssueBuilder returns a new builder with Type set to the parser ID.
func (b *Base) IssueBuilder() *IssueBuilder {
	return NewIssueBuilder().SetType(b.id)
}

// TransformerSetter is implemented by parsers that embed Base.
type TransformerSetter interface {
	SetTransformer(fn Transformer) error
}

// Describe returns "<id> (<variant>)" for logs and error messages.
func Describe(p Parser) string {
	return fmt.Sprintf("%s (%s)", p.ID(), variantName(p))
}

func variantName(p Parser) string {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
