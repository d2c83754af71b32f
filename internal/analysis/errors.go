package analysis

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrParsing marks a non-recoverable problem with the parser input.
	ErrParsing = errors.New("parsing failed")

	// ErrCanceled marks a parse that was aborted by the operator.
	ErrCanceled = errors.New("parsing canceled")

	// ErrNilTransformer is returned when installing a nil line transformer.
	ErrNilTransformer = errors.New("transformer must not be nil")
)

// ParsingError describes why a parser gave up on its input.
type ParsingError struct {
	Parser string
	Line   int // 0 when the failure is not tied to a line
	Err    error
}

func (e *ParsingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Parser, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Parser, e.Err)
}

func (e *ParsingError) Unwrap() []error {
	return []error{ErrParsing, e.Err}
}

// NewParsingError wraps err as a fatal parse failure of parser.
func NewParsingError(parser string, line int, err error) *ParsingError {
	return &ParsingError{Parser: parser, Line: line, Err: err}
}

// Canceled returns an error wrapping ErrCanceled if ctx is done, nil otherwise.
func Canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
	}
	return nil
}

// IsCanceled reports whether err signals an operator abort.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
