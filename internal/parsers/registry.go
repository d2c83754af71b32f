// Package parsers holds the concrete warnings parsers and the registry that
// creates them by ID.
package parsers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// ErrUnknownParser is returned for IDs that were never registered.
var ErrUnknownParser = errors.New("unknown parser")

// StdoutReader is implemented by parsers that read a machine-readable
// document from stdout. Anything the tool writes to stderr would corrupt it.
type StdoutReader interface {
	StdoutOnly() bool
}

// Factory creates a parser variant with the given ID.
type Factory func(id string, opts ...analysis.Option) analysis.Parser

// Registry maps parser IDs to factories. Every New call returns an
// independent instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with every built-in parser.
func Default() *Registry {
	r := NewRegistry()
	r.Register("gcc", NewGCC)
	r.Register("clang", NewGCC)
	r.Register("javac", NewJavac)
	r.Register("maven", NewJavac)
	r.Register("go", NewGo)
	r.Register("rustc", NewRustc)
	r.Register("cargo", NewRustc)
	r.Register("typescript", NewTypeScript)
	r.Register("eslint", NewESLint)
	r.Register("prettier", NewPrettier)
	r.Register("npm-audit", NewNPMAudit)
	r.Register("vitest", NewVitest)
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// New creates a fresh parser for id.
func (r *Registry) New(id string, opts ...analysis.Option) (analysis.Parser, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, id)
	}
	return f(id, opts...), nil
}

// Restore recreates a parser from its descriptor. The variant recorded in the
// descriptor must match the one currently registered for the ID.
func (r *Registry) Restore(d analysis.Descriptor, opts ...analysis.Option) (analysis.Parser, error) {
	p, err := r.New(d.ID, opts...)
	if err != nil {
		return nil, err
	}
	if got := analysis.DescriptorOf(p); got.Variant != d.Variant {
		return nil, fmt.Errorf("restore %s: registered variant is %s", d, got.Variant)
	}
	return p, nil
}
