// SPDX-License-Identifier: MPL-2.0

// Package gosrc loads modules from Go source with the yaegi interpreter.
//
// A module location is a directory holding the .go files of one package.
// Entry points are named "<package>.<Identifier>", for example
// "greeter.New", and must be zero-argument functions returning a
// module.Module (optionally with an error):
//
//	package greeter
//
//	import "github.com/modrt/modrt/pkg/module"
//
//	func New() module.Module { return &Greeter{} }
//
// Sources compile lazily: nothing is interpreted until the first symbol is
// forced, after which Lookup answers from the interpreter directly.
package gosrc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/modrt/modrt/pkg/symbol"
)

// ErrNoSources is returned when a location holds no Go source files.
var ErrNoSources = errors.New("no Go source files")

type (
	// Provider opens Go source directories as symbol sources.
	Provider struct {
		exports []interp.Exports
		logger  *log.Logger
	}

	// Option configures a Provider.
	Option func(*Provider)
)

// WithExports makes additional host packages importable by module sources.
func WithExports(exports ...interp.Exports) Option {
	return func(p *Provider) { p.exports = append(p.exports, exports...) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider returns a provider exposing the standard library and the
// module package to interpreted code.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{exports: []interp.Exports{stdlib.Symbols, Symbols}}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Default().WithPrefix("gosrc")
	}
	return p
}

// Accepts reports whether location is a directory containing Go sources.
func (p *Provider) Accepts(location string) bool {
	files, err := SourceFiles(location)
	return err == nil && len(files) > 0
}

// Open prepares an interpreter for the sources in location. Nothing is
// compiled yet.
func (p *Provider) Open(_ context.Context, location string) (symbol.Source, error) {
	files, err := SourceFiles(location)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", location, ErrNoSources)
	}

	i := interp.New(interp.Options{})
	for _, exports := range p.exports {
		if err := i.Use(exports); err != nil {
			return nil, fmt.Errorf("failed to load interpreter symbols: %w", err)
		}
	}

	return &source{
		location: location,
		files:    files,
		interp:   i,
		syms:     make(map[string]*symbol.Symbol),
		logger:   p.logger,
	}, nil
}

// SourceFiles lists the non-test .go files directly inside dir, sorted.
func SourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files, nil
}
