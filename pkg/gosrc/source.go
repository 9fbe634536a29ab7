// SPDX-License-Identifier: MPL-2.0

package gosrc

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/traefik/yaegi/interp"

	"github.com/modrt/modrt/pkg/symbol"
)

// ErrClosed is returned when a closed source is forced.
var ErrClosed = errors.New("source closed")

var errorType = reflect.TypeFor[error]()

type source struct {
	location string
	files    []string
	logger   *log.Logger

	mu         sync.Mutex
	interp     *interp.Interpreter
	compiled   bool
	compileErr error
	syms       map[string]*symbol.Symbol
}

func (s *source) Lookup(name string) (*symbol.Symbol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.compiled || s.compileErr != nil || s.interp == nil {
		return nil, false
	}
	sym := s.evalLocked(name)
	return sym, sym != nil
}

func (s *source) Force(name string) (*symbol.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interp == nil {
		return nil, ErrClosed
	}
	if err := s.compileLocked(); err != nil {
		return nil, err
	}
	return s.evalLocked(name), nil
}

func (s *source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interp = nil
	clear(s.syms)
	return nil
}

// compileLocked interprets every source file once. A failure is remembered
// and returned on every later call.
func (s *source) compileLocked() (err error) {
	if s.compiled {
		return s.compileErr
	}
	s.compiled = true

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
		s.compileErr = err
	}()

	for _, file := range s.files {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := s.interp.Eval(string(src)); err != nil {
			return fmt.Errorf("failed to compile %s: %w", file, err)
		}
	}
	s.logger.Debug("compiled module sources", "location", s.location, "files", len(s.files))
	return nil
}

// evalLocked returns the symbol for name, or nil if the package does not
// define it. Only "<package>.<Identifier>" names are evaluated; an optional
// import-path prefix ("example.com/greeter.New") is ignored.
func (s *source) evalLocked(name string) (sym *symbol.Symbol) {
	if cached, ok := s.syms[name]; ok {
		return cached
	}

	expr, ok := selector(name)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("symbol evaluation panicked", "symbol", name, "panic", r)
			sym = nil
		}
	}()

	v, err := s.interp.Eval(expr)
	if err != nil || !v.IsValid() {
		return nil
	}
	sym = toSymbol(name, v)
	sym.Origin = s.location
	s.syms[name] = sym
	return sym
}

// selector reduces name to "pkg.Ident" and checks both parts are identifiers.
func selector(name string) (string, bool) {
	expr := path.Base(name)
	pkg, ident, ok := strings.Cut(expr, ".")
	if !ok || !token.IsIdentifier(pkg) || !token.IsIdentifier(ident) {
		return "", false
	}
	return expr, true
}

// toSymbol describes an evaluated value. Zero-argument functions returning
// one value, or a value and an error, become constructors; anything else is
// a declared symbol without one.
func toSymbol(name string, v reflect.Value) *symbol.Symbol {
	t := v.Type()
	sym := &symbol.Symbol{Name: name, Type: t}
	if t.Kind() != reflect.Func || t.NumIn() != 0 {
		return sym
	}

	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return sym
	}

	sym.Type = t.Out(0)
	sym.New = func() (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("constructor %s panicked: %v", name, r)
			}
		}()
		results := v.Call(nil)
		if len(results) == 2 && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		if !results[0].IsValid() {
			return nil, nil
		}
		return results[0].Interface(), nil
	}
	return sym
}
