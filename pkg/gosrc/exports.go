// SPDX-License-Identifier: MPL-2.0

package gosrc

import (
	"context"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/modrt/modrt/pkg/module"
)

// Symbols exposes the module package to interpreted code, so module sources
// can import "github.com/modrt/modrt/pkg/module" and return a module.Module.
var Symbols = interp.Exports{
	"github.com/modrt/modrt/pkg/module/module": {
		"Module":          reflect.ValueOf((*module.Module)(nil)),
		"Env":             reflect.ValueOf((*module.Env)(nil)),
		"ErrAlreadyBound": reflect.ValueOf(&module.ErrAlreadyBound).Elem(),

		"_Module": reflect.ValueOf((*moduleWrapper)(nil)),
	},
}

// moduleWrapper lets the interpreter hand an interpreted type to host code
// as a module.Module.
type moduleWrapper struct {
	IValue      any
	WEnabled    func() bool
	WOnDisable  func(ctx context.Context) error
	WOnEnable   func(ctx context.Context) error
	WOnLoad     func(ctx context.Context) error
	WOnUnload   func(ctx context.Context) error
	WSetEnabled func(enabled bool)
}

func (w moduleWrapper) Enabled() bool                       { return w.WEnabled() }
func (w moduleWrapper) OnDisable(ctx context.Context) error { return w.WOnDisable(ctx) }
func (w moduleWrapper) OnEnable(ctx context.Context) error  { return w.WOnEnable(ctx) }
func (w moduleWrapper) OnLoad(ctx context.Context) error    { return w.WOnLoad(ctx) }
func (w moduleWrapper) OnUnload(ctx context.Context) error  { return w.WOnUnload(ctx) }
func (w moduleWrapper) SetEnabled(enabled bool)             { w.WSetEnabled(enabled) }
