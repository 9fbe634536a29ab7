// SPDX-License-Identifier: MPL-2.0

// Package module defines the contract every loadable module satisfies.
//
// An entry point resolves to a constructor producing a [Module]. Most modules
// embed [Base], which supplies no-op hooks, the enabled flag and [Binder], and
// override only the hooks they need:
//
//	type Cache struct {
//	    module.Base
//	}
//
//	func New() module.Module { return &Cache{} }
//
//	func (c *Cache) OnEnable(ctx context.Context) error {
//	    return services.Define[Store](c.Env().Services, c.Env().Descriptor.Name(), newStore())
//	}
//
// Hook order for one instance is OnLoad, then any sequence of OnEnable and
// OnDisable, then OnUnload.
package module

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/services"
)

// ErrAlreadyBound is returned when Bind is called more than once.
var ErrAlreadyBound = errors.New("module environment already bound")

type (
	// Module is the capability interface of a loadable module.
	Module interface {
		OnLoad(ctx context.Context) error
		OnEnable(ctx context.Context) error
		OnDisable(ctx context.Context) error
		OnUnload(ctx context.Context) error
		Enabled() bool
		SetEnabled(enabled bool)
	}

	// Binder is implemented by modules that want their runtime environment.
	// The loader calls Bind once, after instantiation and before OnLoad.
	Binder interface {
		Bind(env Env) error
	}

	// Env is what the runtime hands a module.
	Env struct {
		Descriptor *modmeta.Descriptor
		Services   *services.Registry
		// DataDir is a directory reserved for the module. It is not created
		// until the module asks for it.
		DataDir string
		Logger  *log.Logger
	}

	// Base implements Module with no-op hooks and Binder with a one-shot
	// environment. It is meant to be embedded by pointer-receiver types.
	Base struct {
		enabled atomic.Bool
		bindMu  sync.Mutex
		env     Env
		bound   bool
	}
)

// OnLoad implements Module.
func (*Base) OnLoad(context.Context) error { return nil }

// OnEnable implements Module.
func (*Base) OnEnable(context.Context) error { return nil }

// OnDisable implements Module.
func (*Base) OnDisable(context.Context) error { return nil }

// OnUnload implements Module.
func (*Base) OnUnload(context.Context) error { return nil }

// Enabled implements Module.
func (b *Base) Enabled() bool { return b.enabled.Load() }

// SetEnabled implements Module.
func (b *Base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// Bind implements Binder.
func (b *Base) Bind(env Env) error {
	b.bindMu.Lock()
	defer b.bindMu.Unlock()

	if b.bound {
		return ErrAlreadyBound
	}
	b.env = env
	b.bound = true
	return nil
}

// Env returns the bound environment, or the zero Env before Bind.
func (b *Base) Env() Env {
	b.bindMu.Lock()
	defer b.bindMu.Unlock()
	return b.env
}

// Logger returns the bound logger, falling back to the default logger.
func (b *Base) Logger() *log.Logger {
	if l := b.Env().Logger; l != nil {
		return l
	}
	return log.Default()
}
