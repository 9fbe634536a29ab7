// SPDX-License-Identifier: MPL-2.0

// Package host manages a set of loaded modules by canonical name.
//
// A Host wraps a loader.Loader and keeps one instance per module name, in
// load order. Unloading a module disables it first if needed and revokes
// every capability it registered. UnloadAll walks the modules in reverse
// load order so dependents go before what they depend on.
package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/loader"
	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/services"
)

var (
	// ErrAlreadyLoaded is returned when a module with the same canonical
	// name is already loaded.
	ErrAlreadyLoaded = errors.New("module already loaded")

	// ErrNotLoaded is returned for operations on an unknown module.
	ErrNotLoaded = errors.New("module not loaded")
)

// Host owns the instances created by its loader.
type Host struct {
	loader *loader.Loader
	logger *log.Logger

	mu        sync.Mutex
	instances map[string]*loader.Instance
	order     []string
}

// New returns a host loading modules with l.
func New(l *loader.Loader, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.Default().WithPrefix("host")
	}
	return &Host{
		loader:    l,
		logger:    logger,
		instances: make(map[string]*loader.Instance),
	}
}

// Loader returns the underlying loader.
func (h *Host) Loader() *loader.Loader { return h.loader }

// Services returns the capability registry shared by the host's modules.
func (h *Host) Services() *services.Registry { return h.loader.Services() }

// Boundary returns the isolation boundary of the host's modules.
func (h *Host) Boundary() *isolation.Boundary { return h.loader.Boundary() }

// Load loads the module described by d. The name is reserved while loading,
// so concurrent loads of the same module fail fast.
func (h *Host) Load(ctx context.Context, d *modmeta.Descriptor) (*loader.Instance, error) {
	if !d.Valid() {
		return nil, &modmeta.InvalidArgumentError{Argument: "descriptor", Reason: "is not a valid module descriptor"}
	}
	name := d.Name()

	h.mu.Lock()
	if _, ok := h.instances[name]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	h.instances[name] = nil
	h.mu.Unlock()

	inst, err := h.loader.Load(ctx, d)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		delete(h.instances, name)
		return nil, err
	}
	h.instances[name] = inst
	h.order = append(h.order, name)
	return inst, nil
}

// Module returns the loaded instance called name.
func (h *Host) Module(name string) (*loader.Instance, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst := h.instances[name]
	return inst, inst != nil
}

// Modules returns the loaded instances in load order.
func (h *Host) Modules() []*loader.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*loader.Instance, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.instances[name])
	}
	return out
}

// Enable enables the module called name.
func (h *Host) Enable(ctx context.Context, name string) error {
	inst, err := h.lookup(name)
	if err != nil {
		return err
	}
	return h.loader.Enable(ctx, inst)
}

// Disable disables the module called name.
func (h *Host) Disable(ctx context.Context, name string) error {
	inst, err := h.lookup(name)
	if err != nil {
		return err
	}
	return h.loader.Disable(ctx, inst)
}

// Unload disables the module if it is enabled, unloads it and revokes its
// capability registrations. The module is forgotten even if a hook fails;
// hook errors are returned.
func (h *Host) Unload(ctx context.Context, name string) error {
	h.mu.Lock()
	inst := h.instances[name]
	if inst == nil {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	delete(h.instances, name)
	h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
	h.mu.Unlock()

	var errs []error
	if inst.Enabled() {
		if err := h.loader.Disable(ctx, inst); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.loader.Unload(ctx, inst); err != nil {
		errs = append(errs, err)
	}
	if n := h.Services().RevokeAll(name); n > 0 {
		h.logger.Debug("revoked capabilities", "module", name, "count", n)
	}
	return errors.Join(errs...)
}

// EnableAll enables every loaded module in load order and returns the
// errors of those that failed.
func (h *Host) EnableAll(ctx context.Context) error {
	var errs []error
	for _, inst := range h.Modules() {
		if err := h.loader.Enable(ctx, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisableAll disables every enabled module in reverse load order.
func (h *Host) DisableAll(ctx context.Context) error {
	var errs []error
	for _, inst := range slices.Backward(h.Modules()) {
		if !inst.Enabled() {
			continue
		}
		if err := h.loader.Disable(ctx, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnloadAll unloads every module in reverse load order.
func (h *Host) UnloadAll(ctx context.Context) error {
	var errs []error
	for _, inst := range slices.Backward(h.Modules()) {
		if err := h.Unload(ctx, inst.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Host) lookup(name string) (*loader.Instance, error) {
	inst, ok := h.Module(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	return inst, nil
}
