// SPDX-License-Identifier: MPL-2.0

// Package loader turns module descriptors into running module instances.
//
// Load publishes a cancelable pre-load event, opens the module's private
// namespace, resolves and instantiates its entry point, shares the namespace
// if the module is a specification, and runs OnLoad. Any failure after the
// namespace is opened releases it again, so a failed Load leaves nothing
// behind.
//
// Instances then move through Enable and Disable until Unload:
//
//	Loaded -> Enabled <-> Disabled -> Unloaded
//
// Enable and Disable always run their hook, even when the module is already
// in the requested state. The loader does not order modules by dependency;
// callers unload dependents first.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/modrt/modrt/pkg/events"
	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/module"
	"github.com/modrt/modrt/pkg/services"
)

const tracerName = "github.com/modrt/modrt/pkg/loader"

var moduleType = reflect.TypeFor[module.Module]()

type (
	// Loader loads modules into one isolation boundary.
	Loader struct {
		boundary *isolation.Boundary
		bus      events.Bus
		logger   *log.Logger
		services *services.Registry
		dataRoot string
		tracer   trace.Tracer
	}

	// Option configures a Loader.
	Option func(*Loader)
)

// WithBus publishes lifecycle events to bus. Without a bus no events are sent.
func WithBus(bus events.Bus) Option {
	return func(l *Loader) { l.bus = bus }
}

// WithLogger sets the logger. Modules receive a child of it.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithServices sets the registry handed to modules through module.Env.
func WithServices(r *services.Registry) Option {
	return func(l *Loader) { l.services = r }
}

// WithDataRoot sets the directory under which each module gets a data
// directory named after it.
func WithDataRoot(dir string) Option {
	return func(l *Loader) { l.dataRoot = dir }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loader) { l.tracer = tp.Tracer(tracerName) }
}

// New returns a loader that opens namespaces in boundary.
func New(boundary *isolation.Boundary, opts ...Option) *Loader {
	l := &Loader{boundary: boundary}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.Default().WithPrefix("loader")
	}
	if l.services == nil {
		l.services = services.NewRegistry()
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer(tracerName)
	}
	return l
}

// Boundary returns the isolation boundary the loader opens namespaces in.
func (l *Loader) Boundary() *isolation.Boundary { return l.boundary }

// Services returns the registry handed to modules.
func (l *Loader) Services() *services.Registry { return l.services }

// Load loads the module described by d and runs its OnLoad hook.
//
// Errors: *modmeta.InvalidArgumentError for an invalid descriptor,
// *CancelledError when a pre-load observer cancels,
// *modmeta.MalformedDescriptorError when the entry point cannot be resolved
// or instantiated or a specification module cannot join the shared tier
// (isolation.ErrAlreadyAdmitted when one of the same name is already there),
// and *HookError when Bind or OnLoad fails.
func (l *Loader) Load(ctx context.Context, d *modmeta.Descriptor) (inst *Instance, err error) {
	if !d.Valid() {
		return nil, &modmeta.InvalidArgumentError{Argument: "descriptor", Reason: "is not a valid module descriptor"}
	}

	ctx, span := l.startSpan(ctx, "load", d)
	defer func() { endSpan(span, err) }()

	pre := events.NewPreLoad(d)
	l.publish(ctx, pre)
	if pre.Cancelled() {
		reasons := pre.Reasons()
		l.logger.Info("module load cancelled", "module", d.Name(), "reasons", reasons)
		return nil, newCancelledError(d.Name(), reasons)
	}

	ns, err := l.boundary.Open(ctx, d)
	if err != nil {
		return nil, modmeta.Malformed(d.Name(), "cannot open location "+d.Location(), err)
	}
	defer func() {
		if err != nil {
			if relErr := l.boundary.Release(ns); relErr != nil {
				l.logger.Warn("failed to release namespace", "module", d.Name(), "err", relErr)
			}
		}
	}()

	mod, err := l.instantiate(ns, d)
	if err != nil {
		return nil, err
	}

	if binder, ok := mod.(module.Binder); ok {
		if err := binder.Bind(l.env(d)); err != nil {
			return nil, &HookError{Module: d.Name(), Hook: "Bind", Err: err}
		}
	}

	if d.Role() == modmeta.RoleSpecification {
		if err := l.boundary.Admit(ns); err != nil {
			return nil, modmeta.Malformed(d.Name(), "cannot be shared", err)
		}
	}

	if err := callHook(ctx, d.Name(), "OnLoad", mod.OnLoad); err != nil {
		return nil, err
	}

	inst = newInstance(d, ns, mod)
	l.publish(ctx, &events.PostLoad{Descriptor: d, Module: mod})
	l.logger.Info("loaded "+d.Role().String()+" module",
		"module", d.DisplayName(), "version", d.Version().String(), "id", inst.ID())
	return inst, nil
}

// instantiate resolves the entry point privately and constructs the module.
func (l *Loader) instantiate(ns *isolation.Namespace, d *modmeta.Descriptor) (module.Module, error) {
	entry := d.EntryPoint()
	sym, err := ns.ResolveEntry(entry)
	if err != nil {
		return nil, modmeta.Malformed(d.Name(), "entry point "+entry+" cannot be resolved", err)
	}
	l.logger.Debug("resolved entry point", "module", d.Name(), "symbol", sym.String(), "origin", sym.Origin)

	switch {
	case sym.Abstract:
		return nil, modmeta.Malformed(d.Name(), "entry point "+entry+" is abstract", nil)
	case !sym.Implements(moduleType):
		return nil, modmeta.Malformed(d.Name(), fmt.Sprintf("entry point %s (%v) does not implement %v", entry, sym.Type, moduleType), nil)
	case sym.New == nil:
		return nil, modmeta.Malformed(d.Name(), "entry point "+entry+" has no zero-argument constructor", nil)
	}

	v, err := construct(sym.New)
	if err != nil {
		return nil, modmeta.Malformed(d.Name(), "entry point "+entry+" failed to instantiate", err)
	}
	mod, ok := v.(module.Module)
	if !ok || mod == nil || isNilPointer(v) {
		return nil, modmeta.Malformed(d.Name(), fmt.Sprintf("entry point %s produced %T, not a module", entry, v), nil)
	}
	return mod, nil
}

func construct(newFn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return newFn()
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func (l *Loader) env(d *modmeta.Descriptor) module.Env {
	env := module.Env{
		Descriptor: d,
		Services:   l.services,
		Logger:     l.logger.With("module", d.Name()),
	}
	if l.dataRoot != "" {
		env.DataDir = filepath.Join(l.dataRoot, d.Name())
	}
	return env
}

// Enable runs OnEnable and sets the enabled flag. If the hook fails the flag
// and state are left as they were.
func (l *Loader) Enable(ctx context.Context, inst *Instance) error {
	return l.toggle(ctx, inst, "enable", "OnEnable", inst.mod.OnEnable, true, StateEnabled)
}

// Disable runs OnDisable and clears the enabled flag. If the hook fails the
// flag and state are left as they were.
func (l *Loader) Disable(ctx context.Context, inst *Instance) error {
	return l.toggle(ctx, inst, "disable", "OnDisable", inst.mod.OnDisable, false, StateDisabled)
}

func (l *Loader) toggle(ctx context.Context, inst *Instance, op, hook string,
	fn func(context.Context) error, enabled bool, next State,
) (err error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if s := inst.State(); s == StateUnloaded {
		return &StateError{Module: inst.Name(), Op: op, State: s}
	}

	ctx, span := l.startSpan(ctx, op, inst.desc)
	defer func() { endSpan(span, err) }()

	if err := callHook(ctx, inst.Name(), hook, fn); err != nil {
		return err
	}
	inst.mod.SetEnabled(enabled)
	inst.setState(next)
	l.logger.Debug(op+"d module", "module", inst.desc.DisplayName())
	return nil
}

// Unload runs OnUnload, releases the namespace (evicting it from the shared
// tier) and marks the instance unloaded. The instance is unloaded even when
// OnUnload fails; the hook error is still returned.
func (l *Loader) Unload(ctx context.Context, inst *Instance) (err error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if s := inst.State(); s == StateUnloaded {
		return &StateError{Module: inst.Name(), Op: "unload", State: s}
	}

	ctx, span := l.startSpan(ctx, "unload", inst.desc)
	defer func() { endSpan(span, err) }()

	hookErr := callHook(ctx, inst.Name(), "OnUnload", inst.mod.OnUnload)
	relErr := l.boundary.Release(inst.ns)
	inst.setState(StateUnloaded)

	l.logger.Info("unloaded module", "module", inst.desc.DisplayName(), "id", inst.ID())
	return errors.Join(hookErr, relErr)
}

func (l *Loader) publish(ctx context.Context, e events.Event) {
	if l.bus != nil {
		l.bus.Publish(ctx, e)
	}
}

func callHook(ctx context.Context, name, hook string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Module: name, Hook: hook, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(ctx); err != nil {
		return &HookError{Module: name, Hook: hook, Err: err}
	}
	return nil
}

func (l *Loader) startSpan(ctx context.Context, op string, d *modmeta.Descriptor) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "modrt."+op, trace.WithAttributes(
		attribute.String("modrt.module.name", d.Name()),
		attribute.String("modrt.module.role", d.Role().String()),
		attribute.String("modrt.module.version", d.Version().String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
