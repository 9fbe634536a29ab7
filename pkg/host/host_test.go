// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/gosrc"
	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/loader"
	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/module"
	"github.com/modrt/modrt/pkg/services"
	"github.com/modrt/modrt/pkg/symbol"
)

type (
	// Clock is a capability published by the clock module.
	Clock interface{ Now() int64 }

	clockModule struct {
		module.Base
		journal *[]string
		mu      *sync.Mutex
	}

	fixedClock int64
)

func (c fixedClock) Now() int64 { return int64(c) }

func (m *clockModule) record(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.journal = append(*m.journal, s)
}

func (m *clockModule) OnEnable(context.Context) error {
	m.record("clock.OnEnable")
	env := m.Env()
	return services.Define[Clock](env.Services, env.Descriptor.Name(), fixedClock(42))
}

func (m *clockModule) OnDisable(context.Context) error {
	m.record("clock.OnDisable")
	return nil
}

func (m *clockModule) OnUnload(context.Context) error {
	m.record("clock.OnUnload")
	return nil
}

type fixture struct {
	host    *Host
	mu      sync.Mutex
	journal []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{}
	quiet := log.New(io.Discard)

	table := symbol.NewTable()
	for _, loc := range []string{"mem:clock", "mem:other", "mem:third"} {
		table.Register(loc, symbol.Constructor(loc+".New", func() *clockModule {
			return &clockModule{journal: &f.journal, mu: &f.mu}
		}))
	}

	boundary := isolation.New(
		isolation.WithProviders(table, gosrc.NewProvider(gosrc.WithLogger(quiet))),
		isolation.WithLogger(quiet),
	)
	f.host = New(loader.New(boundary, loader.WithLogger(quiet)), quiet)
	return f
}

func descriptor(t *testing.T, rawName, location string) *modmeta.Descriptor {
	t.Helper()
	d, err := modmeta.Extract(location, manifest.Map{
		modmeta.KeyName:    rawName,
		modmeta.KeyVersion: "2.1",
		modmeta.KeyMain:    location + ".New",
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestHost_LoadAndLookup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.host.Load(ctx, descriptor(t, "clock-impl", "mem:clock"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	got, ok := f.host.Module("clock")
	if !ok || got != inst {
		t.Errorf("Module(clock) = %v, %v", got, ok)
	}
	if _, ok := f.host.Module("missing"); ok {
		t.Error("Module(missing) reported present")
	}

	_, err = f.host.Load(ctx, descriptor(t, "clock", "mem:other"))
	if !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("duplicate Load() error = %v, want ErrAlreadyLoaded", err)
	}
	if len(f.host.Modules()) != 1 {
		t.Errorf("Modules() = %d instances, want 1", len(f.host.Modules()))
	}
}

func TestHost_FailedLoadFreesName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	bad, err := modmeta.Extract("mem:clock", manifest.Map{
		modmeta.KeyName:    "clock",
		modmeta.KeyVersion: "1",
		modmeta.KeyMain:    "mem:clock.Missing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.host.Load(ctx, bad); !errors.Is(err, modmeta.ErrMalformedDescriptor) {
		t.Fatalf("Load() error = %v, want ErrMalformedDescriptor", err)
	}
	if _, err := f.host.Load(ctx, descriptor(t, "clock", "mem:clock")); err != nil {
		t.Errorf("Load() after a failed load unexpected error: %v", err)
	}
}

func TestHost_UnloadRevokesCapabilities(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.host.Load(ctx, descriptor(t, "clock-impl", "mem:clock")); err != nil {
		t.Fatal(err)
	}
	if err := f.host.Enable(ctx, "clock"); err != nil {
		t.Fatalf("Enable() unexpected error: %v", err)
	}

	c, err := services.Get[Clock](f.host.Services())
	if err != nil || c.Now() != 42 {
		t.Fatalf("Get[Clock]() = %v, %v", c, err)
	}

	if err := f.host.Unload(ctx, "clock"); err != nil {
		t.Fatalf("Unload() unexpected error: %v", err)
	}
	if _, err := services.Get[Clock](f.host.Services()); !errors.Is(err, services.ErrMissingImplementation) {
		t.Errorf("Get[Clock]() after Unload error = %v, want ErrMissingImplementation", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	want := []string{"clock.OnEnable", "clock.OnDisable", "clock.OnUnload"}
	if !slices.Equal(f.journal, want) {
		t.Errorf("hooks = %v, want %v", f.journal, want)
	}
	if f.host.Boundary().OpenCount() != 0 {
		t.Errorf("OpenCount() = %d after Unload", f.host.Boundary().OpenCount())
	}
}

func TestHost_UnknownModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for name, op := range map[string]func(context.Context, string) error{
		"Enable":  f.host.Enable,
		"Disable": f.host.Disable,
		"Unload":  f.host.Unload,
	} {
		if err := op(ctx, "ghost"); !errors.Is(err, ErrNotLoaded) {
			t.Errorf("%s(ghost) error = %v, want ErrNotLoaded", name, err)
		}
	}
}

func TestHost_AllOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, d := range []*modmeta.Descriptor{
		descriptor(t, "first", "mem:clock"),
		descriptor(t, "second", "mem:other"),
		descriptor(t, "third", "mem:third"),
	} {
		if _, err := f.host.Load(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	// Only the first module to enable wins the Clock capability.
	err := f.host.EnableAll(ctx)
	if !errors.Is(err, services.ErrImplementationConflict) {
		t.Fatalf("EnableAll() error = %v, want conflicts from later modules", err)
	}
	var enabled []string
	for _, inst := range f.host.Modules() {
		if inst.Enabled() {
			enabled = append(enabled, inst.Name())
		}
	}
	if !slices.Equal(enabled, []string{"first"}) {
		t.Errorf("enabled = %v, want [first]", enabled)
	}

	if err := f.host.DisableAll(ctx); err != nil {
		t.Fatalf("DisableAll() unexpected error: %v", err)
	}
	if err := f.host.UnloadAll(ctx); err != nil {
		t.Fatalf("UnloadAll() unexpected error: %v", err)
	}
	if len(f.host.Modules()) != 0 || f.host.Boundary().OpenCount() != 0 {
		t.Errorf("UnloadAll left %d modules, %d namespaces", len(f.host.Modules()), f.host.Boundary().OpenCount())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	unloads := slices.DeleteFunc(slices.Clone(f.journal), func(s string) bool { return s != "clock.OnUnload" })
	if len(unloads) != 3 {
		t.Errorf("OnUnload ran %d times, want 3", len(unloads))
	}
}

func TestHost_InterpretedModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	dir := filepath.Join("..", "gosrc", "testdata", "greeter")
	meta, _, err := manifest.Open(dir)
	if err != nil {
		t.Fatalf("manifest.Open() unexpected error: %v", err)
	}
	d, err := modmeta.Extract(dir, meta)
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}

	inst, err := f.host.Load(ctx, d)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := f.host.Enable(ctx, "greeter"); err != nil {
		t.Fatalf("Enable() unexpected error: %v", err)
	}
	if !inst.Enabled() || inst.State() != loader.StateEnabled {
		t.Errorf("interpreted module: enabled=%v state=%s", inst.Enabled(), inst.State())
	}
	if err := f.host.Unload(ctx, "greeter"); err != nil {
		t.Fatalf("Unload() unexpected error: %v", err)
	}
}
