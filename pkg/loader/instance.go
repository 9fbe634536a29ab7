// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/module"
)

const (
	// StateLoaded is the state right after a successful Load.
	StateLoaded State = iota
	// StateEnabled follows a successful Enable.
	StateEnabled
	// StateDisabled follows a successful Disable.
	StateDisabled
	// StateUnloaded is terminal.
	StateUnloaded
)

type (
	// State is the lifecycle state of an Instance.
	State int32

	// Instance is a loaded module. It is owned by the Loader that created it.
	Instance struct {
		id   uuid.UUID
		desc *modmeta.Descriptor
		ns   *isolation.Namespace
		mod  module.Module

		// mu serializes lifecycle transitions so hooks of one instance
		// never run concurrently.
		mu    sync.Mutex
		state atomic.Int32
	}
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

func newInstance(d *modmeta.Descriptor, ns *isolation.Namespace, mod module.Module) *Instance {
	inst := &Instance{id: uuid.New(), desc: d, ns: ns, mod: mod}
	inst.state.Store(int32(StateLoaded))
	return inst
}

// ID uniquely identifies this load of the module.
func (i *Instance) ID() uuid.UUID { return i.id }

// Descriptor returns the module descriptor.
func (i *Instance) Descriptor() *modmeta.Descriptor { return i.desc }

// Name returns the canonical module name.
func (i *Instance) Name() string { return i.desc.Name() }

// Module returns the instantiated module.
func (i *Instance) Module() module.Module { return i.mod }

// Namespace returns the module's private namespace.
func (i *Instance) Namespace() *isolation.Namespace { return i.ns }

// State returns the current lifecycle state.
func (i *Instance) State() State { return State(i.state.Load()) }

// Enabled reports the module's enabled flag.
func (i *Instance) Enabled() bool { return i.mod.Enabled() }

func (i *Instance) setState(s State) { i.state.Store(int32(s)) }
