// SPDX-License-Identifier: MPL-2.0

// Package events carries module lifecycle notifications to an external bus.
//
// The loader publishes a [PreLoad] before it creates anything for a module.
// Observers may cancel it with a reason; the loader then aborts and reports
// every reason, in the order given. A [PostLoad] follows a successful load
// and cannot be cancelled.
package events

import (
	"context"
	"slices"
	"sync"

	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/module"
)

type (
	// Event is a lifecycle notification.
	Event interface {
		Name() string
	}

	// Bus delivers events to observers. Publish returns after every
	// observer has seen the event.
	Bus interface {
		Publish(ctx context.Context, e Event)
	}

	// Handler observes published events.
	Handler func(ctx context.Context, e Event)

	// PreLoad announces that a module is about to be loaded.
	PreLoad struct {
		Descriptor *modmeta.Descriptor

		mu      sync.Mutex
		reasons []string
	}

	// PostLoad announces that a module finished loading.
	PostLoad struct {
		Descriptor *modmeta.Descriptor
		Module     module.Module
	}

	// Dispatcher is an in-process Bus that calls handlers synchronously in
	// subscription order.
	Dispatcher struct {
		mu       sync.RWMutex
		next     int
		handlers []subscription
	}

	subscription struct {
		id int
		fn Handler
	}
)

// Event names.
const (
	NamePreLoad  = "module.pre-load"
	NamePostLoad = "module.post-load"
)

// NewPreLoad returns a pre-load event for d.
func NewPreLoad(d *modmeta.Descriptor) *PreLoad {
	return &PreLoad{Descriptor: d}
}

// Name implements Event.
func (*PreLoad) Name() string { return NamePreLoad }

// Cancel vetoes the load. Each call appends reason; empty reasons are kept
// so the number of vetoes is preserved.
func (e *PreLoad) Cancel(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reasons = append(e.reasons, reason)
}

// Cancelled reports whether any observer cancelled the load.
func (e *PreLoad) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reasons) > 0
}

// Reasons returns a copy of the cancellation reasons in the order given.
func (e *PreLoad) Reasons() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.reasons)
}

// Name implements Event.
func (*PostLoad) Name() string { return NamePostLoad }

// NewDispatcher returns a dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe adds fn and returns a function that removes it.
func (d *Dispatcher) Subscribe(fn Handler) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	id := d.next
	d.handlers = append(d.handlers, subscription{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handlers = slices.DeleteFunc(d.handlers, func(s subscription) bool { return s.id == id })
	}
}

// Publish implements Bus. Handlers subscribed or removed during a publish
// take effect from the next event.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	d.mu.RLock()
	handlers := slices.Clone(d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		h.fn(ctx, e)
	}
}

// OnPreLoad adapts fn into a Handler that only sees PreLoad events.
func OnPreLoad(fn func(ctx context.Context, e *PreLoad)) Handler {
	return func(ctx context.Context, e Event) {
		if pre, ok := e.(*PreLoad); ok {
			fn(ctx, pre)
		}
	}
}

// OnPostLoad adapts fn into a Handler that only sees PostLoad events.
func OnPostLoad(fn func(ctx context.Context, e *PostLoad)) Handler {
	return func(ctx context.Context, e Event) {
		if post, ok := e.(*PostLoad); ok {
			fn(ctx, post)
		}
	}
}
