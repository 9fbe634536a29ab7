// SPDX-License-Identifier: MPL-2.0

package services

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type (
	Storage interface{ Put(key, value string) }
	Clock   interface{ Now() int64 }
	Mailer  interface{ Send(to string) error }

	memStorage struct{ data map[string]string }
	fixedClock int64
	nopMailer  struct{}
)

func (m *memStorage) Put(key, value string) { m.data[key] = value }
func (c fixedClock) Now() int64             { return int64(c) }
func (nopMailer) Send(string) error         { return nil }

func TestRegistry_DefineGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	store := &memStorage{data: map[string]string{}}
	if err := Define[Storage](r, "storage", store); err != nil {
		t.Fatalf("Define() unexpected error: %v", err)
	}

	got, err := Get[Storage](r)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got != Storage(store) {
		t.Error("Get() returned a different implementation")
	}

	owner, ok := r.Owner(reflect.TypeFor[Storage]())
	if !ok || owner != "storage" {
		t.Errorf("Owner() = %q, %v", owner, ok)
	}
}

func TestRegistry_Conflict(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := Define[Clock](r, "first", fixedClock(1)); err != nil {
		t.Fatal(err)
	}
	err := Define[Clock](r, "second", fixedClock(2))
	if !errors.Is(err, ErrImplementationConflict) {
		t.Fatalf("second Define() error = %v, want ErrImplementationConflict", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Owner != "first" {
		t.Errorf("ConflictError = %+v, want owner first", conflict)
	}

	c, _ := Get[Clock](r)
	if c.Now() != 1 {
		t.Error("conflicting Define() replaced the existing implementation")
	}
}

func TestRegistry_RevokeThenGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = Define[Clock](r, "clock", fixedClock(1))

	if !Revoke[Clock](r) {
		t.Error("Revoke() = false for a registered capability")
	}
	if Revoke[Clock](r) {
		t.Error("second Revoke() = true, want no-op")
	}

	_, err := Get[Clock](r)
	if !errors.Is(err, ErrMissingImplementation) {
		t.Fatalf("Get() after Revoke error = %v, want ErrMissingImplementation", err)
	}
	var missing *MissingError
	if !errors.As(err, &missing) || missing.Capability != reflect.TypeFor[Clock]() {
		t.Errorf("MissingError = %+v", missing)
	}

	if err := Define[Clock](r, "other", fixedClock(3)); err != nil {
		t.Errorf("Define() after Revoke unexpected error: %v", err)
	}
}

func TestRegistry_RevokeAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = Define[Storage](r, "a", &memStorage{data: map[string]string{}})
	_ = Define[Clock](r, "a", fixedClock(1))
	_ = Define[Mailer](r, "b", nopMailer{})

	if n := r.RevokeAll("a"); n != 2 {
		t.Errorf("RevokeAll(a) = %d, want 2", n)
	}
	if n := r.RevokeAll("missing"); n != 0 {
		t.Errorf("RevokeAll(missing) = %d, want 0", n)
	}

	var owners []string
	for _, reg := range r.Registrations() {
		owners = append(owners, fmt.Sprintf("%v=%s", reg.Capability, reg.Owner))
	}
	want := []string{"services.Mailer=b"}
	if diff := cmp.Diff(want, owners); diff != "" {
		t.Errorf("Registrations() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_InvalidCapability(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	tests := []struct {
		name       string
		capability reflect.Type
		impl       any
	}{
		{"nil_type", nil, nopMailer{}},
		{"not_interface", reflect.TypeFor[nopMailer](), nopMailer{}},
		{"nil_impl", reflect.TypeFor[Mailer](), nil},
		{"not_implemented", reflect.TypeFor[Clock](), nopMailer{}},
	}
	for _, tt := range tests {
		if err := r.Define("x", tt.capability, tt.impl); !errors.Is(err, ErrInvalidCapability) {
			t.Errorf("%s: Define() error = %v, want ErrInvalidCapability", tt.name, err)
		}
	}
	if len(r.Registrations()) != 0 {
		t.Error("rejected Define() calls must not register anything")
	}
}

func TestRegistry_ZeroValue(t *testing.T) {
	t.Parallel()

	var r Registry
	if _, err := Get[Clock](&r); !errors.Is(err, ErrMissingImplementation) {
		t.Errorf("Get() on zero registry error = %v", err)
	}
	if err := Define[Clock](&r, "x", fixedClock(0)); err != nil {
		t.Errorf("Define() on zero registry error = %v", err)
	}
}

func TestRegistry_ConcurrentDefine(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Define[Clock](r, fmt.Sprintf("m%d", i), fixedClock(i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrImplementationConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("successes=%d conflicts=%d, want 1 and %d", successes, conflicts, workers-1)
	}
}
