// SPDX-License-Identifier: MPL-2.0

package greeter

import (
	"context"
	"errors"

	"github.com/modrt/modrt/pkg/module"
)

type Greeter struct {
	enabled bool
	loaded  bool
}

func New() module.Module { return &Greeter{} }

func NewFailing() (module.Module, error) { return nil, errors.New("greeter: refused") }

func Greeting() string { return "hello from greeter" }

func Shout(s string) string { return s + "!" }

func (g *Greeter) OnLoad(ctx context.Context) error {
	g.loaded = true
	return nil
}

func (g *Greeter) OnEnable(ctx context.Context) error {
	if !g.loaded {
		return errors.New("greeter: enabled before load")
	}
	return nil
}

func (g *Greeter) OnDisable(ctx context.Context) error { return nil }

func (g *Greeter) OnUnload(ctx context.Context) error { return nil }

func (g *Greeter) Enabled() bool { return g.enabled }

func (g *Greeter) SetEnabled(enabled bool) { g.enabled = enabled }
