// SPDX-License-Identifier: MPL-2.0

// Package logging builds the loggers used by the modrt CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/events"
)

// New returns a logger writing to w. Timestamps are only reported at debug
// level.
func New(w io.Writer, level log.Level, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: level <= log.DebugLevel,
		TimeFormat:      time.TimeOnly,
	})
}

// Level returns the effective level: verbose forces debug, otherwise
// configured applies.
func Level(configured log.Level, verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return configured
}

// LifecycleHandler returns an event handler that logs lifecycle events at
// debug level.
func LifecycleHandler(logger *log.Logger) events.Handler {
	return func(_ context.Context, e events.Event) {
		switch ev := e.(type) {
		case *events.PreLoad:
			logger.Debug("loading module", "module", ev.Descriptor.Name(), "location", ev.Descriptor.Location())
		case *events.PostLoad:
			logger.Debug("module ready", "module", ev.Descriptor.Name(), "type", fmt.Sprintf("%T", ev.Module))
		default:
			logger.Debug("lifecycle event", "event", e.Name())
		}
	}
}
