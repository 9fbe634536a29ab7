// SPDX-License-Identifier: MPL-2.0

// Package telemetry configures OpenTelemetry tracing for the modrt host.
//
// Tracing is opt-in: without MODRT_OTEL_ENDPOINT, or with MODRT_OTEL_ENABLED
// set to false, Setup installs nothing and the loader's spans go to the
// global no-op provider.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type (
	// Config holds the tracing settings read from the environment.
	Config struct {
		Enabled     bool    `env:"MODRT_OTEL_ENABLED" envDefault:"true"`
		Endpoint    string  `env:"MODRT_OTEL_ENDPOINT"`
		SampleRatio float64 `env:"MODRT_OTEL_SAMPLE_RATIO" envDefault:"1"`
	}

	// ShutdownFunc flushes pending spans and stops the exporter.
	ShutdownFunc func(context.Context) error
)

// LoadConfig reads Config from environ. A nil environ reads the process
// environment.
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse telemetry env: %w", err)
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return Config{}, fmt.Errorf("MODRT_OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", cfg.SampleRatio)
	}
	return cfg, nil
}

// Active reports whether cfg asks for an exporter.
func (c Config) Active() bool {
	return c.Enabled && strings.TrimSpace(c.Endpoint) != ""
}

// Setup registers a global tracer provider exporting to cfg.Endpoint over
// OTLP/HTTP. When cfg is not active it returns a no-op shutdown function.
// The returned function should be deferred by the caller.
func Setup(ctx context.Context, cfg Config, service, version string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return noop, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
