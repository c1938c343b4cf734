// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trace exports ledger spans to a zipkin collector.
package trace

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	defaultEndpoint = "http://localhost:9411/api/v2/spans"
	exportTimeout   = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

type Config struct {
	Enabled bool `yaml:"enabled"`

	// SampleRate is the fraction of ledger operations traced, in [0, 1].
	SampleRate float64 `yaml:"sampleRate"`

	// Endpoint of the zipkin collector. Defaults to a local collector.
	Endpoint string `yaml:"endpoint"`

	AppName string `yaml:"appName"`
	Agent   string `yaml:"agent"`
	Version string `yaml:"version"`
}

// ledgerTracer flushes batched spans when the ledger closes.
type ledgerTracer struct {
	oteltrace.Tracer

	provider *sdktrace.TracerProvider
}

func (t *ledgerTracer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return t.provider.Shutdown(ctx)
}

// New returns [trace.Noop] unless tracing is enabled.
func New(c *Config) (trace.Tracer, error) {
	if !c.Enabled {
		return trace.Noop, nil
	}

	endpoint := c.Endpoint
	if len(endpoint) == 0 {
		endpoint = defaultEndpoint
	}
	exporter, err := zipkin.New(endpoint)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(exportTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.Agent),
			attribute.String("app", c.AppName),
			attribute.String("version", c.Version),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))),
	)
	return &ledgerTracer{
		Tracer:   provider.Tracer(c.AppName),
		provider: provider,
	}, nil
}
