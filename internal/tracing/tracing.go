// Package tracing wires OpenTelemetry for ledger operations.
package tracing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName identifies this process in traces.
	DefaultServiceName = "atelier"

	// DefaultOTLPEndpoint is the collector address used by the otlp exporter.
	DefaultOTLPEndpoint = "localhost:4317"
)

// Span attribute keys.
const (
	AttrOp        = "ledger.op"
	AttrItemID    = "ledger.item_id"
	AttrActor     = "ledger.actor"
	AttrAmount    = "ledger.amount"
	AttrRoyalty   = "ledger.royalty"
	AttrEvents    = "ledger.events"
	AttrErrorKind = "ledger.error_kind"
)

// Config configures the tracing subsystem.
type Config struct {
	// Enabled controls whether spans are recorded at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Exporter is one of "none", "stdout", "file" or "otlp".
	Exporter string `mapstructure:"exporter" yaml:"exporter"`

	// FilePath is the output of the "file" exporter.
	FilePath string `mapstructure:"file_path" yaml:"file_path"`

	// OTLPEndpoint is the collector address for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`

	// SampleRate is the fraction of root spans kept, in (0, 1].
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`

	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// DefaultConfig returns tracing disabled with stdout as the exporter of choice.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		Exporter:     "stdout",
		OTLPEndpoint: DefaultOTLPEndpoint,
		SampleRate:   1.0,
		ServiceName:  DefaultServiceName,
	}
}

// Provider owns the tracer provider and its exporter.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	closer   func() error
}

// NewProvider builds a provider from cfg. A disabled config yields a no-op
// tracer with no exporter.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	exporter, closer, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	p := newSDKProvider(cfg, exporter, false)
	p.closer = closer

	otel.SetTracerProvider(p.provider)

	return p, nil
}

// NewProviderWithExporter builds an enabled provider that exports
// synchronously to exporter. It does not touch the global provider.
func NewProviderWithExporter(cfg Config, exporter sdktrace.SpanExporter) *Provider {
	return newSDKProvider(cfg, exporter, true)
}

// Noop returns a provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}
}

// Tracer returns the tracer for ledger spans. Never nil.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}

	if err := p.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider:\n%w", err)
	}

	if p.closer != nil {
		return p.closer()
	}

	return nil
}

// Uint64 records an unsigned ledger quantity as a decimal string, since span
// attributes have no unsigned integer type.
func Uint64(key string, v uint64) attribute.KeyValue {
	return attribute.String(key, strconv.FormatUint(v, 10))
}

// RecordError marks span as failed. kind is the ledger error kind name, or
// empty for infrastructure faults.
func RecordError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if kind != "" {
		span.SetAttributes(attribute.String(AttrErrorKind, kind))
	}
}

func newSDKProvider(cfg Config, exporter sdktrace.SpanExporter, sync bool) *Provider {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// Schemaless avoids schema URL conflicts with resource.Default().
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	// A zero Config leaves the rate unset; config.Validate rejects 0 from users.
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	}

	switch {
	case exporter == nil:
	case sync:
		opts = append(opts, sdktrace.WithSyncer(exporter))
	default:
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// newExporter creates the exporter named by cfg.Exporter. The returned closer
// releases resources the exporter does not own, such as an output file.
func newExporter(cfg Config) (sdktrace.SpanExporter, func() error, error) {
	switch cfg.Exporter {
	case "none", "":
		return nil, nil, nil

	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout exporter:\n%w", err)
		}
		return exp, nil, nil

	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("file_path required for file exporter")
		}

		path := filepath.Clean(cfg.FilePath)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create trace directory:\n%w", err)
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file:\n%w", err)
		}

		exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("create file exporter:\n%w", err)
		}
		return exp, f.Close, nil

	case "otlp":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = DefaultOTLPEndpoint
		}

		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp exporter:\n%w", err)
		}
		return exp, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}
}
