package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpkit/mcp-go/pkg/session"
)

// ExporterType selects how spans leave the process.
type ExporterType string

const (
	// ExporterOTLPGRPC exports spans via OTLP over gRPC.
	ExporterOTLPGRPC ExporterType = "otlp-grpc"

	// ExporterOTLPHTTP exports spans via OTLP over HTTP.
	ExporterOTLPHTTP ExporterType = "otlp-http"

	// ExporterNone keeps spans in-process; useful for tests.
	ExporterNone ExporterType = "none"
)

// TracingConfig configures the OpenTelemetry tracing provider.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// ExporterType defaults to ExporterNone.
	ExporterType ExporterType

	// Endpoint is the OTLP collector address, host:port for gRPC or a
	// base URL for HTTP.
	Endpoint string

	// Insecure disables transport security toward the collector.
	Insecure bool

	// SampleRate in [0,1]; 0 means always sample.
	SampleRate float64
}

// TracingProvider owns a tracer provider and exposes a session hook that
// opens one span per request, outbound and inbound.
type TracingProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracingProvider builds a tracing provider from config.
func NewTracingProvider(ctx context.Context, config TracingConfig) (*TracingProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = "mcp-go"
	}
	if config.SampleRate <= 0 || config.SampleRate > 1 {
		config.SampleRate = 1
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	}

	switch config.ExporterType {
	case ExporterOTLPGRPC:
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case ExporterOTLPHTTP:
		clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case ExporterNone, "":
	default:
		return nil, fmt.Errorf("unknown exporter type %q", config.ExporterType)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	return &TracingProvider{
		provider: provider,
		tracer:   provider.Tracer("github.com/mcpkit/mcp-go"),
	}, nil
}

// Hook returns the session hook that records spans.
func (p *TracingProvider) Hook() session.Hook {
	return &tracingHook{tracer: p.tracer}
}

// Shutdown flushes and stops the tracer provider.
func (p *TracingProvider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

type tracingHook struct {
	tracer trace.Tracer
}

func (h *tracingHook) OnRequest(ctx context.Context, direction session.Direction, method string) (context.Context, func(string)) {
	kind := trace.SpanKindClient
	if direction == session.DirectionInbound {
		kind = trace.SpanKindServer
	}
	ctx, span := h.tracer.Start(ctx, "mcp."+method,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("mcp.direction", string(direction)),
		))
	return ctx, func(status string) {
		if status != "ok" {
			span.SetStatus(codes.Error, status)
		}
		span.End()
	}
}

func (h *tracingHook) OnNotification(ctx context.Context, direction session.Direction, method string) {
	_, span := h.tracer.Start(ctx, "mcp."+method,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("mcp.direction", string(direction)),
		))
	span.End()
}
