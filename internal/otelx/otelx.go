// Package otelx installs the global OpenTelemetry tracer provider and
// propagators.
package otelx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"

	"github.com/keithlinneman/folio/internal/xerrors"
)

const dialTimeout = 3 * time.Second

type Options struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	Service     string
	Component   string
	Version     string

	// Exporter replaces the OTLP exporter when set.
	Exporter sdktrace.SpanExporter
}

// Init installs a tracer provider and returns its shutdown. When
// tracing is disabled spans are still created locally so trace ids
// reach logs and response headers, but nothing is exported.
func Init(ctx context.Context, o Options) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if !o.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	}

	exp := o.Exporter
	if exp == nil {
		if o.Endpoint == "" {
			return nil, xerrors.New("otelx: tracing enabled without an OTLP endpoint")
		}
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(o.Endpoint),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent(userAgent(o))),
		}
		if o.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		var err error
		if exp, err = otlptracegrpc.New(dctx, opts...); err != nil {
			return nil, xerrors.Wrap(err, "create OTLP trace exporter")
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(Sampler(o.SampleRatio)),
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(newResource(ctx, o)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Sampler honours the parent's decision and samples root spans at ratio.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func userAgent(o Options) string {
	ua := o.Service
	if o.Version != "" {
		ua += "/" + o.Version
	}
	return ua
}

func newResource(ctx context.Context, o Options) *resource.Resource {
	name := o.Service
	if o.Component != "" {
		name += "." + o.Component
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(o.Version),
		),
	)
	// detector failures still return a partial resource
	if err != nil && res == nil {
		return resource.Default()
	}
	return res
}
