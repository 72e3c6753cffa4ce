package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used for provider spans.
const InstrumentationName = "github.com/aeroweather/aeroweather/internal/metar"

const (
	AttrProvider = attribute.Key("weather.provider")
	AttrStation  = attribute.Key("weather.station")
	AttrOutcome  = attribute.Key("weather.outcome")
)

// StartProviderSpan opens a client span named provider.<name> around one
// upstream weather call. A nil tracer uses the global provider.
func StartProviderSpan(ctx context.Context, tracer trace.Tracer, provider, station string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(InstrumentationName)
	}
	return tracer.Start(ctx, "provider."+provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrProvider.String(provider), AttrStation.String(station)),
	)
}

// EndProviderSpan tags the outcome, records err if any, and ends the span.
func EndProviderSpan(span trace.Span, outcome string, err error) {
	defer span.End()

	span.SetAttributes(AttrOutcome.String(outcome))
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
