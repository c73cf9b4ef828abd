// Package otel records HTTP requests and GraphQL operations as OpenTelemetry
// spans, driven by the event bus.
package otel

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/graphqlerr/internal/errfmt"
	"github.com/hanpama/graphqlerr/internal/eventbus"
	"github.com/hanpama/graphqlerr/internal/events"
	"github.com/hanpama/graphqlerr/internal/reqid"
)

// Setup exports spans to the OTLP collector at endpoint and subscribes to the
// global event bus. If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(tp.Tracer("graphqlerr"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe starts recording spans with tracer and returns a function that
// stops it.
func Subscribe(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer    trace.Tracer
	// Keyed by the server-generated request id, never the client's.
	httpSpans sync.Map // request id -> trace.Span
	gqlSpans  sync.Map // request id -> trace.Span
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(s.httpStart),
		eventbus.Subscribe(s.httpFinish),
		eventbus.Subscribe(s.graphqlStart),
		eventbus.Subscribe(s.graphqlFinish),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) httpStart(ctx context.Context, e events.HTTPStart) {
	rid, ok := reqid.FromContext(ctx)
	if !ok {
		return
	}
	_, span := s.tracer.Start(ctx, "http.request")
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
		attribute.String("http.request_id", reqid.Reported(ctx)),
	)
	s.httpSpans.Store(rid, span)
}

func (s *subscriber) httpFinish(ctx context.Context, e events.HTTPFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.httpSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(
		semconv.HTTPStatusCodeKey.Int(e.Status),
		attribute.Int("graphql.error_count", e.Errors),
	)
	if e.Status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}

func (s *subscriber) graphqlStart(ctx context.Context, e events.GraphQLStart) {
	rid, ok := reqid.FromContext(ctx)
	if !ok {
		return
	}
	parent := ctx
	if v, ok := s.httpSpans.Load(rid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
	)
	s.gqlSpans.Store(rid, span)
}

func (s *subscriber) graphqlFinish(ctx context.Context, e events.GraphQLFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("graphql.error_count", len(e.Formatted)))
	for _, fe := range e.Formatted {
		span.AddEvent("graphql.error", trace.WithAttributes(errorAttributes(fe)...))
	}
	if len(e.Formatted) > 0 {
		span.SetStatus(codes.Error, e.Formatted[0].Message)
	}
	span.End()
}

func errorAttributes(fe errfmt.FormattedError) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("graphql.error.message", fe.Message)}
	if len(fe.Path) > 0 {
		path := make([]string, len(fe.Path))
		for i, p := range fe.Path {
			path[i] = fmt.Sprint(p)
		}
		attrs = append(attrs, attribute.StringSlice("graphql.error.path", path))
	}
	if len(fe.Locations) > 0 {
		attrs = append(attrs,
			attribute.Int("graphql.error.line", fe.Locations[0].Line),
			attribute.Int("graphql.error.column", fe.Locations[0].Column),
		)
	}
	if exc, ok := fe.Extensions[errfmt.ExceptionKey].(errfmt.Exception); ok && len(exc.Stacktrace) > 0 {
		attrs = append(attrs, attribute.String("exception.stacktrace", exc.Stacktrace[len(exc.Stacktrace)-1]))
	}
	return attrs
}
