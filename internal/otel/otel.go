// Package otel wires OpenTelemetry tracing to the eventbus: HTTP requests,
// projection batches, and reference-join sub-queries each get a span.
package otel

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/skaldby/projoin/internal/eventbus"
	"github.com/skaldby/projoin/internal/events"
	"github.com/skaldby/projoin/internal/reqid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("projoin")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer       trace.Tracer
	httpSpans    sync.Map // rid -> trace.Span
	projectSpans sync.Map // rid -> trace.Span
	subqSpans    sync.Map // rid/field -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Method),
			attribute.String("http.target", e.Path),
		)
		s.httpSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ProjectStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.httpSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "projection.batch")
		span.SetAttributes(
			attribute.String("projection.doc_type", e.DocType),
			attribute.Int("projection.results", e.Results),
			attribute.StringSlice("projection.join_fields", e.JoinFields),
		)
		s.projectSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ProjectFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.projectSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SubQueryStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.projectSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		} else if v, ok := s.httpSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "projection.subquery")
		span.SetAttributes(
			attribute.String("projection.ref_field", e.RefField),
			attribute.String("projection.target_type", e.TargetType),
			attribute.Int("projection.id_count", e.IDs),
		)
		s.subqSpans.Store(subqKey(rid, e.RefField), span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SubQueryFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.subqSpans.LoadAndDelete(subqKey(rid, e.RefField))
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("projection.fetched", e.Fetched))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}

func subqKey(rid int64, field string) string {
	return fmt.Sprintf("%d/%s", rid, field)
}
