package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Span struct {
	span    trace.Span
	logger  *zap.Logger
	name    string
	started time.Time
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:    span,
		logger:  logger,
		name:    name,
		started: time.Now(),
	}
}

// End closes the span, marking it failed when err is non-nil.
func (s *Span) End(err error) {
	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()

	if s.logger != nil {
		s.logger.Debug("Span finished",
			zap.String("span", s.name),
			zap.Duration("elapsed", time.Since(s.started)),
			zap.Bool("failed", err != nil))
	}
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
