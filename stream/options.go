package stream

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
)

type options struct {
	id      uuid.UUID
	name    string
	logger  *logger.Logger
	metrics *observability.StreamMetrics
	tracer  trace.Tracer
}

// Option configures a transform or a standalone writable/readable.
type Option func(*options)

// WithName labels the stream in logs, spans and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithID sets the stream's ID instead of a random one.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger. The default is logger.Get("stream").
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metric instruments. The default records on the
// global meter provider.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used for algorithm spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
