package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/future"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
)

// Algorithm names, as they appear in errors, logs, spans and metrics.
const (
	algoStart     = "start"
	algoTransform = "transform"
	algoFlush     = "flush"
	algoCancel    = "cancel"
	algoWrite     = "write"
	algoClose     = "close"
	algoAbort     = "abort"
	algoPull      = "pull"
	algoSize      = "size"
)

var spanNames = map[string]string{
	algoStart:     observability.SpanStart,
	algoTransform: observability.SpanTransform,
	algoFlush:     observability.SpanFlush,
	algoCancel:    observability.SpanCancel,
	algoWrite:     observability.SpanWrite,
	algoClose:     observability.SpanClose,
	algoAbort:     observability.SpanAbort,
	algoPull:      observability.SpanPull,
}

var defaultMetrics = sync.OnceValue(observability.DefaultStreamMetrics)

// monitor runs user algorithms and reports on them. It is shared by a
// transform and both of its sides.
type monitor struct {
	id      uuid.UUID
	name    string
	ctx     context.Context
	log     *logger.Logger
	metrics *observability.StreamMetrics
	tracer  trace.Tracer
}

func newMonitor(ctx context.Context, opts []Option) *monitor {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	if o.logger == nil {
		o.logger = logger.Get("stream")
	}
	if o.metrics == nil {
		o.metrics = defaultMetrics()
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer(observability.InstrumentationName)
	}
	return &monitor{
		id:      o.id,
		name:    o.name,
		ctx:     context.WithoutCancel(ctx),
		log:     o.logger.WithStream(o.id.String(), o.name),
		metrics: o.metrics,
		tracer:  o.tracer,
	}
}

// invoke runs fn on its own goroutine and returns a signal settled with its
// outcome. It never blocks, so it is safe to call with the stream lock held.
func (m *monitor) invoke(algorithm string, fn func(ctx context.Context) error) *future.Signal {
	s := future.NewSignal()
	go func() {
		if err := m.call(algorithm, fn); err != nil {
			s.Reject(err)
			return
		}
		future.Fire(s)
	}()
	return s
}

// call runs fn on the calling goroutine inside a span, converting a panic
// into an ALGORITHM_FAILURE error.
func (m *monitor) call(algorithm string, fn func(ctx context.Context) error) error {
	name, ok := spanNames[algorithm]
	if !ok {
		name = "stream." + algorithm
	}
	ctx, span := m.tracer.Start(m.ctx, name, trace.WithAttributes(
		attribute.String(observability.AttrStreamID, m.id.String()),
		attribute.String(observability.AttrStreamName, m.name),
		attribute.String(observability.AttrAlgorithm, algorithm),
	))
	defer span.End()

	start := time.Now()
	var err error
	if rec := panics.Try(func() { err = fn(ctx) }); rec != nil {
		err = errors.AlgorithmFailure(algorithm, rec.AsError())
	}
	elapsed := time.Since(start)

	observability.EndSpanError(span, err)
	m.metrics.RecordAlgorithm(ctx, m.name, algorithm, elapsed, err)
	if err != nil {
		m.log.WithContext(ctx).Debug("algorithm failed", logger.AlgorithmFields(algorithm, elapsed, err))
	}
	return err
}

func (m *monitor) backpressure(value bool) {
	m.metrics.RecordBackpressure(m.ctx, m.name, value)
	m.log.Debug("backpressure changed", logger.Fields(logger.FieldBackpressure, value))
}

// ended reports that one side of a stream reached a terminal state.
func (m *monitor) ended(side, state string, err error) {
	m.metrics.RecordTerminal(m.ctx, m.name, state)
	fields := logger.Fields(logger.FieldComponent, side, logger.FieldState, state)
	switch {
	case err == nil:
		m.log.Info("stream side ended", fields)
	case errors.IsTerminalCode(errors.CodeOf(err)):
		m.log.WithError(err).Info("stream side ended", fields)
	default:
		m.log.WithError(err).Warn("stream side failed", fields)
	}
}

// react waits for s on a new goroutine, then runs onFulfilled or onRejected
// with mu held.
func react(mu *sync.Mutex, s *future.Signal, onFulfilled func(), onRejected func(error)) {
	reactUntil(mu, s, nil, onFulfilled, onRejected)
}

// reactUntil is react that gives up once stop is closed.
func reactUntil(mu *sync.Mutex, s *future.Signal, stop <-chan struct{}, onFulfilled func(), onRejected func(error)) {
	go func() {
		select {
		case <-s.Done():
		case <-stop:
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err := s.Err(); err != nil {
			onRejected(err)
			return
		}
		onFulfilled()
	}()
}
