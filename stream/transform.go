package stream

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/future"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/validation"
)

// Transformer holds the algorithms of a Transform. Every field is optional.
//
// Start runs once, during New. Transform runs for each written chunk, one at
// a time and in order; the default enqueues the chunk unchanged, which
// requires it to be an O. Flush runs once after the last chunk when the
// input is closed. Cancel runs at most once, when the input is aborted or
// the output canceled, whichever happens first.
type Transformer[I, O any] struct {
	Start     func(ctx context.Context, c *Controller[O]) error
	Transform func(ctx context.Context, chunk I, c *Controller[O]) error
	Flush     func(ctx context.Context, c *Controller[O]) error
	Cancel    func(ctx context.Context, reason error) error

	// ReadableType and WritableType are reserved and must be empty.
	ReadableType string
	WritableType string
}

// State is the lifecycle state of a Transform as a whole.
type State int

const (
	// StateStarting waits for Start to finish.
	StateStarting State = iota
	// StateFlowing lets writes through to the transform algorithm.
	StateFlowing
	// StateBlocked holds writes back until the output is read.
	StateBlocked
	// StateClosing has a close requested on either side.
	StateClosing
	StateClosed
	StateErrored
	// StateTerminated was ended by Controller.Terminate: the output closed
	// cleanly and the input errored with TERMINATED.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateFlowing:
		return "flowing"
	case StateBlocked:
		return "blocked"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateErrored || s == StateTerminated
}

// Transform is a writable input and a readable output joined by a
// transformer. Chunks written to Input are transformed and read from
// Output; the two sides are kept in step by backpressure and end together.
type Transform[I, O any] struct {
	// mu is shared with both sides. Unexported methods require it.
	mu  sync.Mutex
	mon *monitor

	writable   *Writable[I]
	readable   *Readable[O]
	controller *Controller[O]

	backpressure       bool
	backpressureChange *future.Signal

	transformFn func(ctx context.Context, chunk I, c *Controller[O]) error
	flushFn     func(ctx context.Context, c *Controller[O]) error
	cancelFn    func(ctx context.Context, reason error) error

	start      *future.Signal
	finish     *future.Signal
	flushed    *future.Signal
	terminated bool
}

// New creates a transform. A nil transformer enqueues every chunk
// unchanged. A nil strategy selects the side's default: the input buffers
// one chunk and the output none.
//
// Start, if set, runs before New returns. If it fails both sides end
// errored with its error; New itself only fails on invalid arguments.
func New[I, O any](ctx context.Context, tr *Transformer[I, O], writable *Strategy[I], readable *Strategy[O], opts ...Option) (*Transform[I, O], error) {
	if tr == nil {
		tr = &Transformer[I, O]{}
	}
	whwm, wsize := writable.resolve(DefaultWritableHighWaterMark)
	rhwm, rsize := readable.resolve(DefaultReadableHighWaterMark)

	v := validation.New().
		Empty("readableType", tr.ReadableType).
		Empty("writableType", tr.WritableType)
	validateStrategy(v, "writableStrategy", whwm)
	validateStrategy(v, "readableStrategy", rhwm)
	if err := v.Err(); err != nil {
		return nil, err
	}

	t := &Transform[I, O]{
		mon:         newMonitor(ctx, opts),
		start:       future.NewSignal(),
		transformFn: tr.Transform,
		flushFn:     tr.Flush,
		cancelFn:    tr.Cancel,
	}
	if t.transformFn == nil {
		t.transformFn = enqueueUnchanged[I, O]
	}
	t.controller = &Controller[O]{core: t}
	t.writable = newWritable[I](&t.mu, t.mon, transformSink[I, O]{t}, whwm, wsize)
	t.readable = newReadable[O](&t.mu, t.mon, transformSource[I, O]{t}, rhwm, rsize)

	t.mu.Lock()
	t.setBackpressure(true)
	t.writable.setUp()
	t.readable.setUp()
	t.mu.Unlock()

	t.mon.log.Debug("transform created", logger.Fields(
		"writable_high_water_mark", whwm,
		"readable_high_water_mark", rhwm,
	))

	if tr.Start == nil {
		future.Fire(t.start)
		return t, nil
	}
	if err := t.mon.call(algoStart, func(ctx context.Context) error { return tr.Start(ctx, t.controller) }); err != nil {
		t.start.Reject(err)
		return t, nil
	}
	future.Fire(t.start)
	return t, nil
}

func enqueueUnchanged[I, O any](_ context.Context, chunk I, c *Controller[O]) error {
	out, ok := any(chunk).(O)
	if !ok && !(any(chunk) == nil && nilable[O]()) {
		return errors.InvalidArgument("chunk", fmt.Sprintf("%T cannot be enqueued as %s without a transform", chunk, reflect.TypeFor[O]()))
	}
	return c.Enqueue(out)
}

// nilable reports whether nil is a valid O.
func nilable[O any]() bool {
	switch reflect.TypeFor[O]().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// NewFromConfig creates a transform whose strategies, name and ID come from
// cfg. Size functions are not configurable; every chunk counts 1. Options
// are applied after the ones derived from cfg.
func NewFromConfig[I, O any](ctx context.Context, cfg Config, tr *Transformer[I, O], opts ...Option) (*Transform[I, O], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id, err := validation.ParseUUID("id", cfg.ID)
	if err != nil {
		return nil, err
	}
	base := []Option{WithName(cfg.Name)}
	if id != uuid.Nil {
		base = append(base, WithID(id))
	}
	return New(ctx, tr,
		CountStrategy[I](*cfg.Writable.HighWaterMark),
		CountStrategy[O](*cfg.Readable.HighWaterMark),
		append(base, opts...)...,
	)
}

// Identity creates a transform that passes chunks through unchanged.
func Identity[T any](ctx context.Context, writable, readable *Strategy[T], opts ...Option) (*Transform[T, T], error) {
	return New[T, T](ctx, nil, writable, readable, opts...)
}

func (t *Transform[I, O]) check() bool {
	return t != nil && t.mon != nil
}

// Input is the writable side.
func (t *Transform[I, O]) Input() *Writable[I] {
	if !t.check() {
		return nil
	}
	return t.writable
}

// Output is the readable side.
func (t *Transform[I, O]) Output() *Readable[O] {
	if !t.check() {
		return nil
	}
	return t.readable
}

// ID identifies the transform in logs, spans and metrics.
func (t *Transform[I, O]) ID() uuid.UUID {
	if !t.check() {
		return uuid.Nil
	}
	return t.mon.id
}

// Name is the label set with WithName.
func (t *Transform[I, O]) Name() string {
	if !t.check() {
		return ""
	}
	return t.mon.name
}

// Backpressure reports whether writes are currently held back.
func (t *Transform[I, O]) Backpressure() bool {
	if !t.check() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backpressure
}

// State derives the transform's state from both sides.
func (t *Transform[I, O]) State() State {
	if !t.check() {
		return StateErrored
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w, r := t.writable, t.readable
	switch {
	case t.terminated:
		return StateTerminated
	case r.state == ReadableStateErrored || w.state == WritableStateErrored || w.state == WritableStateErroring:
		return StateErrored
	case r.state == ReadableStateClosed && w.state == WritableStateClosed:
		return StateClosed
	case r.state == ReadableStateClosed || r.closeRequested || w.closeQueuedOrInFlight():
		return StateClosing
	case !t.start.Settled():
		return StateStarting
	case t.backpressure:
		return StateBlocked
	default:
		return StateFlowing
	}
}

// Err returns the error that ended the transform: the output's if it
// errored, else the input's. It is nil while running, after a clean close
// and on the output side of a terminate.
func (t *Transform[I, O]) Err() error {
	if !t.check() {
		return errors.InvalidState("err", "transform is not initialized")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminated {
		return nil
	}
	if err := t.readable.storedErr; err != nil {
		return err
	}
	return t.writable.storedErr
}
