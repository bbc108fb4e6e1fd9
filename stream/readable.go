package stream

import (
	"context"
	"slices"
	"sync"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/future"
	"github.com/kbukum/streamkit/validation"
)

// ReadableState is the lifecycle state of a Readable.
type ReadableState int

const (
	ReadableStateReadable ReadableState = iota
	ReadableStateClosed
	ReadableStateErrored
)

func (s ReadableState) String() string {
	switch s {
	case ReadableStateReadable:
		return "readable"
	case ReadableStateClosed:
		return "closed"
	case ReadableStateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// sourceAlgorithms is what a Readable drives. Like sinkAlgorithms, every
// method is called with the lock held and must not block.
type sourceAlgorithms interface {
	start() *future.Signal
	pull() *future.Signal
	cancel(reason error) *future.Signal
}

// ReadResult is the outcome of a read. Done is set once the readable has
// closed and drained; Value is then the zero value.
type ReadResult[T any] struct {
	Value T
	Done  bool
}

type readRequest[T any] = future.Future[ReadResult[T]]

// Readable is the output side of a stream. Chunks are queued up to the
// high-water mark and handed to readers in order; the source is pulled
// lazily whenever there is room or a reader is waiting.
//
// Unexported methods require mu to be held.
type Readable[T any] struct {
	mu  *sync.Mutex
	mon *monitor

	state        ReadableState
	storedErr    error
	disturbed    bool
	readRequests []*readRequest[T]
	closed       *future.Signal

	queue          *sizedQueue[T]
	hwm            float64
	size           SizeFunc[T]
	started        bool
	closeRequested bool
	pulling        bool
	pullAgain      bool
	source         sourceAlgorithms
}

// newReadable allocates a readable driving source. The caller wires any
// back-references and then calls setUp with mu held.
func newReadable[T any](mu *sync.Mutex, mon *monitor, source sourceAlgorithms, hwm float64, size SizeFunc[T]) *Readable[T] {
	return &Readable[T]{
		mu:     mu,
		mon:    mon,
		closed: future.NewSignal(),
		queue:  newSizedQueue[T](),
		hwm:    hwm,
		size:   size,
		source: source,
	}
}

func (r *Readable[T]) setUp() {
	startSig := r.source.start()
	react(r.mu, startSig, func() {
		r.started = true
		r.callPullIfNeeded()
	}, r.controllerError)
}

func (r *Readable[T]) check(op string) error {
	if r == nil || r.mu == nil {
		return errors.InvalidState(op, "readable is not initialized")
	}
	return nil
}

// ReadAsync requests the next chunk.
func (r *Readable[T]) ReadAsync() *future.Future[ReadResult[T]] {
	if err := r.check("read"); err != nil {
		return future.Rejected[ReadResult[T]](err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Read returns the next chunk. ok is false once the readable has closed and
// drained. If ctx is canceled before a chunk arrives the request is
// withdrawn, so no chunk is lost.
func (r *Readable[T]) Read(ctx context.Context) (value T, ok bool, err error) {
	if err := r.check("read"); err != nil {
		return value, false, err
	}
	req := r.ReadAsync()
	select {
	case <-req.Done():
	case <-ctx.Done():
		r.mu.Lock()
		withdrawn := r.withdraw(req)
		r.mu.Unlock()
		if withdrawn {
			return value, false, ctx.Err()
		}
	}
	res, err := req.Result()
	if err != nil || res.Done {
		return value, false, err
	}
	return res.Value, true, nil
}

// CancelAsync closes the readable, discards queued chunks and lets the
// source clean up. A nil reason becomes a CANCELED error.
func (r *Readable[T]) CancelAsync(reason error) *future.Signal {
	if err := r.check(algoCancel); err != nil {
		return future.RejectedSignal(err)
	}
	if reason == nil {
		reason = errors.Canceled()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel(reason)
}

// Cancel cancels the readable and waits for the source to clean up.
func (r *Readable[T]) Cancel(ctx context.Context, reason error) error {
	_, err := r.CancelAsync(reason).Wait(ctx)
	return err
}

// Closed returns a signal fulfilled when the readable closes and rejected
// when it errors.
func (r *Readable[T]) Closed() *future.Signal {
	if err := r.check("closed"); err != nil {
		return future.RejectedSignal(err)
	}
	return r.closed
}

// DesiredSize is the room left below the high-water mark. ok is false once
// the readable has errored.
func (r *Readable[T]) DesiredSize() (size float64, ok bool) {
	if r.check("desiredSize") != nil {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desiredSize()
}

// State returns the current state.
func (r *Readable[T]) State() ReadableState {
	if r.check("state") != nil {
		return ReadableStateErrored
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the stored error, if any.
func (r *Readable[T]) Err() error {
	if err := r.check("err"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.storedErr
}

// Disturbed reports whether the readable has been read from or canceled.
func (r *Readable[T]) Disturbed() bool {
	if r.check("disturbed") != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disturbed
}

func (r *Readable[T]) read() *readRequest[T] {
	r.disturbed = true
	switch r.state {
	case ReadableStateClosed:
		return future.Resolved(ReadResult[T]{Done: true})
	case ReadableStateErrored:
		return future.Rejected[ReadResult[T]](r.storedErr)
	}

	req := future.New[ReadResult[T]]()
	if item, ok := r.queue.dequeue(); ok {
		if r.closeRequested && r.queue.empty() {
			r.clearAlgorithms()
			r.close()
		} else {
			r.callPullIfNeeded()
		}
		req.Resolve(ReadResult[T]{Value: item.value})
		return req
	}
	r.readRequests = append(r.readRequests, req)
	r.callPullIfNeeded()
	return req
}

func (r *Readable[T]) withdraw(req *readRequest[T]) bool {
	i := slices.Index(r.readRequests, req)
	if i < 0 {
		return false
	}
	r.readRequests = slices.Delete(r.readRequests, i, i+1)
	return true
}

func (r *Readable[T]) cancel(reason error) *future.Signal {
	r.disturbed = true
	switch r.state {
	case ReadableStateClosed:
		return future.ResolvedSignal()
	case ReadableStateErrored:
		return future.RejectedSignal(r.storedErr)
	}
	r.close()
	r.queue.reset()

	var p *future.Signal
	if source := r.source; source != nil {
		p = source.cancel(reason)
	} else {
		p = future.ResolvedSignal()
	}
	r.clearAlgorithms()
	return p
}

// close moves the readable to closed and ends every pending read.
func (r *Readable[T]) close() {
	r.state = ReadableStateClosed
	for _, req := range r.readRequests {
		req.Resolve(ReadResult[T]{Done: true})
	}
	r.readRequests = nil
	future.Fire(r.closed)
	r.mon.ended("readable", r.state.String(), nil)
}

func (r *Readable[T]) fail(err error) {
	r.state = ReadableStateErrored
	r.storedErr = err
	for _, req := range r.readRequests {
		req.Reject(err)
	}
	r.readRequests = nil
	r.closed.Reject(err)
	r.mon.ended("readable", r.state.String(), err)
}

func (r *Readable[T]) desiredSize() (float64, bool) {
	switch r.state {
	case ReadableStateErrored:
		return 0, false
	case ReadableStateClosed:
		return 0, true
	}
	return r.hwm - r.queue.total, true
}

func (r *Readable[T]) canCloseOrEnqueue() bool {
	return !r.closeRequested && r.state == ReadableStateReadable
}

func (r *Readable[T]) shouldCallPull() bool {
	if !r.canCloseOrEnqueue() || !r.started {
		return false
	}
	if len(r.readRequests) > 0 {
		return true
	}
	size, _ := r.desiredSize()
	return size > 0
}

func (r *Readable[T]) hasBackpressure() bool {
	return !r.shouldCallPull()
}

func (r *Readable[T]) clearAlgorithms() {
	r.source = nil
	r.size = nil
}

func (r *Readable[T]) callPullIfNeeded() {
	if !r.shouldCallPull() {
		return
	}
	if r.pulling {
		r.pullAgain = true
		return
	}
	r.pulling = true
	p := r.source.pull()
	reactUntil(r.mu, p, r.closed.Done(), func() {
		r.pulling = false
		if r.pullAgain {
			r.pullAgain = false
			r.callPullIfNeeded()
		}
	}, r.controllerError)
}

// controllerClose requests a close; the readable closes once drained.
func (r *Readable[T]) controllerClose() {
	if !r.canCloseOrEnqueue() {
		return
	}
	r.closeRequested = true
	if r.queue.empty() {
		r.clearAlgorithms()
		r.close()
	}
}

// controllerEnqueue hands chunk to a waiting reader or queues it. A failure
// to measure or queue the chunk errors the readable.
func (r *Readable[T]) controllerEnqueue(chunk T) error {
	if !r.canCloseOrEnqueue() {
		return errors.InvalidState("enqueue", "the readable is closing or no longer readable")
	}
	if len(r.readRequests) > 0 {
		req := r.readRequests[0]
		r.readRequests = r.readRequests[1:]
		req.Resolve(ReadResult[T]{Value: chunk})
	} else {
		size, err := measure(r.size, chunk)
		if err == nil {
			err = r.queue.enqueue(chunk, size)
		}
		if err != nil {
			r.controllerError(err)
			return err
		}
	}
	r.mon.metrics.RecordEnqueue(r.mon.ctx, r.mon.name)
	r.callPullIfNeeded()
	return nil
}

func (r *Readable[T]) controllerError(err error) {
	if r.state != ReadableStateReadable {
		return
	}
	r.queue.reset()
	r.clearAlgorithms()
	r.fail(err)
}

// UnderlyingSource supplies the callbacks of a standalone Readable. Every
// callback is optional.
type UnderlyingSource[T any] struct {
	Start  func(ctx context.Context, c *ReadableController[T]) error
	Pull   func(ctx context.Context, c *ReadableController[T]) error
	Cancel func(ctx context.Context, reason error) error
}

// ReadableController lets an underlying source feed its readable.
type ReadableController[T any] struct {
	r *Readable[T]
}

func (c *ReadableController[T]) check(op string) error {
	if c == nil || c.r.check(op) != nil {
		return errors.InvalidState(op, "controller is not initialized")
	}
	return nil
}

// Enqueue adds chunk to the readable.
func (c *ReadableController[T]) Enqueue(chunk T) error {
	if err := c.check("enqueue"); err != nil {
		return err
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	return c.r.controllerEnqueue(chunk)
}

// Close closes the readable once its queued chunks have been read.
func (c *ReadableController[T]) Close() error {
	if err := c.check("close"); err != nil {
		return err
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if !c.r.canCloseOrEnqueue() {
		return errors.InvalidState("close", "the readable is closing or no longer readable")
	}
	c.r.controllerClose()
	return nil
}

// Error errors the readable, discarding queued chunks.
func (c *ReadableController[T]) Error(err error) error {
	if cerr := c.check("error"); cerr != nil {
		return cerr
	}
	if err == nil {
		err = errors.Internal(nil)
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.controllerError(err)
	return nil
}

// DesiredSize reports the room left in the readable's queue.
func (c *ReadableController[T]) DesiredSize() (float64, bool) {
	if c.check("desiredSize") != nil {
		return 0, false
	}
	return c.r.DesiredSize()
}

type underlyingSource[T any] struct {
	source UnderlyingSource[T]
	c      *ReadableController[T]
	mon    *monitor
}

func (s *underlyingSource[T]) start() *future.Signal {
	if s.source.Start == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoStart, func(ctx context.Context) error { return s.source.Start(ctx, s.c) })
}

func (s *underlyingSource[T]) pull() *future.Signal {
	if s.source.Pull == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoPull, func(ctx context.Context) error { return s.source.Pull(ctx, s.c) })
}

func (s *underlyingSource[T]) cancel(reason error) *future.Signal {
	if s.source.Cancel == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoCancel, func(ctx context.Context) error { return s.source.Cancel(ctx, reason) })
}

// NewReadable creates a standalone readable over source. A nil source
// produces nothing until canceled. The default strategy allows one queued
// chunk.
func NewReadable[T any](ctx context.Context, source *UnderlyingSource[T], strategy *Strategy[T], opts ...Option) (*Readable[T], error) {
	hwm, size := strategy.resolve(DefaultStandaloneReadableHighWaterMark)
	if err := validateStrategy(validation.New(), "strategy", hwm).Err(); err != nil {
		return nil, err
	}
	if source == nil {
		source = &UnderlyingSource[T]{}
	}

	mu := new(sync.Mutex)
	adapter := &underlyingSource[T]{source: *source, c: &ReadableController[T]{}, mon: newMonitor(ctx, opts)}
	r := newReadable[T](mu, adapter.mon, adapter, hwm, size)
	adapter.c.r = r

	mu.Lock()
	defer mu.Unlock()
	r.setUp()
	return r, nil
}
