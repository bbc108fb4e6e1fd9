package stream

import (
	"context"
	"sync"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/future"
	"github.com/kbukum/streamkit/validation"
)

// WritableState is the lifecycle state of a Writable.
type WritableState int

const (
	// WritableStateWritable accepts writes.
	WritableStateWritable WritableState = iota
	// WritableStateErroring has a stored error and is waiting for the
	// in-flight operation to finish before becoming errored.
	WritableStateErroring
	// WritableStateErrored rejects everything with the stored error.
	WritableStateErrored
	// WritableStateClosed has flushed and closed its sink.
	WritableStateClosed
)

func (s WritableState) String() string {
	switch s {
	case WritableStateWritable:
		return "writable"
	case WritableStateErroring:
		return "erroring"
	case WritableStateErrored:
		return "errored"
	case WritableStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// sinkAlgorithms is what a Writable drives. Every method is called with the
// writable's lock held and must not block; long-running work is started on
// another goroutine and reported through the returned signal.
type sinkAlgorithms[T any] interface {
	start() *future.Signal
	write(chunk T) *future.Signal
	close() *future.Signal
	abort(reason error) *future.Signal
}

type abortRequest struct {
	promise            *future.Signal
	reason             error
	wasAlreadyErroring bool
}

// Writable is the input side of a stream. Writes are queued and handed to
// the sink one at a time, in order.
//
// Unexported methods require mu to be held.
type Writable[T any] struct {
	mu  *sync.Mutex
	mon *monitor

	state         WritableState
	storedErr     error
	writeRequests []*future.Signal
	inFlightWrite *future.Signal
	closeRequest  *future.Signal
	inFlightClose *future.Signal
	pendingAbort  *abortRequest
	backpressure  bool
	ready         *future.Signal
	closed        *future.Signal

	queue   *sizedQueue[T]
	hwm     float64
	size    SizeFunc[T]
	started bool
	sink    sinkAlgorithms[T]
}

// newWritable allocates a writable driving sink. The caller wires any
// back-references and then calls setUp with mu held.
func newWritable[T any](mu *sync.Mutex, mon *monitor, sink sinkAlgorithms[T], hwm float64, size SizeFunc[T]) *Writable[T] {
	return &Writable[T]{
		mu:     mu,
		mon:    mon,
		ready:  future.ResolvedSignal(),
		closed: future.NewSignal(),
		queue:  newSizedQueue[T](),
		hwm:    hwm,
		size:   size,
		sink:   sink,
	}
}

func (w *Writable[T]) setUp() {
	startSig := w.sink.start()
	w.updateBackpressure(w.computeBackpressure())
	react(w.mu, startSig, func() {
		w.started = true
		w.advanceQueueIfNeeded()
	}, func(err error) {
		w.started = true
		w.dealWithRejection(err)
	})
}

func (w *Writable[T]) check(op string) error {
	if w == nil || w.mu == nil {
		return errors.InvalidState(op, "writable is not initialized")
	}
	return nil
}

// WriteAsync queues chunk and returns a signal settled once the sink has
// processed it.
func (w *Writable[T]) WriteAsync(chunk T) *future.Signal {
	if err := w.check(algoWrite); err != nil {
		return future.RejectedSignal(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(chunk)
}

// Write queues chunk and waits for the sink to process it. A canceled ctx
// stops the wait; the chunk stays queued.
func (w *Writable[T]) Write(ctx context.Context, chunk T) error {
	_, err := w.WriteAsync(chunk).Wait(ctx)
	return err
}

// CloseAsync requests a close once every queued chunk has been written.
func (w *Writable[T]) CloseAsync() *future.Signal {
	if err := w.check(algoClose); err != nil {
		return future.RejectedSignal(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closeQueuedOrInFlight() {
		return future.RejectedSignal(errors.InvalidState(algoClose, "close has already been requested"))
	}
	return w.closeStream()
}

// Close requests a close and waits for the sink to finish.
func (w *Writable[T]) Close(ctx context.Context) error {
	_, err := w.CloseAsync().Wait(ctx)
	return err
}

// AbortAsync errors the writable with reason, discarding queued chunks, and
// lets the sink clean up. A nil reason becomes an ABORTED error.
func (w *Writable[T]) AbortAsync(reason error) *future.Signal {
	if err := w.check(algoAbort); err != nil {
		return future.RejectedSignal(err)
	}
	if reason == nil {
		reason = errors.Aborted()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.abort(reason)
}

// Abort aborts the writable and waits for the sink to clean up.
func (w *Writable[T]) Abort(ctx context.Context, reason error) error {
	_, err := w.AbortAsync(reason).Wait(ctx)
	return err
}

// Ready returns a signal that is settled while the writable has room
// below its high-water mark. It is replaced whenever backpressure returns.
func (w *Writable[T]) Ready() *future.Signal {
	if err := w.check("ready"); err != nil {
		return future.RejectedSignal(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// WaitReady blocks until the writable has room or fails.
func (w *Writable[T]) WaitReady(ctx context.Context) error {
	_, err := w.Ready().Wait(ctx)
	return err
}

// Closed returns a signal fulfilled when the writable closes and rejected
// when it errors.
func (w *Writable[T]) Closed() *future.Signal {
	if err := w.check("closed"); err != nil {
		return future.RejectedSignal(err)
	}
	return w.closed
}

// DesiredSize is the room left below the high-water mark. ok is false while
// the writable is erroring or errored.
func (w *Writable[T]) DesiredSize() (size float64, ok bool) {
	if w.check("desiredSize") != nil {
		return 0, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case WritableStateErroring, WritableStateErrored:
		return 0, false
	case WritableStateClosed:
		return 0, true
	}
	return w.desiredSize(), true
}

// State returns the current state.
func (w *Writable[T]) State() WritableState {
	if w.check("state") != nil {
		return WritableStateErrored
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the stored error, if any.
func (w *Writable[T]) Err() error {
	if err := w.check("err"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.storedErr
}

func (w *Writable[T]) write(chunk T) *future.Signal {
	size := w.chunkSize(chunk)

	switch w.state {
	case WritableStateErrored, WritableStateErroring:
		return future.RejectedSignal(w.storedErr)
	case WritableStateClosed:
		return future.RejectedSignal(errors.InvalidState(algoWrite, "the writable is closed"))
	}
	if w.closeQueuedOrInFlight() {
		return future.RejectedSignal(errors.InvalidState(algoWrite, "the writable is closing"))
	}

	req := future.NewSignal()
	w.writeRequests = append(w.writeRequests, req)
	w.mon.metrics.RecordWrite(w.mon.ctx, w.mon.name)

	if err := w.queue.enqueue(chunk, size); err != nil {
		w.errorIfNeeded(err)
		return req
	}
	if !w.closeQueuedOrInFlight() && w.state == WritableStateWritable {
		w.updateBackpressure(w.computeBackpressure())
	}
	w.advanceQueueIfNeeded()
	return req
}

func (w *Writable[T]) closeStream() *future.Signal {
	if w.state == WritableStateClosed || w.state == WritableStateErrored {
		return future.RejectedSignal(errors.InvalidState(algoClose, "the writable is "+w.state.String()))
	}
	req := future.NewSignal()
	w.closeRequest = req
	if w.backpressure && w.state == WritableStateWritable {
		future.Fire(w.ready)
	}
	w.queue.enqueueClose()
	w.advanceQueueIfNeeded()
	return req
}

func (w *Writable[T]) abort(reason error) *future.Signal {
	if w.state == WritableStateClosed || w.state == WritableStateErrored {
		return future.ResolvedSignal()
	}
	if w.pendingAbort != nil {
		return w.pendingAbort.promise
	}
	wasAlreadyErroring := w.state == WritableStateErroring
	if wasAlreadyErroring {
		reason = nil
	}
	req := &abortRequest{
		promise:            future.NewSignal(),
		reason:             reason,
		wasAlreadyErroring: wasAlreadyErroring,
	}
	w.pendingAbort = req
	if !wasAlreadyErroring {
		w.startErroring(reason)
	}
	return req.promise
}

func (w *Writable[T]) chunkSize(chunk T) float64 {
	if w.size == nil {
		return 1
	}
	n, err := measure(w.size, chunk)
	if err != nil {
		w.errorIfNeeded(err)
		return 1
	}
	return n
}

func (w *Writable[T]) desiredSize() float64 {
	return w.hwm - w.queue.total
}

func (w *Writable[T]) computeBackpressure() bool {
	return w.desiredSize() <= 0
}

func (w *Writable[T]) closeQueuedOrInFlight() bool {
	return w.closeRequest != nil || w.inFlightClose != nil
}

func (w *Writable[T]) hasOperationMarkedInFlight() bool {
	return w.inFlightWrite != nil || w.inFlightClose != nil
}

func (w *Writable[T]) updateBackpressure(bp bool) {
	if bp != w.backpressure {
		if bp {
			w.ready = future.NewSignal()
		} else {
			future.Fire(w.ready)
		}
	}
	w.backpressure = bp
}

func (w *Writable[T]) clearAlgorithms() {
	w.sink = nil
	w.size = nil
}

// errorIfNeeded errors a writable that is still writable.
func (w *Writable[T]) errorIfNeeded(err error) {
	if w.state == WritableStateWritable {
		w.clearAlgorithms()
		w.startErroring(err)
	}
}

func (w *Writable[T]) startErroring(reason error) {
	w.state = WritableStateErroring
	w.storedErr = reason
	if !w.ready.Reject(reason) {
		w.ready = future.RejectedSignal(reason)
	}
	if !w.hasOperationMarkedInFlight() && w.started {
		w.finishErroring()
	}
}

func (w *Writable[T]) finishErroring() {
	w.state = WritableStateErrored
	w.queue.reset()
	for _, req := range w.writeRequests {
		req.Reject(w.storedErr)
	}
	w.writeRequests = nil
	w.mon.ended("writable", w.state.String(), w.storedErr)

	req := w.pendingAbort
	if req == nil {
		w.rejectCloseAndClosed()
		return
	}
	w.pendingAbort = nil
	if req.wasAlreadyErroring {
		req.promise.Reject(w.storedErr)
		w.rejectCloseAndClosed()
		return
	}

	var p *future.Signal
	if sink := w.sink; sink != nil {
		p = sink.abort(req.reason)
	} else {
		p = future.ResolvedSignal()
	}
	w.clearAlgorithms()
	react(w.mu, p, func() {
		future.Fire(req.promise)
		w.rejectCloseAndClosed()
	}, func(err error) {
		req.promise.Reject(err)
		w.rejectCloseAndClosed()
	})
}

func (w *Writable[T]) rejectCloseAndClosed() {
	if w.closeRequest != nil {
		w.closeRequest.Reject(w.storedErr)
		w.closeRequest = nil
	}
	w.closed.Reject(w.storedErr)
}

func (w *Writable[T]) dealWithRejection(err error) {
	if w.state == WritableStateWritable {
		w.startErroring(err)
		return
	}
	w.finishErroring()
}

func (w *Writable[T]) finishInFlightWrite() {
	future.Fire(w.inFlightWrite)
	w.inFlightWrite = nil
}

func (w *Writable[T]) finishInFlightWriteWithError(err error) {
	w.inFlightWrite.Reject(err)
	w.inFlightWrite = nil
	w.dealWithRejection(err)
}

func (w *Writable[T]) finishInFlightClose() {
	future.Fire(w.inFlightClose)
	w.inFlightClose = nil
	if w.state == WritableStateErroring {
		w.storedErr = nil
		if w.pendingAbort != nil {
			future.Fire(w.pendingAbort.promise)
			w.pendingAbort = nil
		}
	}
	w.state = WritableStateClosed
	future.Fire(w.closed)
	w.mon.ended("writable", w.state.String(), nil)
}

func (w *Writable[T]) finishInFlightCloseWithError(err error) {
	w.inFlightClose.Reject(err)
	w.inFlightClose = nil
	if w.pendingAbort != nil {
		w.pendingAbort.promise.Reject(err)
		w.pendingAbort = nil
	}
	w.dealWithRejection(err)
}

func (w *Writable[T]) advanceQueueIfNeeded() {
	if !w.started || w.inFlightWrite != nil {
		return
	}
	switch w.state {
	case WritableStateErroring:
		w.finishErroring()
		return
	case WritableStateWritable:
	default:
		return
	}
	item, ok := w.queue.peek()
	if !ok {
		return
	}
	if item.close {
		w.processClose()
		return
	}
	w.processWrite(item.value)
}

func (w *Writable[T]) processClose() {
	w.inFlightClose = w.closeRequest
	w.closeRequest = nil
	w.queue.dequeue()

	var p *future.Signal
	if sink := w.sink; sink != nil {
		p = sink.close()
	} else {
		p = future.ResolvedSignal()
	}
	w.clearAlgorithms()
	react(w.mu, p, w.finishInFlightClose, w.finishInFlightCloseWithError)
}

func (w *Writable[T]) processWrite(chunk T) {
	w.inFlightWrite = w.writeRequests[0]
	w.writeRequests = w.writeRequests[1:]

	var p *future.Signal
	if sink := w.sink; sink != nil {
		p = sink.write(chunk)
	} else {
		p = future.ResolvedSignal()
	}
	react(w.mu, p, func() {
		w.finishInFlightWrite()
		w.queue.dequeue()
		if !w.closeQueuedOrInFlight() && w.state == WritableStateWritable {
			w.updateBackpressure(w.computeBackpressure())
		}
		w.advanceQueueIfNeeded()
	}, func(err error) {
		if w.state == WritableStateWritable {
			w.clearAlgorithms()
		}
		w.finishInFlightWriteWithError(err)
	})
}

// UnderlyingSink supplies the callbacks of a standalone Writable. Every
// callback is optional.
type UnderlyingSink[T any] struct {
	Start func(ctx context.Context, c *WritableController[T]) error
	Write func(ctx context.Context, chunk T, c *WritableController[T]) error
	Close func(ctx context.Context) error
	Abort func(ctx context.Context, reason error) error
}

// WritableController lets an underlying sink error its writable.
type WritableController[T any] struct {
	w *Writable[T]
}

// Error errors the writable if it is still writable.
func (c *WritableController[T]) Error(err error) error {
	if c == nil || c.w.check("error") != nil {
		return errors.InvalidState("error", "controller is not initialized")
	}
	if err == nil {
		err = errors.Internal(nil)
	}
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.w.errorIfNeeded(err)
	return nil
}

type underlyingSink[T any] struct {
	sink UnderlyingSink[T]
	c    *WritableController[T]
	mon  *monitor
}

func (s *underlyingSink[T]) start() *future.Signal {
	if s.sink.Start == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoStart, func(ctx context.Context) error { return s.sink.Start(ctx, s.c) })
}

func (s *underlyingSink[T]) write(chunk T) *future.Signal {
	if s.sink.Write == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoWrite, func(ctx context.Context) error { return s.sink.Write(ctx, chunk, s.c) })
}

func (s *underlyingSink[T]) close() *future.Signal {
	if s.sink.Close == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoClose, s.sink.Close)
}

func (s *underlyingSink[T]) abort(reason error) *future.Signal {
	if s.sink.Abort == nil {
		return future.ResolvedSignal()
	}
	return s.mon.invoke(algoAbort, func(ctx context.Context) error { return s.sink.Abort(ctx, reason) })
}

// NewWritable creates a standalone writable over sink. A nil sink accepts
// and discards every chunk. The default strategy allows one queued chunk.
func NewWritable[T any](ctx context.Context, sink *UnderlyingSink[T], strategy *Strategy[T], opts ...Option) (*Writable[T], error) {
	hwm, size := strategy.resolve(DefaultWritableHighWaterMark)
	if err := validateStrategy(validation.New(), "strategy", hwm).Err(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = &UnderlyingSink[T]{}
	}

	mu := new(sync.Mutex)
	adapter := &underlyingSink[T]{sink: *sink, c: &WritableController[T]{}, mon: newMonitor(ctx, opts)}

	w := newWritable[T](mu, adapter.mon, adapter, hwm, size)
	adapter.c.w = w

	mu.Lock()
	defer mu.Unlock()
	w.setUp()
	return w, nil
}
