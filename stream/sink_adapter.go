package stream

import (
	"context"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/future"
)

// transformSink wires a Transform into its Writable.
type transformSink[I, O any] struct {
	t *Transform[I, O]
}

func (s transformSink[I, O]) start() *future.Signal {
	return s.t.start
}

// write runs the transform on chunk, first waiting out any backpressure.
func (s transformSink[I, O]) write(chunk I) *future.Signal {
	t := s.t
	if !t.backpressure {
		return t.performTransform(chunk)
	}

	change := t.backpressureChange
	t.mon.metrics.RecordSuspend(t.mon.ctx, t.mon.name, 1)
	out := future.NewSignal()
	go func() {
		<-change.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		t.mon.metrics.RecordSuspend(t.mon.ctx, t.mon.name, -1)
		if w := t.writable; w.state == WritableStateErroring {
			out.Reject(w.storedErr)
			return
		}
		t.performTransform(chunk).Forward(out)
	}()
	return out
}

func (t *Transform[I, O]) performTransform(chunk I) *future.Signal {
	fn := t.transformFn
	if fn == nil {
		return future.RejectedSignal(errors.InvalidState(algoTransform, "the transform has already finished"))
	}
	p := t.mon.invoke(algoTransform, func(ctx context.Context) error {
		return fn(ctx, chunk, t.controller)
	})
	out := future.NewSignal()
	react(&t.mu, p, func() {
		future.Fire(out)
	}, func(err error) {
		t.errorWith(err)
		out.Reject(err)
	})
	return out
}

// close flushes the transformer and closes the readable. It runs at most
// once.
func (s transformSink[I, O]) close() *future.Signal {
	t := s.t
	if t.flushed != nil {
		return t.flushed
	}
	t.flushed = future.NewSignal()
	done := t.flushed

	fn := t.flushFn
	t.clearAlgorithms()
	p := future.ResolvedSignal()
	if fn != nil {
		p = t.mon.invoke(algoFlush, func(ctx context.Context) error { return fn(ctx, t.controller) })
	}
	react(&t.mu, p, func() {
		r := t.readable
		if r.state == ReadableStateErrored {
			done.Reject(r.storedErr)
			return
		}
		r.controllerClose()
		future.Fire(done)
	}, func(err error) {
		t.readable.controllerError(err)
		done.Reject(err)
	})
	return done
}

// abort runs the cancel algorithm for a writable abort and errors the
// readable. It shares its outcome with a readable cancel.
func (s transformSink[I, O]) abort(reason error) *future.Signal {
	t := s.t
	if t.finish != nil {
		return t.finish
	}
	t.finish = future.NewSignal()
	done := t.finish

	react(&t.mu, t.runCancel(reason), func() {
		r := t.readable
		if r.state == ReadableStateErrored {
			done.Reject(r.storedErr)
			return
		}
		r.controllerError(reason)
		future.Fire(done)
	}, func(err error) {
		t.readable.controllerError(err)
		done.Reject(err)
	})
	return done
}

// runCancel clears the algorithms and runs the cancel algorithm, if any.
func (t *Transform[I, O]) runCancel(reason error) *future.Signal {
	fn := t.cancelFn
	t.clearAlgorithms()
	if fn == nil {
		return future.ResolvedSignal()
	}
	return t.mon.invoke(algoCancel, func(ctx context.Context) error { return fn(ctx, reason) })
}
