package stream

import "github.com/kbukum/streamkit/future"

// transformSource wires a Transform into its Readable.
type transformSource[I, O any] struct {
	t *Transform[I, O]
}

func (s transformSource[I, O]) start() *future.Signal {
	return s.t.start
}

// pull lets suspended writes proceed. The readable is pulled again once
// backpressure next changes.
func (s transformSource[I, O]) pull() *future.Signal {
	t := s.t
	t.unblockWrite()
	return t.backpressureChange
}

// cancel runs the cancel algorithm for a readable cancel and errors the
// writable. It shares its outcome with a writable abort.
func (s transformSource[I, O]) cancel(reason error) *future.Signal {
	t := s.t
	if t.finish != nil {
		return t.finish
	}
	t.finish = future.NewSignal()
	done := t.finish

	react(&t.mu, t.runCancel(reason), func() {
		w := t.writable
		if w.state == WritableStateErrored {
			done.Reject(w.storedErr)
			return
		}
		w.errorIfNeeded(reason)
		t.unblockWrite()
		future.Fire(done)
	}, func(err error) {
		t.writable.errorIfNeeded(err)
		t.unblockWrite()
		done.Reject(err)
	})
	return done
}
