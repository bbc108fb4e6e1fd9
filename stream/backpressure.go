package stream

import "github.com/kbukum/streamkit/future"

// setBackpressure flips the backpressure flag. The current change signal is
// fired, releasing everyone waiting on the old value, and replaced by a fresh
// one in the same critical section so no waiter can pick up a stale signal.
// Setting the current value again is a no-op.
func (t *Transform[I, O]) setBackpressure(v bool) {
	if t.backpressureChange != nil && v == t.backpressure {
		return
	}
	if t.backpressureChange != nil {
		future.Fire(t.backpressureChange)
	}
	t.backpressureChange = future.NewSignal()
	t.backpressure = v
	t.mon.backpressure(v)
}

// unblockWrite releases a write suspended on backpressure.
func (t *Transform[I, O]) unblockWrite() {
	if t.backpressure {
		t.setBackpressure(false)
	}
}
