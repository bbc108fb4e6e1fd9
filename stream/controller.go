package stream

import (
	"sync"

	"github.com/kbukum/streamkit/errors"
)

// transformCore is the part of a Transform its controller drives. Every
// method except locker requires the lock to be held.
type transformCore[O any] interface {
	locker() *sync.Mutex
	enqueue(chunk O) error
	errorWith(reason error)
	terminate()
	desiredSize() (float64, bool)
}

// Controller is handed to a transformer's Start, Transform and Flush. It is
// the only way to put chunks on the transform's output.
//
// Controller methods may be called from any goroutine, including after the
// algorithm that received the controller has returned.
type Controller[O any] struct {
	core transformCore[O]
}

func (c *Controller[O]) check(op string) error {
	if c == nil || c.core == nil {
		return errors.InvalidState(op, "controller is not initialized")
	}
	return nil
}

// Enqueue puts chunk on the output. It fails with INVALID_STATE once the
// output is closing, closed or errored.
func (c *Controller[O]) Enqueue(chunk O) error {
	if err := c.check("enqueue"); err != nil {
		return err
	}
	mu := c.core.locker()
	mu.Lock()
	defer mu.Unlock()
	return c.core.enqueue(chunk)
}

// Error errors both sides of the transform with reason. A nil reason
// becomes an INTERNAL_ERROR.
func (c *Controller[O]) Error(reason error) error {
	if err := c.check("error"); err != nil {
		return err
	}
	if reason == nil {
		reason = errors.Internal(nil)
	}
	mu := c.core.locker()
	mu.Lock()
	defer mu.Unlock()
	c.core.errorWith(reason)
	return nil
}

// Terminate closes the output once its queued chunks have been read and
// errors the input with TERMINATED.
func (c *Controller[O]) Terminate() error {
	if err := c.check("terminate"); err != nil {
		return err
	}
	mu := c.core.locker()
	mu.Lock()
	defer mu.Unlock()
	c.core.terminate()
	return nil
}

// DesiredSize is the room left in the output queue. ok is false once the
// output has errored.
func (c *Controller[O]) DesiredSize() (size float64, ok bool) {
	if c.check("desiredSize") != nil {
		return 0, false
	}
	mu := c.core.locker()
	mu.Lock()
	defer mu.Unlock()
	return c.core.desiredSize()
}

func (t *Transform[I, O]) locker() *sync.Mutex { return &t.mu }

func (t *Transform[I, O]) desiredSize() (float64, bool) {
	return t.readable.desiredSize()
}

func (t *Transform[I, O]) enqueue(chunk O) error {
	r := t.readable
	if !r.canCloseOrEnqueue() {
		return errors.InvalidState("enqueue", "the readable side is closing or no longer readable")
	}
	if err := r.controllerEnqueue(chunk); err != nil {
		t.errorWritableAndUnblockWrite(err)
		return r.storedErr
	}
	if r.hasBackpressure() && !t.backpressure {
		t.setBackpressure(true)
	}
	return nil
}

func (t *Transform[I, O]) errorWith(reason error) {
	t.readable.controllerError(reason)
	t.errorWritableAndUnblockWrite(reason)
}

func (t *Transform[I, O]) terminate() {
	// Only a running transform can be terminated; a closed or errored one
	// keeps its state.
	if t.readable.canCloseOrEnqueue() && t.writable.state == WritableStateWritable {
		t.terminated = true
		t.mon.log.Info("transform terminated")
	}
	t.readable.controllerClose()
	t.errorWritableAndUnblockWrite(errors.Terminated())
}

// errorWritableAndUnblockWrite stops the algorithms, errors the writable if
// it is still writable and releases any write waiting on backpressure.
func (t *Transform[I, O]) errorWritableAndUnblockWrite(err error) {
	t.clearAlgorithms()
	t.writable.errorIfNeeded(err)
	t.unblockWrite()
}

func (t *Transform[I, O]) clearAlgorithms() {
	t.transformFn = nil
	t.flushFn = nil
	t.cancelFn = nil
}
