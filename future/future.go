package future

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// ErrNilReason replaces a nil error handed to Reject.
var ErrNilReason = stderrors.New("future: rejected without a reason")

// Future is a one-shot result cell. The first call to Resolve or Reject wins;
// later calls are ignored. All methods are safe for concurrent use.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already fulfilled with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Rejected returns a future already rejected with err.
func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Resolve fulfils the future. It reports whether this call settled it.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject fails the future. It reports whether this call settled it.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilReason
	}
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has been resolved or rejected.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value and error. It must only be called after
// Done is closed; before that it returns the zero value and nil.
func (f *Future[T]) Result() (T, error) {
	if !f.Settled() {
		var zero T
		return zero, nil
	}
	return f.val, f.err
}

// Err returns the rejection reason, or nil if pending or fulfilled.
func (f *Future[T]) Err() error {
	_, err := f.Result()
	return err
}

// Wait blocks until the future settles or ctx is done. A canceled wait does
// not affect the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Forward settles dst with f's outcome once f settles.
func (f *Future[T]) Forward(dst *Future[T]) {
	if f.Settled() {
		dst.settle(f.val, f.err)
		return
	}
	go func() {
		<-f.done
		dst.settle(f.val, f.err)
	}()
}

// Signal is a completion-only future.
type Signal = Future[struct{}]

// NewSignal returns a pending signal.
func NewSignal() *Signal { return New[struct{}]() }

// ResolvedSignal returns a fulfilled signal.
func ResolvedSignal() *Signal { return Resolved(struct{}{}) }

// RejectedSignal returns a signal rejected with err.
func RejectedSignal(err error) *Signal { return Rejected[struct{}](err) }

// Fire resolves a signal.
func Fire(s *Signal) bool { return s.Resolve(struct{}{}) }

// Go runs fn on a new goroutine and returns a signal settled with its
// error. A panic in fn rejects the signal with an error describing it.
func Go(ctx context.Context, fn func(context.Context) error) *Signal {
	s := NewSignal()
	go func() {
		s.settle(struct{}{}, Call(ctx, fn))
	}()
	return s
}

// Call runs fn on the calling goroutine, converting a panic into an error.
func Call(ctx context.Context, fn func(context.Context) error) error {
	var err error
	recovered := panics.Try(func() { err = fn(ctx) })
	if rerr := recovered.AsError(); rerr != nil {
		return fmt.Errorf("panic: %w", rerr)
	}
	return err
}
