package pipeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/streamkit/stream"
)

// FromReadable pulls values from a readable. Closing the iterator before
// the readable is exhausted cancels it.
func FromReadable[T any](r *stream.Readable[T]) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] {
		return &readableIter[T]{r: r}
	})
}

type readableIter[T any] struct {
	r    *stream.Readable[T]
	done bool
}

func (it *readableIter[T]) Next(ctx context.Context) (T, bool, error) {
	v, ok, err := it.r.Read(ctx)
	if (err != nil && ctx.Err() == nil) || (err == nil && !ok) {
		it.done = true
	}
	return v, ok, err
}

func (it *readableIter[T]) Close() error {
	if it.done {
		return nil
	}
	it.done = true
	return it.r.Cancel(context.Background(), nil)
}

// ToReadable exposes a pipeline as a readable. The pipeline is pulled one
// value at a time as the readable asks for data; ctx bounds each pull.
// Canceling the readable closes the pipeline's iterator.
func ToReadable[T any](ctx context.Context, p *Pipeline[T], strategy *stream.Strategy[T], opts ...stream.Option) (*stream.Readable[T], error) {
	iter := p.create(ctx)
	var once sync.Once
	var closeErr error
	closeIter := func() error {
		once.Do(func() { closeErr = iter.Close() })
		return closeErr
	}

	r, err := stream.NewReadable(ctx, &stream.UnderlyingSource[T]{
		Pull: func(_ context.Context, c *stream.ReadableController[T]) error {
			v, ok, err := iter.Next(ctx)
			if err != nil {
				_ = closeIter()
				return err
			}
			if !ok {
				if err := closeIter(); err != nil {
					return err
				}
				return c.Close()
			}
			return c.Enqueue(v)
		},
		Cancel: func(context.Context, error) error {
			return closeIter()
		},
	}, strategy, opts...)
	if err != nil {
		_ = closeIter()
		return nil, err
	}
	return r, nil
}

// Into returns a Runnable that writes every value of p to w and closes w
// once p is exhausted. If p fails, w is aborted with the error and Into
// waits for the abort to finish.
func Into[T any](p *Pipeline[T], w *stream.Writable[T]) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		iter := p.create(ctx)
		defer iter.Close()
		for {
			if err := w.WaitReady(ctx); err != nil {
				return err
			}
			v, ok, err := iter.Next(ctx)
			if err != nil {
				// A failing abort (the sink's cleanup) is reported with err.
				if _, aerr := w.AbortAsync(err).Wait(ctx); aerr != nil && ctx.Err() == nil && !errors.Is(aerr, err) {
					return errors.Join(err, aerr)
				}
				return err
			}
			if !ok {
				if err := w.Close(ctx); err != nil {
					if werr := w.Err(); werr != nil {
						return werr
					}
					return err
				}
				return nil
			}
			// Failures surface through WaitReady and Close.
			w.WriteAsync(v)
		}
	}}
}

// Through pumps p into t's input on a separate goroutine and yields what
// t's output produces. A transform can only be used by one run.
func Through[I, O any](p *Pipeline[I], t *stream.Transform[I, O]) *Pipeline[O] {
	return FromFunc(func(ctx context.Context) Iterator[O] {
		ctx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return Into(p, t.Input()).Run(gctx)
		})
		return &throughIter[O]{
			readableIter: readableIter[O]{r: t.Output()},
			group:        g,
			cancel:       cancel,
		}
	})
}

type throughIter[O any] struct {
	readableIter[O]
	group  *errgroup.Group
	cancel context.CancelFunc
}

func (it *throughIter[O]) Close() error {
	err := it.readableIter.Close()
	it.cancel()
	// The pump's error, if any, has already been seen on the output.
	_ = it.group.Wait()
	return err
}
