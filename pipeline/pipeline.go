package pipeline

import "context"

// Iterator is pull-based sequential access to a sequence of values.
type Iterator[T any] interface {
	// Next returns the next value, or (zero, false, nil) once exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the iterator. It may be called before exhaustion.
	Close() error
}

// Pipeline is a lazy, pull-based sequence. Nothing happens until a terminal
// (Collect, Drain, ForEach, Into) pulls from it.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Runnable is a configured pipeline waiting to be run.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls the pipeline to completion or until ctx is done.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// From wraps an existing iterator. The pipeline can be run once.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] { return iter })
}

// FromSlice yields the items of a slice in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] { return &sliceIter[T]{items: items} })
}

// FromFunc builds the iterator lazily, once per run.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: fn}
}

// Iter returns a fresh iterator. The caller must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// each pulls every value into fn, closing the iterator when done.
func each[T any](ctx context.Context, p *Pipeline[T], fn func(T) error) error {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(val); err != nil {
			return err
		}
	}
}

// Drain returns a Runnable that sends every value to sink.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		return each(ctx, p, func(v T) error { return sink(ctx, v) })
	}}
}

// Collect runs the pipeline and returns every value. On error it returns
// the values pulled so far.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := each(ctx, p, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach calls fn for every value.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	it.pos++
	return it.items[it.pos-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }
