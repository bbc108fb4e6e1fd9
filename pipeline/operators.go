package pipeline

import "context"

// Map applies fn to each value. The first error ends the pipeline.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return FromFunc(func(ctx context.Context) Iterator[O] {
		return &mapIter[I, O]{source: p.create(ctx), fn: fn}
	})
}

// Filter keeps the values for which keep returns true.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return FromFunc(func(ctx context.Context) Iterator[T] {
		return &filterIter[T]{source: p.create(ctx), keep: keep}
	})
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	in, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, in)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	keep   func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		v, ok, err := it.source.Next(ctx)
		if err != nil || !ok || it.keep(v) {
			return v, ok, err
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }
