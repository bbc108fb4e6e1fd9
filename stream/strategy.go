package stream

import (
	"github.com/sourcegraph/conc/panics"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/validation"
)

// Default high-water marks. A transform's writable side buffers one chunk and
// its readable side none, so a transform adds no buffering of its own beyond
// the chunk being processed.
const (
	DefaultWritableHighWaterMark = 1
	DefaultReadableHighWaterMark = 0

	// DefaultStandaloneReadableHighWaterMark applies to NewReadable.
	DefaultStandaloneReadableHighWaterMark = 1
)

// SizeFunc reports the size of a chunk for high-water-mark accounting.
// It runs while the stream's lock is held and must not call back into the
// stream.
type SizeFunc[T any] func(chunk T) float64

// Strategy is a queuing strategy: how much a side may buffer before it
// signals backpressure, and how chunks are measured. A nil *Strategy selects
// the side's default; a nil Size counts every chunk as 1.
type Strategy[T any] struct {
	HighWaterMark float64
	Size          SizeFunc[T]
}

// CountStrategy counts chunks, allowing hwm of them to queue.
func CountStrategy[T any](hwm float64) *Strategy[T] {
	return &Strategy[T]{HighWaterMark: hwm}
}

// resolve returns the high-water mark and size function for s, applying
// defaults for a nil strategy.
func (s *Strategy[T]) resolve(defaultHWM float64) (float64, SizeFunc[T]) {
	if s == nil {
		return defaultHWM, nil
	}
	return s.HighWaterMark, s.Size
}

func validateStrategy(v *validation.Validator, field string, hwm float64) *validation.Validator {
	return v.NonNegative(field+".highWaterMark", hwm)
}

// measure runs size on chunk. A nil size counts 1; a panic is reported as an
// algorithm failure. The returned size is validated when it is enqueued.
func measure[T any](size SizeFunc[T], chunk T) (float64, error) {
	if size == nil {
		return 1, nil
	}
	var n float64
	if rec := panics.Try(func() { n = size(chunk) }); rec != nil {
		return 0, errors.AlgorithmFailure(algoSize, rec.AsError())
	}
	return n, nil
}
