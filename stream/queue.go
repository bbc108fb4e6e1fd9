package stream

import (
	"math"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/kbukum/streamkit/errors"
)

type queueItem[T any] struct {
	value T
	size  float64
	close bool
}

// sizedQueue is a FIFO that tracks the total size of its contents.
type sizedQueue[T any] struct {
	items *linkedlistqueue.Queue
	total float64
}

func newSizedQueue[T any]() *sizedQueue[T] {
	return &sizedQueue[T]{items: linkedlistqueue.New()}
}

func validSize(size float64) bool {
	return !math.IsNaN(size) && size >= 0 && !math.IsInf(size, 1)
}

func (q *sizedQueue[T]) enqueue(value T, size float64) error {
	if !validSize(size) {
		return errors.InvalidArgument("size", "chunk size must be a finite, non-negative number")
	}
	q.items.Enqueue(queueItem[T]{value: value, size: size})
	q.total += size
	return nil
}

// enqueueClose appends the zero-sized close marker.
func (q *sizedQueue[T]) enqueueClose() {
	q.items.Enqueue(queueItem[T]{close: true})
}

func (q *sizedQueue[T]) dequeue() (queueItem[T], bool) {
	v, ok := q.items.Dequeue()
	if !ok {
		return queueItem[T]{}, false
	}
	item := v.(queueItem[T])
	q.total -= item.size
	if q.total < 0 || q.items.Empty() {
		// rounding
		q.total = 0
	}
	return item, true
}

func (q *sizedQueue[T]) peek() (queueItem[T], bool) {
	v, ok := q.items.Peek()
	if !ok {
		return queueItem[T]{}, false
	}
	return v.(queueItem[T]), true
}

func (q *sizedQueue[T]) empty() bool { return q.items.Empty() }

func (q *sizedQueue[T]) len() int { return q.items.Size() }

func (q *sizedQueue[T]) reset() {
	q.items.Clear()
	q.total = 0
}
