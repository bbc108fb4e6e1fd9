package stream

import (
	"math"
	"testing"

	"github.com/kbukum/streamkit/errors"
)

func TestSizedQueue(t *testing.T) {
	q := newSizedQueue[string]()
	if !q.empty() {
		t.Fatal("new queue should be empty")
	}
	if err := q.enqueue("a", 2); err != nil {
		t.Fatal(err)
	}
	if err := q.enqueue("b", 0.5); err != nil {
		t.Fatal(err)
	}
	q.enqueueClose()

	if q.total != 2.5 {
		t.Errorf("total = %v, want 2.5", q.total)
	}
	if q.len() != 3 {
		t.Errorf("len = %d, want 3", q.len())
	}

	item, ok := q.peek()
	if !ok || item.value != "a" {
		t.Fatalf("peek = %+v, %v", item, ok)
	}
	item, _ = q.dequeue()
	if item.value != "a" || q.total != 0.5 {
		t.Errorf("dequeue = %+v, total %v", item, q.total)
	}
	q.dequeue()
	item, _ = q.dequeue()
	if !item.close {
		t.Error("expected close marker last")
	}
	if q.total != 0 {
		t.Errorf("total = %v after draining, want 0", q.total)
	}
	if _, ok := q.dequeue(); ok {
		t.Error("dequeue on empty queue should fail")
	}
}

func TestSizedQueue_RejectsInvalidSizes(t *testing.T) {
	q := newSizedQueue[int]()
	for _, size := range []float64{-1, math.NaN(), math.Inf(1)} {
		err := q.enqueue(1, size)
		if !errors.IsCode(err, errors.ErrCodeInvalidArgument) {
			t.Errorf("enqueue(size=%v) = %v, want INVALID_ARGUMENT", size, err)
		}
	}
	if !q.empty() {
		t.Error("invalid chunks must not be queued")
	}
}

func TestSizedQueue_Reset(t *testing.T) {
	q := newSizedQueue[int]()
	_ = q.enqueue(1, 1)
	_ = q.enqueue(2, 1)
	q.reset()
	if !q.empty() || q.total != 0 {
		t.Errorf("reset left len=%d total=%v", q.len(), q.total)
	}
}

func TestMeasure(t *testing.T) {
	n, err := measure[int](nil, 5)
	if err != nil || n != 1 {
		t.Errorf("nil size = %v, %v; want 1", n, err)
	}
	n, err = measure(func(s int) float64 { return float64(s) * 2 }, 5)
	if err != nil || n != 10 {
		t.Errorf("size = %v, %v; want 10", n, err)
	}
	_, err = measure(func(int) float64 { panic("no") }, 5)
	if !errors.IsCode(err, errors.ErrCodeAlgorithmFailure) {
		t.Errorf("panicking size = %v, want ALGORITHM_FAILURE", err)
	}
}

func TestStrategyResolve(t *testing.T) {
	var s *Strategy[int]
	hwm, size := s.resolve(DefaultWritableHighWaterMark)
	if hwm != DefaultWritableHighWaterMark || size != nil {
		t.Errorf("nil strategy = %v, %v", hwm, size != nil)
	}
	hwm, _ = CountStrategy[int](7).resolve(DefaultWritableHighWaterMark)
	if hwm != 7 {
		t.Errorf("hwm = %v, want 7", hwm)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if *cfg.Writable.HighWaterMark != DefaultWritableHighWaterMark {
		t.Errorf("writable hwm = %v", *cfg.Writable.HighWaterMark)
	}
	if *cfg.Readable.HighWaterMark != DefaultReadableHighWaterMark {
		t.Errorf("readable hwm = %v", *cfg.Readable.HighWaterMark)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
