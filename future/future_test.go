package future

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFuture_Resolve_FirstWins(t *testing.T) {
	f := New[int]()
	if f.Settled() {
		t.Fatal("new future should be pending")
	}
	if !f.Resolve(1) {
		t.Fatal("first Resolve should settle")
	}
	if f.Resolve(2) {
		t.Error("second Resolve should be ignored")
	}
	if f.Reject(stderrors.New("late")) {
		t.Error("Reject after Resolve should be ignored")
	}
	v, err := f.Result()
	if v != 1 || err != nil {
		t.Errorf("expected (1, nil), got (%d, %v)", v, err)
	}
}

func TestFuture_Reject_NilReason(t *testing.T) {
	f := Rejected[int](nil)
	if !stderrors.Is(f.Err(), ErrNilReason) {
		t.Errorf("expected ErrNilReason, got %v", f.Err())
	}
}

func TestFuture_Result_Pending(t *testing.T) {
	f := New[string]()
	v, err := f.Result()
	if v != "" || err != nil {
		t.Errorf("pending Result should be zero, got (%q, %v)", v, err)
	}
}

func TestFuture_Wait_ContextCanceled(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Wait(ctx); !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if f.Settled() {
		t.Error("canceled wait must not settle the future")
	}
}

func TestFuture_Wait_ManyWaiters(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := f.Wait(context.Background())
			results[i] = v
		}(i)
	}
	f.Resolve(42)
	wg.Wait()
	for i, v := range results {
		if v != 42 {
			t.Errorf("waiter %d got %d", i, v)
		}
	}
}

func TestFuture_Forward(t *testing.T) {
	src := New[int]()
	dst := New[int]()
	src.Forward(dst)
	src.Reject(stderrors.New("boom"))

	select {
	case <-dst.Done():
	case <-time.After(time.Second):
		t.Fatal("forwarded future did not settle")
	}
	if dst.Err() == nil || dst.Err().Error() != "boom" {
		t.Errorf("expected boom, got %v", dst.Err())
	}

	settled := Resolved(7)
	dst2 := New[int]()
	settled.Forward(dst2)
	if v, _ := dst2.Result(); v != 7 {
		t.Errorf("expected synchronous forward of 7, got %d", v)
	}
}

func TestSignal_Helpers(t *testing.T) {
	if !ResolvedSignal().Settled() {
		t.Error("ResolvedSignal should be settled")
	}
	if RejectedSignal(stderrors.New("x")).Err() == nil {
		t.Error("RejectedSignal should carry its error")
	}
	s := NewSignal()
	if !Fire(s) || Fire(s) {
		t.Error("Fire should settle exactly once")
	}
}

func TestGo_ErrorAndPanic(t *testing.T) {
	ctx := context.Background()

	ok := Go(ctx, func(context.Context) error { return nil })
	if _, err := ok.Wait(ctx); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	sentinel := stderrors.New("sentinel")
	failed := Go(ctx, func(context.Context) error { return sentinel })
	if _, err := failed.Wait(ctx); !stderrors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}

	panicked := Go(ctx, func(context.Context) error { panic("kaboom") })
	_, err := panicked.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("expected panic error mentioning kaboom, got %v", err)
	}
}
