package partition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func hwmAt(v int64) func() int64 { return func() int64 { return v } }

func TestAckWaitersResolveOnCommit(t *testing.T) {
	a := newAckWaiters()

	// already covered by the HWM: returns immediately
	if err := a.wait(context.Background(), 3, hwmAt(5)); err != nil {
		t.Fatalf("covered wait: %v", err)
	}

	var mu sync.Mutex
	var order []int64
	var wg sync.WaitGroup
	for _, off := range []int64{2, 0, 1} {
		wg.Add(1)
		go func(off int64) {
			defer wg.Done()
			if err := a.wait(context.Background(), off, hwmAt(-1)); err != nil {
				t.Errorf("wait %d: %v", off, err)
				return
			}
			mu.Lock()
			order = append(order, off)
			mu.Unlock()
		}(off)
	}
	// let all three register
	time.Sleep(50 * time.Millisecond)
	a.commit(2)
	wg.Wait()
	if len(order) != 3 {
		t.Fatalf("resolved %v", order)
	}
}

func TestAckWaiterSeesCommitDuringRegistration(t *testing.T) {
	a := newAckWaiters()

	// The HWM reads -1 on the first check and 5 afterwards, modeling a commit
	// that lands between the caller's check and the channel registration. The
	// commit released nothing, so wait must notice on its own instead of
	// blocking until the deadline.
	var calls atomic.Int32
	hwm := func() int64 {
		if calls.Add(1) == 1 {
			return -1
		}
		return 5
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := a.wait(ctx, 5, hwm); err != nil {
		t.Fatalf("wait after pre-registration commit: %v", err)
	}
	a.mu.Lock()
	pending := len(a.pending)
	a.mu.Unlock()
	if pending != 0 {
		t.Fatalf("waiter leaked after self-release: %d", pending)
	}
}

func TestAckWaiterDeadlineDeregisters(t *testing.T) {
	a := newAckWaiters()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := a.wait(ctx, 9, hwmAt(-1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded got %v", err)
	}
	a.mu.Lock()
	pending := len(a.pending)
	a.mu.Unlock()
	if pending != 0 {
		t.Fatalf("waiter leaked after deadline: %d", pending)
	}
	// a commit after the caller gave up must not panic or block
	a.commit(9)
}

func TestAckWaitersCloseReleasesBlocked(t *testing.T) {
	a := newAckWaiters()
	done := make(chan error, 1)
	go func() { done <- a.wait(context.Background(), 4, hwmAt(-1)) }()
	time.Sleep(20 * time.Millisecond)
	a.closeAll()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("want ErrClosed got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("close did not release waiter")
	}
	if err := a.wait(context.Background(), 5, hwmAt(-1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("wait after close: want ErrClosed got %v", err)
	}
}
