package commitlog

import (
	"context"
	"testing"
	"time"
)

func TestWaitForAppendWake(t *testing.T) {
	l := newTestLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	seen := l.NewestOffset()
	done := make(chan bool, 1)
	go func() { done <- l.WaitForAppend(ctx, seen) }()

	time.Sleep(20 * time.Millisecond)
	appendN(t, l, 1)

	select {
	case woke := <-done:
		if !woke {
			t.Fatalf("expected wake by append, not cancellation")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
}

func TestWaitForAppendSeesEarlierAppend(t *testing.T) {
	l := newTestLog(t)
	seen := l.NewestOffset()
	appendN(t, l, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if !l.WaitForAppend(ctx, seen) {
		t.Fatalf("append between the tail read and the wait was lost")
	}
}

func TestWaitForCommitWake(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	seen := l.HighWaterMark()
	done := make(chan bool, 1)
	go func() { done <- l.WaitForCommit(ctx, seen) }()

	time.Sleep(20 * time.Millisecond)
	if err := l.SetHighWaterMark(0); err != nil {
		t.Fatalf("set hwm: %v", err)
	}

	select {
	case woke := <-done:
		if !woke {
			t.Fatalf("expected wake by commit, not cancellation")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
}

func TestWaitForCommitSeesEarlierCommit(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 1)
	seen := l.HighWaterMark()
	if err := l.SetHighWaterMark(0); err != nil {
		t.Fatalf("set hwm: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if !l.WaitForCommit(ctx, seen) {
		t.Fatalf("commit between the HWM read and the wait was lost")
	}
}

func TestWaitReleasedOnCancel(t *testing.T) {
	l := newTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() { done <- l.WaitForCommit(ctx, l.HighWaterMark()) }()
	cancel()

	select {
	case woke := <-done:
		if woke {
			t.Fatalf("expected cancellation, not wake")
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter leaked past cancellation")
	}
}
