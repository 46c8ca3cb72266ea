package commitlog

import (
	"bytes"
	"context"
	"testing"
)

func TestTrimOlderThanRemovesHeadOnly(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	_, err := l.Append(ctx, []Record{
		{Timestamp: 100}, {Timestamp: 200}, {Timestamp: 300}, {Timestamp: 400},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.SetHighWaterMark(3); err != nil {
		t.Fatalf("set hwm: %v", err)
	}

	deleted, err := l.TrimOlderThan(ctx, 300, 0, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("want 2 deleted, got %d", deleted)
	}
	if got := l.OldestOffset(); got != 2 {
		t.Fatalf("oldest after trim: want 2 got %d", got)
	}
	if _, err := l.Read(1); err != ErrNotFound {
		t.Fatalf("trimmed offset: want ErrNotFound got %v", err)
	}
	if _, err := l.Read(2); err != nil {
		t.Fatalf("retained offset: %v", err)
	}
}

func TestTrimNeverRemovesUncommitted(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	_, err := l.Append(ctx, []Record{{Timestamp: 100}, {Timestamp: 200}, {Timestamp: 300}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.SetHighWaterMark(0); err != nil {
		t.Fatalf("set hwm: %v", err)
	}

	// cutoff would remove everything by age, but only offset 0 is committed
	deleted, err := l.TrimOlderThan(ctx, 1000, 0, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("want 1 deleted (hwm bound), got %d", deleted)
	}
	if got := l.OldestOffset(); got != 1 {
		t.Fatalf("oldest: want 1 got %d", got)
	}
}

func TestTrimToMaxBytes(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	big := bytes.Repeat([]byte("x"), 1024)
	recs := make([]Record, 8)
	for i := range recs {
		recs[i] = Record{Timestamp: int64(i), Value: big}
	}
	if _, err := l.Append(ctx, recs); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.SetHighWaterMark(7); err != nil {
		t.Fatalf("set hwm: %v", err)
	}

	deleted, err := l.TrimToMaxBytes(ctx, 4*1100, 0, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted == 0 {
		t.Fatalf("expected deletions")
	}
	oldest := l.OldestOffset()
	if oldest <= 0 || oldest > 7 {
		t.Fatalf("oldest after byte trim out of range: %d", oldest)
	}
	// tail record always survives
	if _, err := l.Read(7); err != nil {
		t.Fatalf("tail should survive byte trim: %v", err)
	}
	// EARLIEST semantics: reads below oldest are gone
	if _, err := l.Read(oldest - 1); err != ErrNotFound {
		t.Fatalf("below oldest: want ErrNotFound got %v", err)
	}
}
