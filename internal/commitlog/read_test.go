package commitlog

import (
	"context"
	"testing"
)

func TestReadDistinguishesTrimmedFromFuture(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 3)
	if _, err := l.Read(5); err != ErrFutureOffset {
		t.Fatalf("future read: want ErrFutureOffset got %v", err)
	}
	rec, err := l.Read(1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.Offset != 1 {
		t.Fatalf("offset: want 1 got %d", rec.Offset)
	}
	if _, err := l.Read(-1); err != ErrNotFound {
		t.Fatalf("negative read: want ErrNotFound got %v", err)
	}
}

func TestReadBatchBoundedByMaxOffset(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 10)
	// only offsets <= 4 are "committed"
	recs, err := l.ReadBatch(0, 128, 4)
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("want 5 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Offset != int64(i) {
			t.Fatalf("record %d has offset %d", i, r.Offset)
		}
	}
	// from beyond the bound yields nothing
	if recs, _ := l.ReadBatch(5, 128, 4); len(recs) != 0 {
		t.Fatalf("expected empty batch past bound, got %d", len(recs))
	}
}

func TestOffsetForTimestamp(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	// timestamps: 100, 100, 200, 300
	_, err := l.Append(ctx, []Record{
		{Timestamp: 100}, {Timestamp: 100}, {Timestamp: 200}, {Timestamp: 300},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	cases := []struct {
		ts   int64
		want int64
	}{
		{0, 0},
		{100, 0}, // ties resolve to the lowest offset
		{101, 2},
		{200, 2},
		{250, 3},
		{300, 3},
	}
	for _, c := range cases {
		got, err := l.OffsetForTimestamp(c.ts)
		if err != nil {
			t.Fatalf("ts %d: %v", c.ts, err)
		}
		if got != c.want {
			t.Fatalf("ts %d: want offset %d got %d", c.ts, c.want, got)
		}
	}
	if _, err := l.OffsetForTimestamp(301); err != ErrNotFound {
		t.Fatalf("past last timestamp: want ErrNotFound got %v", err)
	}
}
