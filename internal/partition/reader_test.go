package partition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rzbill/strand/internal/commitlog"
	logpkg "github.com/rzbill/strand/pkg/log"
)

// soloPartition is a single-broker RF=1 partition: every append commits
// immediately, which keeps reader tests focused on cursor behavior.
func soloPartition(t *testing.T) *Partition {
	t.Helper()
	h := newHarness(t, "b1")
	if _, err := h.cluster.Coordinator("b1").Assign("orders", 1, 1); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return h.startBroker(t, "b1", "orders")
}

func appendValues(t *testing.T, p *Partition, vals ...string) {
	t.Helper()
	recs := make([]commitlog.Record, len(vals))
	for i, v := range vals {
		recs[i] = commitlog.Record{Value: []byte(v)}
	}
	if _, err := p.Append(context.Background(), recs); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func nextOffsets(t *testing.T, r *Reader, n int) []int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := make([]int64, n)
	for i := range out {
		rec, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		out[i] = rec.Offset
	}
	return out
}

func TestReaderEarliestReplaysThenTails(t *testing.T) {
	p := soloPartition(t)
	appendValues(t, p, "a", "b", "c")

	r, err := p.NewReader(StartEarliest, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	if got := nextOffsets(t, r, 3); got[0] != 0 || got[2] != 2 {
		t.Fatalf("replay offsets: %v", got)
	}

	// caught up: the reader blocks, then resumes on the next commit
	done := make(chan int64, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		rec, err := r.Next(ctx)
		if err != nil {
			done <- -1
			return
		}
		done <- rec.Offset
	}()
	time.Sleep(50 * time.Millisecond)
	appendValues(t, p, "d")
	select {
	case off := <-done:
		if off != 3 {
			t.Fatalf("tail offset: want 3 got %d", off)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("tail delivery timeout")
	}
	if r.State() != ReaderTailing {
		t.Fatalf("state: want tailing got %v", r.State())
	}
}

func TestReaderNewOnlySkipsHistory(t *testing.T) {
	p := soloPartition(t)
	appendValues(t, p, "old1", "old2")

	r, err := p.NewReader(StartNewOnly, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	appendValues(t, p, "new1", "new2")
	if got := nextOffsets(t, r, 2); got[0] != 2 || got[1] != 3 {
		t.Fatalf("new-only offsets: %v", got)
	}
}

func TestReaderLatestStartsAtLastCommitted(t *testing.T) {
	p := soloPartition(t)
	appendValues(t, p, "a", "b", "c")

	r, err := p.NewReader(StartLatest, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()
	if got := nextOffsets(t, r, 1); got[0] != 2 {
		t.Fatalf("latest offset: want 2 got %d", got[0])
	}
}

func TestReaderAtOffset(t *testing.T) {
	p := soloPartition(t)
	appendValues(t, p, "a", "b", "c", "d")

	r, err := p.NewReader(StartAtOffset, 2)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()
	if got := nextOffsets(t, r, 2); got[0] != 2 || got[1] != 3 {
		t.Fatalf("offsets: %v", got)
	}

	if _, err := p.NewReader(StartAtOffset, -5); !errors.Is(err, ErrBadStartPosition) {
		t.Fatalf("negative offset: want ErrBadStartPosition got %v", err)
	}
}

func TestReaderAtTimestampFutureWaitsForNew(t *testing.T) {
	p := soloPartition(t)
	appendValues(t, p, "a", "b")

	// all retained records predate this timestamp
	r, err := p.NewReader(StartAtTimestamp, time.Now().Add(time.Hour).UnixMilli())
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	appendValues(t, p, "c")
	if got := nextOffsets(t, r, 1); got[0] != 2 {
		t.Fatalf("timestamp offset: want 2 got %d", got[0])
	}

	// a zero timestamp resolves to the earliest retained record
	r2, err := p.NewReader(StartAtTimestamp, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r2.Close()
	if got := nextOffsets(t, r2, 1); got[0] != 0 {
		t.Fatalf("zero-timestamp offset: want 0 got %d", got[0])
	}
}

func TestReaderNeverPassesHighWaterMark(t *testing.T) {
	h := newHarness(t, "b1", "b2")
	if _, err := h.cluster.Coordinator("b1").Assign("orders", 1, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	cfg := testConfig()
	cfg.ReplicaTimeout = 10 * time.Second // keep the silent follower in the ISR
	p, err := New(cfg, "orders", 0, h.openLog(t, "orders"), h.bus, h.cluster.Coordinator("b1"), logpkg.NewTestLogger())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	appendValues(t, p, "uncommitted")
	r, err := p.NewReader(StartEarliest, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := r.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("uncommitted record visible: %v", err)
	}
}

func TestReaderCloseIsIdempotent(t *testing.T) {
	p := soloPartition(t)
	r, err := p.NewReader(StartNewOnly, 0)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	blocked := make(chan error, 1)
	go func() {
		_, err := r.Next(context.Background())
		blocked <- err
	}()
	time.Sleep(20 * time.Millisecond)
	r.Close()
	r.Close()
	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("blocked next after close: want ErrClosed got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("close did not release blocked reader")
	}
	if _, err := r.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("next after close: want ErrClosed got %v", err)
	}
	if r.State() != ReaderClosed {
		t.Fatalf("state after close: %v", r.State())
	}
}
