package commitlog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
)

var (
	// ErrNotFound marks offsets below the retained head (trimmed or never
	// written under the current topology).
	ErrNotFound = errors.New("commitlog: record not found")
	// ErrFutureOffset marks reads past the current tail; the record may
	// arrive later, so callers should wait rather than fail.
	ErrFutureOffset = errors.New("commitlog: offset not yet written")
	// ErrGap is returned when a follower applies records out of order.
	ErrGap = errors.New("commitlog: non-contiguous offset")
)

// Options tunes a Log.
type Options struct {
	// CompressMin enables s2 compression of values at or above this size in
	// bytes. Zero disables compression.
	CompressMin int
}

// Log is the append-only, offset-indexed store for one stream partition.
// Appends are serialized per partition; independent partitions are fully
// parallel.
type Log struct {
	db     *pebblestore.DB
	stream string
	part   uint32
	opts   Options

	mu         sync.Mutex
	nextOffset int64 // next offset to assign; count of records ever appended
	oldest     int64 // lowest retained offset, -1 when empty
	hwm        int64 // highest replicated offset, -1 when none
	appendCh   chan struct{}
	commitCh   chan struct{}
}

// Open initializes a Log, loading persisted meta (next offset, HWM) and the
// current head from storage.
func Open(db *pebblestore.DB, stream string, partition uint32, opts Options) (*Log, error) {
	l := &Log{
		db:       db,
		stream:   stream,
		part:     partition,
		opts:     opts,
		oldest:   -1,
		hwm:      -1,
		appendCh: make(chan struct{}),
		commitCh: make(chan struct{}),
	}
	if meta, err := db.Get(keyMeta(stream, partition)); err == nil && len(meta) >= 8 {
		l.nextOffset = int64(binary.BigEndian.Uint64(meta[:8]))
	} else if err != nil && err != pebblestore.ErrNotFound {
		return nil, fmt.Errorf("commitlog: load meta: %w", err)
	}
	if h, err := db.Get(keyHWM(stream, partition)); err == nil && len(h) >= 8 {
		// stored as count of committed records to avoid a -1 sentinel
		l.hwm = int64(binary.BigEndian.Uint64(h[:8])) - 1
	} else if err != nil && err != pebblestore.ErrNotFound {
		return nil, fmt.Errorf("commitlog: load hwm: %w", err)
	}
	oldest, err := l.scanOldest()
	if err != nil {
		return nil, err
	}
	l.oldest = oldest
	return l, nil
}

func (l *Log) scanOldest() (int64, error) {
	low := keyEntry(l.stream, l.part, 0)
	hi := keyEntry(l.stream, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return -1, err
	}
	defer iter.Close()
	if !iter.First() {
		return -1, nil
	}
	return int64(offsetFromEntryKey(iter.Key())), nil
}

// Stream returns the owning stream name.
func (l *Log) Stream() string { return l.stream }

// Partition returns the partition id.
func (l *Log) Partition() uint32 { return l.part }

// Append appends records as one atomic batch, assigning contiguous offsets
// starting at the current tail. Only the partition leader calls Append.
func (l *Log) Append(ctx context.Context, recs []Record) ([]int64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	offsets := make([]int64, len(recs))
	base := l.nextOffset
	for i := range recs {
		recs[i].Offset = base + int64(i)
		offsets[i] = recs[i].Offset
	}
	if err := l.writeLocked(ctx, recs, base+int64(len(recs))); err != nil {
		return nil, err
	}
	return offsets, nil
}

// AppendAssigned applies records whose offsets were assigned by the leader.
// Records must continue the local tail exactly; any gap or overlap returns
// ErrGap so the caller can trigger a catch-up fetch.
func (l *Log) AppendAssigned(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.nextOffset
	for i := range recs {
		if recs[i].Offset != next+int64(i) {
			return fmt.Errorf("%w: have tail %d, got offset %d", ErrGap, next, recs[i].Offset)
		}
	}
	return l.writeLocked(ctx, recs, next+int64(len(recs)))
}

// writeLocked persists recs and the advanced tail in one batch. Caller holds mu.
func (l *Log) writeLocked(ctx context.Context, recs []Record, newNext int64) error {
	b := l.db.NewBatch()
	defer b.Close()

	for i := range recs {
		val := encodeRecord(recs[i], l.opts.CompressMin)
		key := keyEntry(l.stream, l.part, uint64(recs[i].Offset))
		if err := b.Set(key, val, nil); err != nil {
			return err
		}
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], uint64(newNext))
	if err := b.Set(keyMeta(l.stream, l.part), meta[:], nil); err != nil {
		return err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	if l.oldest < 0 {
		l.oldest = recs[0].Offset
	}
	l.nextOffset = newNext
	// wake tail waiters
	close(l.appendCh)
	l.appendCh = make(chan struct{})
	return nil
}

// OldestOffset returns the lowest retained offset, or -1 when the log holds
// no records.
func (l *Log) OldestOffset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.oldest
}

// NewestOffset returns the highest written offset, or -1 when none.
func (l *Log) NewestOffset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextOffset - 1
}

// HighWaterMark returns the highest offset replicated to the full ISR, or -1.
func (l *Log) HighWaterMark() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hwm
}

// SetHighWaterMark persists a new HWM and wakes commit waiters. The HWM is
// monotonically non-decreasing; regressions are ignored.
func (l *Log) SetHighWaterMark(hwm int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hwm <= l.hwm {
		return nil
	}
	if hwm > l.nextOffset-1 {
		return fmt.Errorf("commitlog: hwm %d past tail %d", hwm, l.nextOffset-1)
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(hwm+1))
	if err := l.db.Set(keyHWM(l.stream, l.part), b[:]); err != nil {
		return err
	}
	l.hwm = hwm
	close(l.commitCh)
	l.commitCh = make(chan struct{})
	return nil
}

// Truncate discards all records with offsets strictly greater than offset and
// rewinds the tail. Used only during leader-failover recovery to drop
// uncommitted entries; offset is normally the proven HWM. Truncate(-1) empties
// the log. When truncation lowers the HWM, the clamped value is persisted in
// the same batch so a reopen never loads an HWM past the tail.
func (l *Log) Truncate(offset int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if offset >= l.nextOffset-1 {
		return nil
	}
	b := l.db.NewBatch()
	defer b.Close()

	start := keyEntry(l.stream, l.part, uint64(offset+1))
	end := keyEntry(l.stream, l.part, ^uint64(0))
	if err := b.DeleteRange(start, append(end, 0x00), nil); err != nil {
		return err
	}
	newNext := offset + 1
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], uint64(newNext))
	if err := b.Set(keyMeta(l.stream, l.part), meta[:], nil); err != nil {
		return err
	}
	newHWM := l.hwm
	if newHWM > offset {
		newHWM = offset
		var h [8]byte
		binary.BigEndian.PutUint64(h[:], uint64(newHWM+1))
		if err := b.Set(keyHWM(l.stream, l.part), h[:], nil); err != nil {
			return err
		}
	}
	if err := l.db.CommitBatch(context.Background(), b); err != nil {
		return err
	}
	l.nextOffset = newNext
	l.hwm = newHWM
	if l.oldest > offset {
		l.oldest = -1
		if l.nextOffset > 0 {
			oldest, err := l.scanOldest()
			if err != nil {
				return err
			}
			l.oldest = oldest
		}
	}
	return nil
}

// Close is a no-op today; the Log does not own the DB.
func (l *Log) Close() error { return nil }
