package commitlog

import (
	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
)

// Read returns the record at offset. ErrFutureOffset means the offset has not
// been written yet (callers should wait); ErrNotFound means it was trimmed or
// never existed.
func (l *Log) Read(offset int64) (Record, error) {
	l.mu.Lock()
	next := l.nextOffset
	l.mu.Unlock()

	if offset < 0 {
		return Record{}, ErrNotFound
	}
	if offset >= next {
		return Record{}, ErrFutureOffset
	}
	val, err := l.db.Get(keyEntry(l.stream, l.part, uint64(offset)))
	if err == pebblestore.ErrNotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec, ok := decodeRecord(val)
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Offset = offset
	return rec, nil
}

// ReadBatch returns up to limit records starting at from (inclusive), never
// past maxOffset (inclusive). maxOffset is typically the HWM so subscribers
// cannot observe unreplicated data; pass NewestOffset() for leader-local
// reads during replication catch-up.
func (l *Log) ReadBatch(from int64, limit int, maxOffset int64) ([]Record, error) {
	if limit <= 0 {
		limit = 128
	}
	if from < 0 {
		from = 0
	}
	if maxOffset < from {
		return nil, nil
	}

	low := keyEntry(l.stream, l.part, uint64(from))
	hi := keyEntry(l.stream, l.part, uint64(maxOffset))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Record, 0, limit)
	for ok := iter.First(); ok && len(out) < limit; ok = iter.Next() {
		rec, okDec := decodeRecord(iter.Value())
		if !okDec {
			continue
		}
		rec.Offset = int64(offsetFromEntryKey(iter.Key()))
		out = append(out, rec)
	}
	return out, nil
}

// OffsetForTimestamp returns the lowest offset whose record timestamp is at
// or after tsMs. Timestamps are leader-assigned and non-decreasing per
// partition, so a binary search over the retained range finds the first
// qualifying offset; ties resolve to the lowest offset. Returns ErrNotFound
// when no retained record qualifies.
func (l *Log) OffsetForTimestamp(tsMs int64) (int64, error) {
	l.mu.Lock()
	lo, hi := l.oldest, l.nextOffset-1
	l.mu.Unlock()
	if lo < 0 || hi < lo {
		return 0, ErrNotFound
	}

	for lo < hi {
		mid := lo + (hi-lo)/2
		rec, err := l.Read(mid)
		if err != nil {
			return 0, err
		}
		if rec.Timestamp >= tsMs {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	rec, err := l.Read(lo)
	if err != nil {
		return 0, err
	}
	if rec.Timestamp < tsMs {
		return 0, ErrNotFound
	}
	return lo, nil
}
