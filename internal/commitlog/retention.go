package commitlog

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// Retention trims only ever remove the lowest offsets. Deletes never touch
// the newest record or anything above the HWM, so the tail and all
// uncommitted entries survive and OldestOffset stays the earliest retained
// record. Deletes are committed in batches of up to batchLimit keys with an
// optional throttle between commits.

// trimBound returns the highest offset eligible for deletion, or -1.
func (l *Log) trimBound() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	bound := l.nextOffset - 2 // keep the tail record
	if l.hwm < bound {
		bound = l.hwm
	}
	return bound
}

// TrimOlderThan deletes head records with timestamp < cutoffMs. Returns the
// number of deleted records.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	bound := l.trimBound()
	if bound < 0 {
		return 0, nil
	}

	low := keyEntry(l.stream, l.part, 0)
	hi := keyEntry(l.stream, l.part, uint64(bound))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	var newOldest int64 = -1
	for ok := iter.First(); ok; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			rec, okDec := decodeRecord(iter.Value())
			if !okDec || rec.Timestamp >= cutoffMs {
				ok = false
				break
			}
			off := int64(offsetFromEntryKey(iter.Key()))
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			newOldest = off + 1
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			b.Close()
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
			break
		}
	}
	if deleted > 0 {
		l.advanceOldest(newOldest)
	}
	return deleted, nil
}

// TrimToMaxBytes approximates retention by total stored bytes: when the
// partition exceeds maxBytes, the oldest records are deleted until it fits.
func (l *Log) TrimToMaxBytes(ctx context.Context, maxBytes int64, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if maxBytes < 0 {
		return 0, nil
	}
	bound := l.trimBound()
	if bound < 0 {
		return 0, nil
	}

	low := keyEntry(l.stream, l.part, 0)
	hiAll := keyEntry(l.stream, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hiAll, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var total int64
	for ok := iter.First(); ok; ok = iter.Next() {
		total += int64(len(iter.Value()))
	}
	if total <= maxBytes {
		return 0, nil
	}

	deleted := 0
	var newOldest int64 = -1
	for ok := iter.First(); ok && total > maxBytes; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit && total > maxBytes {
			off := int64(offsetFromEntryKey(iter.Key()))
			if off > bound {
				ok = false
				break
			}
			total -= int64(len(iter.Value()))
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			newOldest = off + 1
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			b.Close()
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
			break
		}
	}
	if deleted > 0 {
		l.advanceOldest(newOldest)
	}
	return deleted, nil
}

func (l *Log) advanceOldest(offset int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset > l.oldest {
		if offset >= l.nextOffset {
			l.oldest = -1
		} else {
			l.oldest = offset
		}
	}
}
