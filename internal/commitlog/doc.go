// Package commitlog implements the per-partition append-only log.
//
// # Overview
//
// Each stream partition owns one Log persisted in Pebble. Offsets are
// assigned by the partition leader starting at 0, strictly contiguous;
// followers apply replicated records with their leader-assigned offsets and
// never self-assign. Keys are lexicographically ordered for range scans:
//   - p/{stream}/{part_be4}/m             (partition meta: next offset)
//   - p/{stream}/{part_be4}/h             (high-water mark)
//   - p/{stream}/{part_be4}/e/{off_be8}   (records)
//
// Records are framed flags | fields | crc32c; values above a configurable
// size are s2-compressed.
//
// # API surface (internal)
//
//	l, _ := commitlog.Open(db, "orders", 0, commitlog.Options{})
//	offs, _ := l.Append(ctx, []commitlog.Record{{Value: v}})      // leader
//	_ = l.AppendAssigned(ctx, replicated)                          // follower
//	rec, err := l.Read(5)          // ErrNotFound vs ErrFutureOffset
//	recs, _ := l.ReadBatch(0, 128, l.HighWaterMark())
//	_ = l.SetHighWaterMark(offs[len(offs)-1])
//	_ = l.Truncate(hwm)            // failover recovery only
//	off, _ := l.OffsetForTimestamp(sinceMs)
//
// Blocking tail reads use WaitForAppend/WaitForCommit; both take the caller's
// last observed tail/HWM and return immediately if the log has already moved
// past it, and both return when the context is cancelled. Retention trims
// (age/bytes) only ever remove the
// lowest offsets, so OldestOffset always reflects the earliest retained
// record.
package commitlog
