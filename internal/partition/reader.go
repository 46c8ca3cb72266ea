package partition

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rzbill/strand/internal/commitlog"
)

// StartPosition selects where a subscription begins.
type StartPosition int

const (
	// StartNewOnly delivers only records appended after the subscription.
	StartNewOnly StartPosition = iota
	// StartAtOffset delivers from an explicit offset.
	StartAtOffset
	// StartEarliest delivers from the oldest retained record.
	StartEarliest
	// StartLatest delivers from the last committed record.
	StartLatest
	// StartAtTimestamp delivers from the first record at or after a
	// millisecond timestamp.
	StartAtTimestamp
)

// ErrBadStartPosition flags an unknown start position value.
var ErrBadStartPosition = errors.New("partition: invalid start position")

// ReaderState is the subscription lifecycle state.
type ReaderState int32

const (
	// ReaderCatchingUp: replaying committed records behind the HWM.
	ReaderCatchingUp ReaderState = iota
	// ReaderTailing: caught up, blocked on commit notifications.
	ReaderTailing
	// ReaderClosed: terminal.
	ReaderClosed
)

// Reader delivers a partition's committed records in offset order: a catch-up
// phase reads batches up to the high-water mark, then the reader tails commit
// notifications. The HWM bound means a reader never observes an offset that
// could be lost in a failover, and the strictly-advancing cursor means no
// gaps and no duplicates across the catch-up/tail boundary.
type Reader struct {
	log   *commitlog.Log
	next  int64
	buf   []commitlog.Record
	state atomic.Int32

	done   chan struct{}
	closed atomic.Bool
}

const readerBatch = 128

// NewReader resolves the start position once and returns a reader positioned
// there. The offset argument is the literal offset for StartAtOffset and the
// millisecond timestamp for StartAtTimestamp; it is ignored otherwise.
func (p *Partition) NewReader(pos StartPosition, arg int64) (*Reader, error) {
	log := p.log
	var next int64
	switch pos {
	case StartNewOnly:
		next = log.NewestOffset() + 1
	case StartAtOffset:
		next = arg
		if next < 0 {
			return nil, fmt.Errorf("%w: negative offset %d", ErrBadStartPosition, arg)
		}
	case StartEarliest:
		if oldest := log.OldestOffset(); oldest > 0 {
			next = oldest
		}
	case StartLatest:
		if hwm := log.HighWaterMark(); hwm >= 0 {
			next = hwm
		}
	case StartAtTimestamp:
		off, err := log.OffsetForTimestamp(arg)
		switch {
		case errors.Is(err, commitlog.ErrNotFound):
			// every retained record predates arg: wait for new ones
			next = log.NewestOffset() + 1
		case err != nil:
			return nil, err
		default:
			next = off
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadStartPosition, pos)
	}

	r := &Reader{log: log, next: next, done: make(chan struct{})}
	r.state.Store(int32(ReaderCatchingUp))
	return r, nil
}

// State returns the current lifecycle state.
func (r *Reader) State() ReaderState { return ReaderState(r.state.Load()) }

// Next returns the next committed record, blocking until one is available or
// ctx ends. Returns ErrClosed after Close.
func (r *Reader) Next(ctx context.Context) (commitlog.Record, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-wctx.Done():
		}
	}()

	for {
		if r.closed.Load() {
			return commitlog.Record{}, ErrClosed
		}
		if len(r.buf) > 0 {
			rec := r.buf[0]
			r.buf = r.buf[1:]
			return rec, nil
		}

		hwm := r.log.HighWaterMark()
		if r.next <= hwm {
			r.state.Store(int32(ReaderCatchingUp))
			recs, err := r.log.ReadBatch(r.next, readerBatch, hwm)
			if err != nil {
				return commitlog.Record{}, err
			}
			if len(recs) == 0 {
				// cursor fell behind retention; resume at the trim head
				if oldest := r.log.OldestOffset(); oldest > r.next {
					r.next = oldest
					continue
				}
				r.next = hwm + 1
				continue
			}
			r.buf = recs
			r.next = recs[len(recs)-1].Offset + 1
			continue
		}

		r.state.Store(int32(ReaderTailing))
		if !r.log.WaitForCommit(wctx, hwm) {
			if r.closed.Load() {
				return commitlog.Record{}, ErrClosed
			}
			return commitlog.Record{}, ctx.Err()
		}
	}
}

// Close stops the reader. Idempotent; a blocked Next returns ErrClosed.
func (r *Reader) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.done)
		r.state.Store(int32(ReaderClosed))
	}
}
