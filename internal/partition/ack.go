package partition

import (
	"context"
	"sort"
	"sync"
)

// ackWaiters tracks callers blocked until the high-water mark reaches their
// offset. Waiters resolve in offset order on every commit; a caller that
// gives up is always deregistered, while the inbox ack is emitted
// independently when the commit lands.
type ackWaiters struct {
	mu      sync.Mutex
	pending map[int64][]chan struct{}
	done    chan struct{}
	closed  bool
}

func newAckWaiters() *ackWaiters {
	return &ackWaiters{
		pending: make(map[int64][]chan struct{}),
		done:    make(chan struct{}),
	}
}

// wait blocks until the high-water mark covers offset, ctx ends, or the
// partition closes. hwm reports the current high-water mark; it is re-read
// after the registration because a commit landing in between released nothing
// and would otherwise never wake this waiter.
func (a *ackWaiters) wait(ctx context.Context, offset int64, hwm func() int64) error {
	if hwm() >= offset {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	ch := make(chan struct{})
	a.pending[offset] = append(a.pending[offset], ch)
	a.mu.Unlock()

	if hwm() >= offset {
		a.remove(offset, ch)
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		a.remove(offset, ch)
		return ctx.Err()
	}
}

func (a *ackWaiters) remove(offset int64, ch chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	waiters := a.pending[offset]
	for i, cand := range waiters {
		if cand == ch {
			a.pending[offset] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(a.pending[offset]) == 0 {
		delete(a.pending, offset)
	}
}

// commit releases every waiter at or below hwm, lowest offsets first.
func (a *ackWaiters) commit(hwm int64) {
	a.mu.Lock()
	var due []int64
	for off := range a.pending {
		if off <= hwm {
			due = append(due, off)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	release := make([][]chan struct{}, len(due))
	for i, off := range due {
		release[i] = a.pending[off]
		delete(a.pending, off)
	}
	a.mu.Unlock()

	for _, waiters := range release {
		for _, ch := range waiters {
			close(ch)
		}
	}
}

// closeAll fails every blocked and future wait with ErrClosed.
func (a *ackWaiters) closeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
	a.pending = make(map[int64][]chan struct{})
}
