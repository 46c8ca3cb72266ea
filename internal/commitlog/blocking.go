package commitlog

import "context"

// WaitForAppend blocks until the tail advances past seen, the caller's last
// observed NewestOffset, or ctx is done. Returns true when a newer append is
// visible. The check under l.mu closes the race where an append lands between
// the caller's tail read and the wait.
func (l *Log) WaitForAppend(ctx context.Context, seen int64) bool {
	l.mu.Lock()
	if l.nextOffset-1 > seen {
		l.mu.Unlock()
		return true
	}
	ch := l.appendCh
	l.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitForCommit blocks until the high-water mark advances past seen, the
// caller's last observed HWM, or ctx is done. Returns true when a newer commit
// is visible. Tailing subscribers use this so they never poll and never miss a
// commit that lands between their HWM read and the wait.
func (l *Log) WaitForCommit(ctx context.Context, seen int64) bool {
	l.mu.Lock()
	if l.hwm > seen {
		l.mu.Unlock()
		return true
	}
	ch := l.commitCh
	l.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
