package partition

import (
	"sort"
	"sync"
	"time"
)

// ReplicaState classifies a follower relative to its leader.
type ReplicaState int

const (
	// StateInSync: inside the lag threshold and reporting on time.
	StateInSync ReplicaState = iota
	// StateLagging: alive but behind by more than the lag threshold.
	StateLagging
	// StateOffline: no watermark report within the liveness timeout.
	StateOffline
)

func (s ReplicaState) String() string {
	switch s {
	case StateInSync:
		return "IN_SYNC"
	case StateLagging:
		return "LAGGING"
	case StateOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

type replicaStatus struct {
	state      ReplicaState
	watermark  int64 // highest contiguously replicated offset, -1 for none
	lastReport time.Time
}

// isrTracker is the leader's view of follower health. The leader itself is
// implicitly in sync and is not tracked here.
type isrTracker struct {
	mu        sync.Mutex
	followers map[string]*replicaStatus
	lagMax    int64
	timeout   time.Duration
}

func newISRTracker(followers []string, lagMax int64, timeout time.Duration, now time.Time) *isrTracker {
	t := &isrTracker{
		followers: make(map[string]*replicaStatus, len(followers)),
		lagMax:    lagMax,
		timeout:   timeout,
	}
	for _, id := range followers {
		t.followers[id] = &replicaStatus{state: StateInSync, watermark: -1, lastReport: now}
	}
	return t
}

// report records a follower watermark. A demoted follower rejoins the ISR
// only once its watermark reaches the leader tail at report time; a healthy
// follower merely has to stay inside the lag threshold.
func (t *isrTracker) report(id string, watermark, leaderTail int64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.followers[id]
	if !ok {
		return
	}
	if watermark > st.watermark {
		st.watermark = watermark
	}
	st.lastReport = now
	switch st.state {
	case StateInSync:
		// demotion happens on tick, not here
	case StateLagging, StateOffline:
		if st.watermark >= leaderTail {
			st.state = StateInSync
		}
	}
}

// markOffline force-demotes a follower, e.g. when its send breaker opens.
func (t *isrTracker) markOffline(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.followers[id]; ok {
		st.state = StateOffline
	}
}

// tick demotes followers that went silent or fell too far behind. Returns the
// ids whose state changed.
func (t *isrTracker) tick(leaderTail int64, now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changed []string
	for id, st := range t.followers {
		next := st.state
		switch {
		case now.Sub(st.lastReport) > t.timeout:
			next = StateOffline
		case st.state == StateInSync && leaderTail-st.watermark > t.lagMax:
			next = StateLagging
		}
		if next != st.state {
			st.state = next
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

// minWatermark returns the lowest watermark across the in-sync set, the
// leader's own tail included. This is the committable high-water mark.
func (t *isrTracker) minWatermark(leaderTail int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	min := leaderTail
	for _, st := range t.followers {
		if st.state != StateInSync {
			continue
		}
		if st.watermark < min {
			min = st.watermark
		}
	}
	return min
}

// snapshot returns follower states keyed by id.
func (t *isrTracker) snapshot() map[string]ReplicaState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ReplicaState, len(t.followers))
	for id, st := range t.followers {
		out[id] = st.state
	}
	return out
}
