package partition

import (
	"testing"
	"time"
)

func TestISRDemotesSilentAndLaggingFollowers(t *testing.T) {
	now := time.Now()
	tr := newISRTracker([]string{"b2", "b3"}, 10, time.Second, now)

	tr.report("b2", 5, 5, now)
	tr.report("b3", 5, 5, now)

	// b2 falls behind the lag threshold, b3 goes silent
	later := now.Add(500 * time.Millisecond)
	tr.report("b2", 5, 20, later)
	changed := tr.tick(20, later)
	if len(changed) != 1 || changed[0] != "b2" {
		t.Fatalf("changed after lag: %v", changed)
	}
	if tr.snapshot()["b2"] != StateLagging {
		t.Fatalf("b2 state: %v", tr.snapshot()["b2"])
	}

	changed = tr.tick(20, now.Add(2*time.Second))
	states := tr.snapshot()
	if states["b3"] != StateOffline {
		t.Fatalf("silent b3 state: %v (changed %v)", states["b3"], changed)
	}
}

func TestISRRejoinsOnlyAtFullCatchUp(t *testing.T) {
	now := time.Now()
	tr := newISRTracker([]string{"b2"}, 10, time.Second, now)
	tr.report("b2", 0, 100, now)
	tr.tick(100, now)
	if tr.snapshot()["b2"] != StateLagging {
		t.Fatalf("b2 should be lagging")
	}

	// partial progress is not enough
	tr.report("b2", 50, 100, now)
	if tr.snapshot()["b2"] != StateLagging {
		t.Fatalf("partial catch-up rejoined early")
	}
	tr.report("b2", 100, 100, now)
	if tr.snapshot()["b2"] != StateInSync {
		t.Fatalf("full catch-up did not rejoin")
	}
}

func TestISRMinWatermarkSkipsDemotedReplicas(t *testing.T) {
	now := time.Now()
	tr := newISRTracker([]string{"b2", "b3"}, 10, time.Second, now)
	tr.report("b2", 7, 9, now)
	tr.report("b3", 3, 9, now)

	if got := tr.minWatermark(9); got != 3 {
		t.Fatalf("min watermark: want 3 got %d", got)
	}
	tr.markOffline("b3")
	if got := tr.minWatermark(9); got != 7 {
		t.Fatalf("min watermark after demotion: want 7 got %d", got)
	}
	tr.markOffline("b2")
	if got := tr.minWatermark(9); got != 9 {
		t.Fatalf("leader-only min watermark: want 9 got %d", got)
	}
}
