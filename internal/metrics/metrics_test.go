package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/strand/internal/partition"
)

type staticStats []partition.Stats

func (s staticStats) PartitionStats() []partition.Stats { return s }

func TestEngineCollectorExportsPartitionState(t *testing.T) {
	m := New()
	m.RegisterEngine(staticStats{{
		Stream:        "orders",
		Partition:     0,
		Epoch:         3,
		OldestOffset:  10,
		NewestOffset:  120,
		HighWaterMark: 118,
		ISR:           []string{"b1", "b2"},
	}})

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "strand_partition_") {
			continue
		}
		got[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	want := map[string]float64{
		"strand_partition_newest_offset":   120,
		"strand_partition_high_water_mark": 118,
		"strand_partition_oldest_offset":   10,
		"strand_partition_isr_size":        2,
		"strand_partition_replication_lag": 2,
		"strand_partition_epoch":           3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("%s: want %v got %v (all: %v)", name, v, got[name], got)
		}
	}
}

func TestHandlerServesCounters(t *testing.T) {
	m := New()
	m.PublishRequests.WithLabelValues("orders", "ok").Add(3)
	m.NewStorageHook().ObserveBatchCommit(2*time.Millisecond, 5, 512)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `strand_publish_requests_total{outcome="ok",stream="orders"} 3`) {
		t.Fatalf("publish counter missing:\n%s", body)
	}
	if !strings.Contains(body, "strand_storage_batch_commit_seconds_count 1") {
		t.Fatalf("storage histogram missing")
	}
}
