package metadata

import (
	"errors"
	"testing"

	"github.com/rzbill/strand/internal/cluster"
	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
	logpkg "github.com/rzbill/strand/pkg/log"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestDirectory(t *testing.T, brokerCount int) (*Directory, *pebblestore.DB) {
	t.Helper()
	brokers := make([]cluster.Broker, brokerCount)
	for i := range brokers {
		brokers[i] = cluster.Broker{ID: string(rune('a' + i)), Host: "127.0.0.1", Port: int32(9100 + i)}
	}
	c := cluster.NewStaticCluster(brokers...)
	db := newTestDB(t)
	d, err := Open(db, c.Coordinator(brokers[0].ID), logpkg.NewTestLogger())
	if err != nil {
		t.Fatalf("open directory: %v", err)
	}
	return d, db
}

func TestCreateStreamAndFetch(t *testing.T) {
	d, _ := newTestDirectory(t, 3)

	cfg, err := d.CreateStream(StreamConfig{Name: "orders", Subject: "orders.events", Partitions: 2, ReplicationFactor: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cfg.CreatedAt == 0 {
		t.Fatalf("created-at not stamped")
	}

	md := d.FetchMetadata([]string{"orders"})
	if len(md.Brokers) != 3 {
		t.Fatalf("brokers: %v", md.Brokers)
	}
	if len(md.Streams) != 1 || md.Streams[0].Error != StreamOK {
		t.Fatalf("streams: %+v", md.Streams)
	}
	parts := md.Streams[0].Partitions
	if len(parts) != 2 {
		t.Fatalf("partitions: %+v", parts)
	}
	for _, p := range parts {
		if p.Leader == "" || len(p.Replicas) != 2 {
			t.Fatalf("partition topology: %+v", p)
		}
		// without a live ISR source the full replica set is reported
		if len(p.ISR) != 2 {
			t.Fatalf("isr fallback: %+v", p)
		}
	}
}

func TestCreateStreamDuplicateFails(t *testing.T) {
	d, _ := newTestDirectory(t, 1)
	if _, err := d.CreateStream(StreamConfig{Name: "orders"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := d.CreateStream(StreamConfig{Name: "orders", Subject: "other.subject"})
	if !errors.Is(err, ErrStreamExists) {
		t.Fatalf("want ErrStreamExists, got %v", err)
	}
}

func TestCreateStreamValidation(t *testing.T) {
	d, _ := newTestDirectory(t, 1)
	if _, err := d.CreateStream(StreamConfig{}); !errors.Is(err, ErrBadStreamConfig) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := d.CreateStream(StreamConfig{Name: "bad/name"}); !errors.Is(err, ErrBadStreamConfig) {
		t.Fatalf("reserved chars: %v", err)
	}

	// defaults fill in
	cfg, err := d.CreateStream(StreamConfig{Name: "orders"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cfg.Subject != "orders" || cfg.Partitions != 1 || cfg.ReplicationFactor != 1 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestCreateStreamFailureLeavesNoTrace(t *testing.T) {
	d, _ := newTestDirectory(t, 1)
	_, err := d.CreateStream(StreamConfig{Name: "orders", ReplicationFactor: 3})
	if !errors.Is(err, cluster.ErrNotEnoughBrokers) {
		t.Fatalf("want ErrNotEnoughBrokers, got %v", err)
	}
	if _, err := d.GetStream("orders"); !errors.Is(err, ErrUnknownStream) {
		t.Fatalf("failed create left stream registered: %v", err)
	}
	md := d.FetchMetadata(nil)
	if len(md.Streams) != 0 {
		t.Fatalf("failed create visible in metadata: %+v", md.Streams)
	}
}

func TestDirectorySurvivesReopen(t *testing.T) {
	brokers := []cluster.Broker{{ID: "a", Host: "127.0.0.1", Port: 9100}}
	c := cluster.NewStaticCluster(brokers...)
	db := newTestDB(t)

	d, err := Open(db, c.Coordinator("a"), logpkg.NewTestLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := d.CreateStream(StreamConfig{Name: "orders", Subject: "orders.events"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	d2, err := Open(db, c.Coordinator("a"), logpkg.NewTestLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	cfg, err := d2.GetStream("orders")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if cfg.Subject != "orders.events" {
		t.Fatalf("config after reopen: %+v", cfg)
	}
	if _, err := d2.CreateStream(StreamConfig{Name: "orders"}); !errors.Is(err, ErrStreamExists) {
		t.Fatalf("duplicate after reopen: %v", err)
	}
}

func TestFetchMetadataUnknownStream(t *testing.T) {
	d, _ := newTestDirectory(t, 1)
	if _, err := d.CreateStream(StreamConfig{Name: "orders"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	md := d.FetchMetadata([]string{"orders", "nope"})
	if len(md.Streams) != 2 {
		t.Fatalf("streams: %+v", md.Streams)
	}
	byName := map[string]StreamError{}
	for _, s := range md.Streams {
		byName[s.Config.Name] = s.Error
	}
	if byName["orders"] != StreamOK || byName["nope"] != StreamUnknown {
		t.Fatalf("per-stream errors: %v", byName)
	}
}

type fakeISR struct{}

func (fakeISR) ISR(stream string, partition int32) ([]string, bool) {
	if stream == "orders" && partition == 0 {
		return []string{"a"}, true
	}
	return nil, false
}

func TestFetchMetadataUsesISRSource(t *testing.T) {
	d, _ := newTestDirectory(t, 2)
	if _, err := d.CreateStream(StreamConfig{Name: "orders", ReplicationFactor: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	d.SetISRSource(fakeISR{})

	md := d.FetchMetadata([]string{"orders"})
	isr := md.Streams[0].Partitions[0].ISR
	if len(isr) != 1 || isr[0] != "a" {
		t.Fatalf("isr from source: %v", isr)
	}
}
