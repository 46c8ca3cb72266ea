// Package pebblestore wraps Pebble with the durability policy, batch, and
// iterator helpers the commit log and metadata directory are built on.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
//
// A MetricsHook can be supplied to observe read/write/commit latencies; the
// metrics package provides a Prometheus-backed implementation.
package pebblestore
