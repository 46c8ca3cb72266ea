package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/commitlog"
	cfgpkg "github.com/rzbill/strand/internal/config"
	"github.com/rzbill/strand/internal/metadata"
	"github.com/rzbill/strand/internal/metrics"
	"github.com/rzbill/strand/internal/partition"
	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
	"github.com/rzbill/strand/internal/transport"
	logpkg "github.com/rzbill/strand/pkg/log"
)

// ErrPartitionNotHosted is returned by Partition for a partition this broker
// is not a replica of. Clients should refresh metadata and talk to a hosting
// broker.
var ErrPartitionNotHosted = errors.New("runtime: partition not hosted on this broker")

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Metrics defaults to a fresh registry when nil.
	Metrics *metrics.Metrics
	// Coordinator overrides the config-derived coordinator. Tests run several
	// brokers in one process by deriving each from a shared StaticCluster.
	Coordinator cluster.Coordinator
	// Bus overrides the replication bus; shared across in-process brokers.
	Bus transport.Bus
}

// Runtime wires storage, coordination, the stream directory, and the
// partition engines for a single broker.
type Runtime struct {
	cfg     cfgpkg.Config
	logger  logpkg.Logger
	metrics *metrics.Metrics

	db        *pebblestore.DB
	coord     cluster.Coordinator
	ownsCoord bool
	bus       transport.Bus
	ownsBus   bool
	dir       *metadata.Directory

	// reconcileMu serializes partition open/close decisions between the
	// assignment watch loop and CreateStream.
	reconcileMu sync.Mutex

	mu         sync.RWMutex
	partitions map[string]*partition.Partition
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open initializes storage and coordination, re-opens the partitions this
// broker hosts, and starts the assignment and retention loops.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: cfg.DataDir,
		Fsync:   fsyncMode(cfg.Fsync),
		Metrics: m.NewStorageHook(),
	})
	if err != nil {
		return nil, fmt.Errorf("runtime: open storage: %w", err)
	}

	coord := opts.Coordinator
	ownsCoord := false
	if coord == nil {
		coord, err = newCoordinator(cfg, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		ownsCoord = true
	}

	bus := opts.Bus
	ownsBus := false
	if bus == nil {
		bus = transport.NewInproc()
		ownsBus = true
	}

	dir, err := metadata.Open(db, coord, logger)
	if err != nil {
		if ownsCoord {
			coord.Close()
		}
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		cfg:        cfg,
		logger:     logger.WithComponent("runtime"),
		metrics:    m,
		db:         db,
		coord:      coord,
		ownsCoord:  ownsCoord,
		bus:        bus,
		ownsBus:    ownsBus,
		dir:        dir,
		partitions: make(map[string]*partition.Partition),
		ctx:        ctx,
		cancel:     cancel,
	}
	dir.SetISRSource(rt)
	m.RegisterEngine(rt)

	// Re-seed assignments for registered streams the coordinator has no
	// record of (static mode keeps assignments in memory only).
	for _, sc := range dir.Streams() {
		if _, err := coord.AssignmentFor(sc.Name, 0); errors.Is(err, cluster.ErrUnknownPartition) {
			if _, err := coord.Assign(sc.Name, sc.Partitions, sc.ReplicationFactor); err != nil {
				rt.logger.Warn("reassign stream failed", logpkg.Str("stream", sc.Name), logpkg.Err(err))
			}
		}
	}
	rt.reconcile()

	rt.wg.Add(2)
	go rt.watchLoop()
	go rt.retentionLoop()
	return rt, nil
}

func fsyncMode(s string) pebblestore.FsyncMode {
	switch s {
	case "interval":
		return pebblestore.FsyncModeInterval
	case "never":
		return pebblestore.FsyncModeNever
	default:
		return pebblestore.FsyncModeAlways
	}
}

func newCoordinator(cfg cfgpkg.Config, logger logpkg.Logger) (cluster.Coordinator, error) {
	self := cluster.Broker{ID: cfg.Broker.ID, Host: cfg.Broker.Host, Port: cfg.Broker.Port}
	switch cfg.Cluster.Mode {
	case "etcd":
		return cluster.NewEtcdCoordinator(cluster.EtcdConfig{
			Endpoints:  cfg.Cluster.EtcdEndpoints,
			Self:       self,
			SessionTTL: cfg.Cluster.EtcdSessionTTL,
		}, logger)
	default:
		brokers := []cluster.Broker{self}
		for _, p := range cfg.Cluster.Peers {
			if p.ID == self.ID {
				continue
			}
			brokers = append(brokers, cluster.Broker{ID: p.ID, Host: p.Host, Port: p.Port})
		}
		return cluster.NewStaticCluster(brokers...).Coordinator(self.ID), nil
	}
}

func partKey(stream string, id int32) string { return fmt.Sprintf("%s/%d", stream, id) }

// CreateStream registers a stream and opens the partitions assigned to this
// broker.
func (r *Runtime) CreateStream(cfg metadata.StreamConfig) (metadata.StreamConfig, error) {
	created, err := r.dir.CreateStream(cfg)
	if err != nil {
		return metadata.StreamConfig{}, err
	}
	r.reconcile()
	return created, nil
}

// Partition returns the locally hosted partition engine for stream/id.
func (r *Runtime) Partition(stream string, id int32) (*partition.Partition, error) {
	r.mu.RLock()
	p := r.partitions[partKey(stream, id)]
	r.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if _, err := r.dir.GetStream(stream); err != nil {
		return nil, err
	}
	return nil, ErrPartitionNotHosted
}

// PartitionStats snapshots every hosted partition, ordered by stream then id.
func (r *Runtime) PartitionStats() []partition.Stats {
	r.mu.RLock()
	out := make([]partition.Stats, 0, len(r.partitions))
	for _, p := range r.partitions {
		out = append(out, p.Stats())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stream != out[j].Stream {
			return out[i].Stream < out[j].Stream
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// ISR reports the live in-sync set for partitions this broker leads.
func (r *Runtime) ISR(stream string, id int32) ([]string, bool) {
	r.mu.RLock()
	p := r.partitions[partKey(stream, id)]
	r.mu.RUnlock()
	if p == nil || !p.IsLeader() {
		return nil, false
	}
	isr, _ := p.ISR()
	return isr, true
}

// Directory returns the stream registry.
func (r *Runtime) Directory() *metadata.Directory { return r.dir }

// Coordinator returns the cluster coordinator view of this broker.
func (r *Runtime) Coordinator() cluster.Coordinator { return r.coord }

// Bus returns the replication/ack bus.
func (r *Runtime) Bus() transport.Bus { return r.bus }

// Metrics returns the broker metric set.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.cfg }

// Logger returns the base logger servers should derive from.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("runtime: db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return ctx.Err()
}

func (r *Runtime) watchLoop() {
	defer r.wg.Done()
	ch := r.coord.Watch()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ch:
			r.reconcile()
		}
	}
}

// reconcile opens partitions newly assigned to this broker and closes ones
// that moved away. Partition engines track leadership changes themselves; the
// runtime only tracks membership in the replica set.
func (r *Runtime) reconcile() {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	self := r.coord.Self().ID
	want := make(map[string]struct{})
	for stream, parts := range r.coord.Assignments() {
		for id, a := range parts {
			if !a.HasReplica(self) {
				continue
			}
			key := partKey(stream, id)
			want[key] = struct{}{}
			r.mu.RLock()
			_, open := r.partitions[key]
			closed := r.closed
			r.mu.RUnlock()
			if open || closed {
				continue
			}
			p, err := r.openPartition(stream, id)
			if err != nil {
				r.logger.Error("open partition failed",
					logpkg.Str("stream", stream), logpkg.Int("partition", int(id)), logpkg.Err(err))
				continue
			}
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				p.Close()
				return
			}
			r.partitions[key] = p
			r.mu.Unlock()
		}
	}

	var evicted []*partition.Partition
	r.mu.Lock()
	for key, p := range r.partitions {
		if _, keep := want[key]; !keep {
			delete(r.partitions, key)
			evicted = append(evicted, p)
		}
	}
	r.mu.Unlock()
	for _, p := range evicted {
		p.Close()
	}
}

func (r *Runtime) openPartition(stream string, id int32) (*partition.Partition, error) {
	log, err := commitlog.Open(r.db, stream, uint32(id), commitlog.Options{
		CompressMin: r.cfg.CompressMinBytes,
	})
	if err != nil {
		return nil, err
	}
	pcfg := partition.Config{
		ReplicaLagMax:  r.cfg.Replication.ReplicaLagMax,
		ReplicaTimeout: time.Duration(r.cfg.Replication.ReplicaTimeoutMs) * time.Millisecond,
		TickInterval:   time.Duration(r.cfg.Replication.TickMs) * time.Millisecond,
	}
	return partition.New(pcfg, stream, id, log, r.bus, r.coord, r.logger)
}

func (r *Runtime) retentionLoop() {
	defer r.wg.Done()
	interval := time.Duration(r.cfg.Retention.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-t.C:
			r.sweepRetention()
		}
	}
}

// sweepRetention applies age and size limits to every hosted partition.
// Per-stream settings override the broker defaults; trims only ever remove
// the head, so replication and readers above the trim point are unaffected.
func (r *Runtime) sweepRetention() {
	r.mu.RLock()
	parts := make([]*partition.Partition, 0, len(r.partitions))
	for _, p := range r.partitions {
		parts = append(parts, p)
	}
	r.mu.RUnlock()

	batch := r.cfg.Retention.TrimBatchSize
	for _, p := range parts {
		maxAge := time.Duration(r.cfg.Retention.MaxAgeMs) * time.Millisecond
		maxBytes := r.cfg.Retention.MaxBytes
		if sc, err := r.dir.GetStream(p.Stream()); err == nil {
			if sc.RetentionMaxAge > 0 {
				maxAge = sc.RetentionMaxAge
			}
			if sc.RetentionMaxBytes > 0 {
				maxBytes = sc.RetentionMaxBytes
			}
		}
		if maxAge > 0 {
			cutoff := time.Now().Add(-maxAge).UnixMilli()
			if n, err := p.Log().TrimOlderThan(r.ctx, cutoff, batch, 0); err != nil {
				r.logger.Warn("retention trim failed", logpkg.Str("stream", p.Stream()), logpkg.Err(err))
			} else if n > 0 {
				r.logger.Debug("retention trimmed by age",
					logpkg.Str("stream", p.Stream()), logpkg.Int("partition", int(p.ID())), logpkg.Int("records", n))
			}
		}
		if maxBytes > 0 {
			if n, err := p.Log().TrimToMaxBytes(r.ctx, maxBytes, batch, 0); err != nil {
				r.logger.Warn("retention trim failed", logpkg.Str("stream", p.Stream()), logpkg.Err(err))
			} else if n > 0 {
				r.logger.Debug("retention trimmed by size",
					logpkg.Str("stream", p.Stream()), logpkg.Int("partition", int(p.ID())), logpkg.Int("records", n))
			}
		}
	}
}

// Close stops loops, closes hosted partitions, and releases storage.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	parts := r.partitions
	r.partitions = make(map[string]*partition.Partition)
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	for _, p := range parts {
		p.Close()
	}
	if r.ownsCoord {
		r.coord.Close()
	}
	if r.ownsBus {
		r.bus.Close()
	}
	return r.db.Close()
}
