package partition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/commitlog"
	"github.com/rzbill/strand/internal/transport"
	logpkg "github.com/rzbill/strand/pkg/log"
)

var (
	// ErrNotLeader is returned when a leader-only operation lands on a
	// follower. Callers should refresh metadata and retry on the leader.
	ErrNotLeader = errors.New("partition: not the partition leader")
	// ErrClosed is returned by operations on a closed partition or reader.
	ErrClosed = errors.New("partition: closed")
)

// Config tunes replication and ISR behavior.
type Config struct {
	// ReplicaLagMax is the offset distance behind the leader tail at which a
	// follower is marked LAGGING and leaves the ISR.
	ReplicaLagMax int64
	// ReplicaTimeout is how long a follower may go without a watermark report
	// before it is marked OFFLINE.
	ReplicaTimeout time.Duration
	// TickInterval is how often the leader re-evaluates replica states.
	TickInterval time.Duration
	// CatchupBatch is the record count per catch-up frame.
	CatchupBatch int
	// CatchupRate throttles catch-up reads (records/sec) so a recovering
	// follower does not starve live traffic. Zero means no throttle.
	CatchupRate rate.Limit
}

func (c Config) withDefaults() Config {
	if c.ReplicaLagMax <= 0 {
		c.ReplicaLagMax = 1024
	}
	if c.ReplicaTimeout <= 0 {
		c.ReplicaTimeout = 5 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.CatchupBatch <= 0 {
		c.CatchupBatch = 256
	}
	return c
}

// Ack is the acknowledgement emitted on a record's ack inbox subject once the
// record reaches its policy's durability point.
type Ack struct {
	Stream        string `json:"stream"`
	Partition     int32  `json:"partition"`
	Offset        int64  `json:"offset"`
	CorrelationID string `json:"correlationId,omitempty"`
	CommitTime    int64  `json:"commitTime"`
}

// Partition ties one commit log to its replication role.
type Partition struct {
	stream string
	id     int32
	log    *commitlog.Log
	bus    transport.Bus
	coord  cluster.Coordinator
	selfID string
	logger logpkg.Logger
	cfg    Config

	acks *ackWaiters

	mu      sync.Mutex
	epoch   uint64
	leader  string
	started bool
	repl    *replicator
	follow  *follower
	closed  bool

	// hwmMu serializes high-water-mark advances so commit callbacks observe
	// each (old, new) transition exactly once.
	hwmMu sync.Mutex

	// appendMu couples offset assignment with the replication fanout so
	// concurrent Appends cannot emit frames out of offset order.
	appendMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a partition, adopting the coordinator's current assignment and
// following assignment changes until Close.
func New(cfg Config, stream string, id int32, log *commitlog.Log, bus transport.Bus, coord cluster.Coordinator, logger logpkg.Logger) (*Partition, error) {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Partition{
		stream: stream,
		id:     id,
		log:    log,
		bus:    bus,
		coord:  coord,
		selfID: coord.Self().ID,
		logger: logger.WithComponent("partition").With(logpkg.Str("stream", stream), logpkg.Int("partition", int(id))),
		cfg:    cfg.withDefaults(),
		acks:   newAckWaiters(),
		ctx:    ctx,
		cancel: cancel,
	}

	a, err := coord.AssignmentFor(stream, id)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("partition %s/%d: %w", stream, id, err)
	}
	if err := p.applyAssignment(a); err != nil {
		cancel()
		return nil, err
	}

	p.wg.Add(1)
	go p.watchAssignments()
	return p, nil
}

// Stream returns the owning stream name.
func (p *Partition) Stream() string { return p.stream }

// ID returns the partition id.
func (p *Partition) ID() int32 { return p.id }

// Log exposes the underlying commit log for readers and retention.
func (p *Partition) Log() *commitlog.Log { return p.log }

// Epoch returns the current leader epoch.
func (p *Partition) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Leader returns the current leader broker id.
func (p *Partition) Leader() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leader
}

// IsLeader reports whether this broker currently leads the partition.
func (p *Partition) IsLeader() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leader == p.selfID
}

// ISR returns the current in-sync replica ids (leader first) and the state of
// every replica. On a follower it reflects the assignment only.
func (p *Partition) ISR() ([]string, map[string]ReplicaState) {
	p.mu.Lock()
	repl := p.repl
	leader := p.leader
	p.mu.Unlock()
	if repl != nil {
		return repl.isrSnapshot()
	}
	// follower view: assignment replicas, states unknown beyond the leader
	a, err := p.coord.AssignmentFor(p.stream, p.id)
	if err != nil {
		return []string{leader}, nil
	}
	return append([]string{}, a.Replicas...), nil
}

func (p *Partition) watchAssignments() {
	defer p.wg.Done()
	ch := p.coord.Watch()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ch:
			a, err := p.coord.AssignmentFor(p.stream, p.id)
			if err != nil {
				continue
			}
			if err := p.applyAssignment(a); err != nil {
				p.logger.Error("assignment apply failed", logpkg.Err(err))
			}
		}
	}
}

// applyAssignment adopts a new epoch: stop the old role, drop the uncommitted
// tail, then start as leader or follower. Stale epochs are ignored.
func (p *Partition) applyAssignment(a cluster.Assignment) error {
	p.mu.Lock()
	if p.closed || (p.started && a.Epoch <= p.epoch) {
		p.mu.Unlock()
		return nil
	}
	oldRepl, oldFollow := p.repl, p.follow
	p.repl, p.follow = nil, nil
	p.epoch = a.Epoch
	p.leader = a.Leader
	p.started = true
	p.mu.Unlock()

	if oldRepl != nil {
		oldRepl.stop()
	}
	if oldFollow != nil {
		oldFollow.stop()
	}

	// Reconcile: anything past the proven HWM was never fully replicated and
	// may differ from the new leader's log.
	hwm := p.log.HighWaterMark()
	if err := p.log.Truncate(hwm); err != nil {
		return fmt.Errorf("partition %s/%d: truncate to %d: %w", p.stream, p.id, hwm, err)
	}

	switch {
	case a.Leader == p.selfID:
		r, err := newReplicator(p, a)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.repl = r
		p.mu.Unlock()
		p.logger.Info("leading partition", logpkg.Uint64("epoch", a.Epoch), logpkg.Any("replicas", a.Replicas))
		// With no followers the tail is committed as soon as it is durable.
		r.recomputeHWM()
	case a.HasReplica(p.selfID):
		f, err := newFollower(p, a)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.follow = f
		p.mu.Unlock()
		p.logger.Info("following partition", logpkg.Uint64("epoch", a.Epoch), logpkg.Str("leader", a.Leader))
	default:
		p.logger.Warn("not in replica set", logpkg.Uint64("epoch", a.Epoch))
	}
	return nil
}

// Append appends records on the leader, assigns offsets, fans them out to
// followers, and emits LEADER-policy acks. Returns ErrNotLeader elsewhere.
func (p *Partition) Append(ctx context.Context, recs []commitlog.Record) ([]int64, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	repl := p.repl
	p.mu.Unlock()
	if repl == nil {
		return nil, ErrNotLeader
	}

	now := time.Now().UnixMilli()
	for i := range recs {
		recs[i].Timestamp = now
	}
	p.appendMu.Lock()
	offsets, err := p.log.Append(ctx, recs)
	if err != nil {
		p.appendMu.Unlock()
		return nil, err
	}
	repl.fanout(recs)
	p.appendMu.Unlock()
	repl.recomputeHWM()
	p.emitAcks(recs, commitlog.AckLeader)
	return offsets, nil
}

// WaitCommitted blocks until the high-water mark reaches offset, the context
// ends, or the partition closes. ALL-policy publishes wait here; a context
// deadline surfaces as context.DeadlineExceeded while the ack itself is still
// emitted on the inbox when the commit eventually lands.
func (p *Partition) WaitCommitted(ctx context.Context, offset int64) error {
	return p.acks.wait(ctx, offset, p.log.HighWaterMark)
}

// advanceHWM moves the high-water mark to target (monotonic, capped by the
// local tail) and fires commit-side effects exactly once per transition.
func (p *Partition) advanceHWM(target int64) {
	if tail := p.log.NewestOffset(); target > tail {
		target = tail
	}
	p.hwmMu.Lock()
	old := p.log.HighWaterMark()
	if target <= old {
		p.hwmMu.Unlock()
		return
	}
	if err := p.log.SetHighWaterMark(target); err != nil {
		p.hwmMu.Unlock()
		p.logger.Error("hwm advance failed", logpkg.Int64("hwm", target), logpkg.Err(err))
		return
	}
	p.hwmMu.Unlock()

	p.acks.commit(target)
	if p.IsLeader() {
		p.emitCommittedAcks(old+1, target)
	}
}

// emitCommittedAcks acks ALL-policy records in [from, to] after replication.
func (p *Partition) emitCommittedAcks(from, to int64) {
	if from > to {
		return
	}
	recs, err := p.log.ReadBatch(from, int(to-from+1), to)
	if err != nil {
		p.logger.Error("ack read failed", logpkg.Err(err))
		return
	}
	p.emitAcks(recs, commitlog.AckAll)
}

func (p *Partition) emitAcks(recs []commitlog.Record, policy commitlog.AckPolicy) {
	now := time.Now().UnixMilli()
	for i := range recs {
		if recs[i].AckPolicy != policy || recs[i].AckInbox == "" {
			continue
		}
		ack := Ack{
			Stream:        p.stream,
			Partition:     p.id,
			Offset:        recs[i].Offset,
			CorrelationID: recs[i].CorrelationID,
			CommitTime:    now,
		}
		data, err := json.Marshal(ack)
		if err != nil {
			continue
		}
		if err := p.bus.Publish(recs[i].AckInbox, data); err != nil && err != transport.ErrClosed {
			p.logger.Warn("ack publish failed", logpkg.Str("inbox", recs[i].AckInbox), logpkg.Err(err))
		}
	}
}

// Stats is a point-in-time snapshot for metadata and the admin surface.
type Stats struct {
	Stream        string
	Partition     int32
	Epoch         uint64
	Leader        string
	OldestOffset  int64
	NewestOffset  int64
	HighWaterMark int64
	ISR           []string
}

// Stats snapshots the partition.
func (p *Partition) Stats() Stats {
	isr, _ := p.ISR()
	return Stats{
		Stream:        p.stream,
		Partition:     p.id,
		Epoch:         p.Epoch(),
		Leader:        p.Leader(),
		OldestOffset:  p.log.OldestOffset(),
		NewestOffset:  p.log.NewestOffset(),
		HighWaterMark: p.log.HighWaterMark(),
		ISR:           isr,
	}
}

// Close stops replication and releases waiters. Idempotent.
func (p *Partition) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	repl, follow := p.repl, p.follow
	p.repl, p.follow = nil, nil
	p.mu.Unlock()

	p.cancel()
	if repl != nil {
		repl.stop()
	}
	if follow != nil {
		follow.stop()
	}
	p.acks.closeAll()
	p.wg.Wait()
	return nil
}

func replicaSubject(stream string, id int32, replica string) string {
	return fmt.Sprintf("strand.replica.%s.%d.%s", stream, id, replica)
}

func watermarkSubject(stream string, id int32) string {
	return fmt.Sprintf("strand.watermark.%s.%d", stream, id)
}

func fetchSubject(stream string, id int32) string {
	return fmt.Sprintf("strand.fetch.%s.%d", stream, id)
}
