package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	logpkg "github.com/rzbill/strand/pkg/log"
)

// EtcdConfig configures the etcd-backed coordinator.
type EtcdConfig struct {
	Endpoints []string
	Self      Broker
	// SessionTTL is the liveness lease in seconds; a broker whose session
	// lapses is treated as offline and loses its leaderships. Default 10.
	SessionTTL int
	// Prefix namespaces all keys. Default "/strand".
	Prefix string
}

// EtcdCoordinator implements Coordinator over an external etcd cluster:
// brokers register under a session lease, one broker wins the controller
// election and reassigns leadership away from dead brokers, and every broker
// mirrors the registry and assignments through a prefix watch.
type EtcdCoordinator struct {
	cfg      EtcdConfig
	client   *clientv3.Client
	session  *concurrency.Session
	election *concurrency.Election
	logger   logpkg.Logger

	mu       sync.RWMutex
	brokers  map[string]Broker
	assigns  map[string]Assignment
	watchers []chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (c *EtcdCoordinator) brokersKey() string { return c.cfg.Prefix + "/brokers/" }
func (c *EtcdCoordinator) assignsKey() string { return c.cfg.Prefix + "/assign/" }

// NewEtcdCoordinator connects, registers this broker, and begins mirroring
// cluster state.
func NewEtcdCoordinator(cfg EtcdConfig, logger logpkg.Logger) (*EtcdCoordinator, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 10
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/strand"
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	client, err := clientv3.New(clientv3.Config{Endpoints: cfg.Endpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cluster: etcd dial: %w", err)
	}
	session, err := concurrency.NewSession(client, concurrency.WithTTL(cfg.SessionTTL))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("cluster: etcd session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &EtcdCoordinator{
		cfg:      cfg,
		client:   client,
		session:  session,
		election: concurrency.NewElection(session, cfg.Prefix+"/controller"),
		logger:   logger.WithComponent("cluster"),
		brokers:  map[string]Broker{},
		assigns:  map[string]Assignment{},
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := c.register(); err != nil {
		cancel()
		session.Close()
		client.Close()
		return nil, err
	}
	if err := c.loadState(); err != nil {
		cancel()
		session.Close()
		client.Close()
		return nil, err
	}

	c.wg.Add(2)
	go c.watchLoop()
	go c.controllerLoop()
	return c, nil
}

func (c *EtcdCoordinator) register() error {
	b, err := json.Marshal(c.cfg.Self)
	if err != nil {
		return err
	}
	_, err = c.client.Put(c.ctx, c.brokersKey()+c.cfg.Self.ID, string(b), clientv3.WithLease(c.session.Lease()))
	if err != nil {
		return fmt.Errorf("cluster: register broker: %w", err)
	}
	return nil
}

func (c *EtcdCoordinator) loadState() error {
	resp, err := c.client.Get(c.ctx, c.cfg.Prefix+"/", clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("cluster: load state: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kv := range resp.Kvs {
		c.applyKVLocked(string(kv.Key), kv.Value, false)
	}
	return nil
}

// applyKVLocked folds one key/value (or deletion) into the local mirrors.
func (c *EtcdCoordinator) applyKVLocked(key string, value []byte, deleted bool) {
	switch {
	case strings.HasPrefix(key, c.brokersKey()):
		idPart := strings.TrimPrefix(key, c.brokersKey())
		if deleted {
			delete(c.brokers, idPart)
			return
		}
		var b Broker
		if err := json.Unmarshal(value, &b); err == nil {
			c.brokers[b.ID] = b
		}
	case strings.HasPrefix(key, c.assignsKey()):
		rel := strings.TrimPrefix(key, c.assignsKey())
		if deleted {
			delete(c.assigns, rel)
			return
		}
		var a Assignment
		if err := json.Unmarshal(value, &a); err == nil {
			c.assigns[rel] = a
		}
	}
}

func (c *EtcdCoordinator) watchLoop() {
	defer c.wg.Done()
	wch := c.client.Watch(c.ctx, c.cfg.Prefix+"/", clientv3.WithPrefix())
	for resp := range wch {
		if resp.Err() != nil {
			c.logger.Warn("etcd watch error", logpkg.Err(resp.Err()))
			continue
		}
		c.mu.Lock()
		for _, ev := range resp.Events {
			c.applyKVLocked(string(ev.Kv.Key), ev.Kv.Value, ev.Type == clientv3.EventTypeDelete)
		}
		c.notifyLocked()
		c.mu.Unlock()
	}
}

// controllerLoop campaigns for the controller role; the winner moves
// leadership away from brokers whose registrations disappear.
func (c *EtcdCoordinator) controllerLoop() {
	defer c.wg.Done()
	for c.ctx.Err() == nil {
		if err := c.election.Campaign(c.ctx, c.cfg.Self.ID); err != nil {
			return
		}
		c.logger.Info("elected controller", logpkg.Str("broker", c.cfg.Self.ID))
		wch := c.client.Watch(c.ctx, c.brokersKey(), clientv3.WithPrefix())
		for resp := range wch {
			if resp.Err() != nil {
				break
			}
			for _, ev := range resp.Events {
				if ev.Type == clientv3.EventTypeDelete {
					dead := strings.TrimPrefix(string(ev.Kv.Key), c.brokersKey())
					c.reassignFrom(dead)
				}
			}
		}
	}
}

// reassignFrom moves leadership of every partition led by deadID onto the
// first surviving replica, bumping the epoch with a CAS so concurrent
// controllers cannot both win.
func (c *EtcdCoordinator) reassignFrom(deadID string) {
	c.mu.RLock()
	type move struct {
		key string
		a   Assignment
	}
	var moves []move
	for key, a := range c.assigns {
		if a.Leader != deadID {
			continue
		}
		for _, r := range a.Replicas {
			if r == deadID {
				continue
			}
			if _, live := c.brokers[r]; live {
				na := a
				na.Leader = r
				na.Epoch++
				moves = append(moves, move{key: key, a: na})
				break
			}
		}
	}
	c.mu.RUnlock()

	for _, m := range moves {
		prev, err := json.Marshal(Assignment{Epoch: m.a.Epoch - 1, Replicas: m.a.Replicas, Leader: deadID})
		if err != nil {
			continue
		}
		next, err := json.Marshal(m.a)
		if err != nil {
			continue
		}
		key := c.assignsKey() + m.key
		_, err = c.client.Txn(c.ctx).
			If(clientv3.Compare(clientv3.Value(key), "=", string(prev))).
			Then(clientv3.OpPut(key, string(next))).
			Commit()
		if err != nil {
			c.logger.Warn("leader reassignment failed",
				logpkg.Str("partition", m.key), logpkg.Err(err))
			continue
		}
		c.logger.Info("leadership moved",
			logpkg.Str("partition", m.key),
			logpkg.Str("from", deadID),
			logpkg.Str("to", m.a.Leader),
			logpkg.Uint64("epoch", m.a.Epoch))
	}
}

func (c *EtcdCoordinator) notifyLocked() {
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Self implements Coordinator.
func (c *EtcdCoordinator) Self() Broker { return c.cfg.Self }

// Brokers implements Coordinator.
func (c *EtcdCoordinator) Brokers() []Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Broker, 0, len(c.brokers))
	for _, b := range c.brokers {
		out = append(out, b)
	}
	return out
}

// Assign implements Coordinator. Assignments are created once per stream; a
// pre-existing key fails the transaction so CreateStream stays idempotent at
// the directory layer.
func (c *EtcdCoordinator) Assign(stream string, partitions, replicationFactor int32) ([]Assignment, error) {
	brokers := c.Brokers()
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	if int(replicationFactor) > len(brokers) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughBrokers, replicationFactor, len(brokers))
	}

	out := make([]Assignment, partitions)
	for p := int32(0); p < partitions; p++ {
		replicas := make([]string, replicationFactor)
		for r := int32(0); r < replicationFactor; r++ {
			replicas[r] = brokers[int(p+r)%len(brokers)].ID
		}
		a := Assignment{Epoch: 0, Replicas: replicas, Leader: replicas[0]}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		key := c.assignsKey() + assignKey(stream, p)
		txn, err := c.client.Txn(c.ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, string(val))).
			Commit()
		if err != nil {
			return nil, fmt.Errorf("cluster: write assignment: %w", err)
		}
		if !txn.Succeeded {
			return nil, fmt.Errorf("cluster: assignment for %s exists", assignKey(stream, p))
		}
		c.mu.Lock()
		c.assigns[assignKey(stream, p)] = a
		c.mu.Unlock()
		out[p] = a
	}
	return out, nil
}

// AssignmentFor implements Coordinator.
func (c *EtcdCoordinator) AssignmentFor(stream string, partition int32) (Assignment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assigns[assignKey(stream, partition)]
	if !ok {
		return Assignment{}, ErrUnknownPartition
	}
	return a, nil
}

// Assignments implements Coordinator.
func (c *EtcdCoordinator) Assignments() map[string]map[int32]Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[int32]Assignment, len(c.assigns))
	for key, a := range c.assigns {
		stream, p, err := partitionFromAssignKey(key)
		if err != nil {
			continue
		}
		if out[stream] == nil {
			out[stream] = make(map[int32]Assignment)
		}
		out[stream][p] = a
	}
	return out
}

// Watch implements Coordinator.
func (c *EtcdCoordinator) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()
	return ch
}

// Close implements Coordinator.
func (c *EtcdCoordinator) Close() error {
	c.cancel()
	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	_ = c.election.Resign(rctx)
	rcancel()
	c.session.Close()
	err := c.client.Close()
	c.wg.Wait()
	return err
}

// partitionFromAssignKey parses "stream/partition" back into parts.
func partitionFromAssignKey(key string) (string, int32, error) {
	dir, base := path.Split(key)
	p, err := strconv.ParseInt(base, 10, 32)
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSuffix(dir, "/"), int32(p), nil
}
