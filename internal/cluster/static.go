package cluster

import (
	"fmt"
	"sync"
)

// StaticCluster holds shared assignment state for a fixed broker set. Every
// broker in a process group derives its Coordinator from the same
// StaticCluster, which stands in for the external consensus service. Tests
// drive failover explicitly through Promote/RemoveBroker.
type StaticCluster struct {
	mu       sync.RWMutex
	brokers  []Broker
	assigns  map[string]Assignment // key: stream "/" partition
	watchers []chan struct{}
}

// NewStaticCluster builds a cluster over a fixed broker list.
func NewStaticCluster(brokers ...Broker) *StaticCluster {
	return &StaticCluster{
		brokers: append([]Broker(nil), brokers...),
		assigns: make(map[string]Assignment),
	}
}

func assignKey(stream string, partition int32) string {
	return fmt.Sprintf("%s/%d", stream, partition)
}

// Coordinator returns the view of this cluster for one broker.
func (c *StaticCluster) Coordinator(selfID string) Coordinator {
	return &staticCoordinator{cluster: c, selfID: selfID}
}

func (c *StaticCluster) brokersSnapshot() []Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Broker(nil), c.brokers...)
}

func (c *StaticCluster) assign(stream string, partitions, replicationFactor int32) ([]Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	if int(replicationFactor) > len(c.brokers) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughBrokers, replicationFactor, len(c.brokers))
	}
	out := make([]Assignment, partitions)
	for p := int32(0); p < partitions; p++ {
		replicas := make([]string, replicationFactor)
		for r := int32(0); r < replicationFactor; r++ {
			replicas[r] = c.brokers[int(p+r)%len(c.brokers)].ID
		}
		a := Assignment{Epoch: 0, Replicas: replicas, Leader: replicas[0]}
		c.assigns[assignKey(stream, p)] = a
		out[p] = a
	}
	c.notifyLocked()
	return out, nil
}

// Promote moves partition leadership to newLeader with a bumped epoch.
// Models the external election outcome after a leader failure.
func (c *StaticCluster) Promote(stream string, partition int32, newLeader string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := assignKey(stream, partition)
	a, ok := c.assigns[key]
	if !ok {
		return ErrUnknownPartition
	}
	if !a.HasReplica(newLeader) {
		return fmt.Errorf("cluster: %q is not a replica of %s", newLeader, key)
	}
	a.Leader = newLeader
	a.Epoch++
	c.assigns[key] = a
	c.notifyLocked()
	return nil
}

// RemoveBroker drops a broker from membership (simulated crash). Leadership
// of its partitions moves to the next surviving replica.
func (c *StaticCluster) RemoveBroker(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.brokers[:0]
	for _, b := range c.brokers {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	c.brokers = kept
	for key, a := range c.assigns {
		if a.Leader != id {
			continue
		}
		for _, r := range a.Replicas {
			if r != id {
				a.Leader = r
				a.Epoch++
				c.assigns[key] = a
				break
			}
		}
	}
	c.notifyLocked()
}

func (c *StaticCluster) notifyLocked() {
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type staticCoordinator struct {
	cluster *StaticCluster
	selfID  string
}

func (s *staticCoordinator) Self() Broker {
	for _, b := range s.cluster.brokersSnapshot() {
		if b.ID == s.selfID {
			return b
		}
	}
	return Broker{ID: s.selfID}
}

func (s *staticCoordinator) Brokers() []Broker { return s.cluster.brokersSnapshot() }

func (s *staticCoordinator) Assign(stream string, partitions, replicationFactor int32) ([]Assignment, error) {
	return s.cluster.assign(stream, partitions, replicationFactor)
}

func (s *staticCoordinator) AssignmentFor(stream string, partition int32) (Assignment, error) {
	s.cluster.mu.RLock()
	defer s.cluster.mu.RUnlock()
	a, ok := s.cluster.assigns[assignKey(stream, partition)]
	if !ok {
		return Assignment{}, ErrUnknownPartition
	}
	return a, nil
}

func (s *staticCoordinator) Assignments() map[string]map[int32]Assignment {
	s.cluster.mu.RLock()
	defer s.cluster.mu.RUnlock()
	out := make(map[string]map[int32]Assignment, len(s.cluster.assigns))
	for key, a := range s.cluster.assigns {
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

func (s *staticCoordinator) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.cluster.mu.Lock()
	s.cluster.watchers = append(s.cluster.watchers, ch)
	s.cluster.mu.Unlock()
	return ch
}

func (s *staticCoordinator) Close() error { return nil }
