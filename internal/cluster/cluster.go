// Package cluster is the membership/leadership collaborator boundary.
//
// Strand does not run its own consensus: a Coordinator yields broker
// membership and the epoch-stamped replica-set and leader assignment for each
// stream partition, and notifies on change. Two implementations ship: Static
// (fixed broker set, deterministic assignment; single-process deployments and
// tests) and Etcd (lease-backed registry with controller election).
package cluster

import "errors"

// Broker identifies one broker process.
type Broker struct {
	ID   string `json:"id"`
	Host string `json:"host"`
	Port int32  `json:"port"`
}

// Assignment is the epoch-stamped replica set for one partition. Epoch
// increases on every leadership change; components reject traffic stamped
// with an older epoch.
type Assignment struct {
	Epoch    uint64   `json:"epoch"`
	Replicas []string `json:"replicas"`
	Leader   string   `json:"leader"`
}

// HasReplica reports whether id is in the replica set.
func (a Assignment) HasReplica(id string) bool {
	for _, r := range a.Replicas {
		if r == id {
			return true
		}
	}
	return false
}

var (
	// ErrNotEnoughBrokers is returned when a requested replication factor
	// exceeds live membership.
	ErrNotEnoughBrokers = errors.New("cluster: not enough brokers for replication factor")
	// ErrUnknownPartition is returned for lookups on unassigned partitions.
	ErrUnknownPartition = errors.New("cluster: partition not assigned")
)

// Coordinator is the consensus-collaborator interface the engine consumes.
type Coordinator interface {
	// Self returns this broker's identity.
	Self() Broker
	// Brokers returns current live membership.
	Brokers() []Broker
	// Assign creates epoch-0 assignments for a new stream's partitions,
	// spreading leaders and replicas over live brokers.
	Assign(stream string, partitions, replicationFactor int32) ([]Assignment, error)
	// AssignmentFor returns the current assignment of one partition.
	AssignmentFor(stream string, partition int32) (Assignment, error)
	// Assignments snapshots all known partition assignments, keyed by
	// stream name then partition id.
	Assignments() map[string]map[int32]Assignment
	// Watch returns a channel signaled (coalesced) whenever membership or
	// any assignment changes; read the new state via the getters.
	Watch() <-chan struct{}
	// Close releases coordinator resources.
	Close() error
}
