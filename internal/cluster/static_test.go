package cluster

import (
	"errors"
	"testing"
	"time"
)

func threeBrokerCluster() *StaticCluster {
	return NewStaticCluster(
		Broker{ID: "b1", Host: "127.0.0.1", Port: 9101},
		Broker{ID: "b2", Host: "127.0.0.1", Port: 9102},
		Broker{ID: "b3", Host: "127.0.0.1", Port: 9103},
	)
}

func TestAssignSpreadsLeaders(t *testing.T) {
	c := threeBrokerCluster()
	coord := c.Coordinator("b1")

	assigns, err := coord.Assign("orders", 3, 2)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(assigns) != 3 {
		t.Fatalf("want 3 assignments, got %d", len(assigns))
	}
	leaders := map[string]bool{}
	for p, a := range assigns {
		if a.Epoch != 0 {
			t.Fatalf("partition %d: new assignment epoch = %d, want 0", p, a.Epoch)
		}
		if len(a.Replicas) != 2 {
			t.Fatalf("partition %d: want 2 replicas, got %v", p, a.Replicas)
		}
		if a.Leader != a.Replicas[0] {
			t.Fatalf("partition %d: leader %q not first replica %v", p, a.Leader, a.Replicas)
		}
		leaders[a.Leader] = true
	}
	if len(leaders) != 3 {
		t.Fatalf("leaders not spread across brokers: %v", leaders)
	}
}

func TestAssignRejectsOversizedReplicationFactor(t *testing.T) {
	c := threeBrokerCluster()
	if _, err := c.Coordinator("b1").Assign("orders", 1, 4); !errors.Is(err, ErrNotEnoughBrokers) {
		t.Fatalf("want ErrNotEnoughBrokers, got %v", err)
	}
}

func TestAssignmentForUnknownPartition(t *testing.T) {
	c := threeBrokerCluster()
	if _, err := c.Coordinator("b1").AssignmentFor("nope", 0); !errors.Is(err, ErrUnknownPartition) {
		t.Fatalf("want ErrUnknownPartition, got %v", err)
	}
}

func TestPromoteBumpsEpoch(t *testing.T) {
	c := threeBrokerCluster()
	coord := c.Coordinator("b1")
	if _, err := coord.Assign("orders", 1, 3); err != nil {
		t.Fatalf("assign: %v", err)
	}
	before, _ := coord.AssignmentFor("orders", 0)

	follower := before.Replicas[1]
	if err := c.Promote("orders", 0, follower); err != nil {
		t.Fatalf("promote: %v", err)
	}
	after, _ := coord.AssignmentFor("orders", 0)
	if after.Leader != follower {
		t.Fatalf("leader = %q, want %q", after.Leader, follower)
	}
	if after.Epoch != before.Epoch+1 {
		t.Fatalf("epoch = %d, want %d", after.Epoch, before.Epoch+1)
	}

	if err := c.Promote("orders", 0, "not-a-replica"); err == nil {
		t.Fatalf("promote to non-replica succeeded")
	}
}

func TestRemoveBrokerMovesLeadership(t *testing.T) {
	c := threeBrokerCluster()
	coord := c.Coordinator("b2")
	if _, err := coord.Assign("orders", 3, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}

	c.RemoveBroker("b1")

	if len(coord.Brokers()) != 2 {
		t.Fatalf("brokers after removal = %v", coord.Brokers())
	}
	for p := int32(0); p < 3; p++ {
		a, err := coord.AssignmentFor("orders", p)
		if err != nil {
			t.Fatalf("partition %d: %v", p, err)
		}
		if a.Leader == "b1" {
			t.Fatalf("partition %d still led by removed broker", p)
		}
	}
}

func TestWatchSignalsOnChange(t *testing.T) {
	c := threeBrokerCluster()
	coord := c.Coordinator("b1")
	ch := coord.Watch()

	if _, err := coord.Assign("orders", 1, 1); err != nil {
		t.Fatalf("assign: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no watch signal after assign")
	}
}
