package partition

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/commitlog"
	"github.com/rzbill/strand/internal/transport"
	logpkg "github.com/rzbill/strand/pkg/log"
)

// fetchDebounce bounds how often a follower re-requests a gap.
const fetchDebounce = 500 * time.Millisecond

// follower is the replica-side half: applies leader frames in strict offset
// order, mirrors the leader's high-water mark, reports its watermark back,
// and fetches any gap it detects.
type follower struct {
	p      *Partition
	epoch  uint64
	leader string
	sub    transport.Subscription

	mu        sync.Mutex
	lastFetch time.Time
}

func newFollower(p *Partition, a cluster.Assignment) (*follower, error) {
	f := &follower{p: p, epoch: a.Epoch, leader: a.Leader}
	sub, err := p.bus.Subscribe(replicaSubject(p.stream, p.id, p.selfID), f.handleFrame)
	if err != nil {
		return nil, err
	}
	f.sub = sub
	// Announce our tail and pull anything the leader has beyond it; without
	// this a quiet partition would leave a restarted follower behind forever.
	f.reportWatermark()
	f.requestFetch(p.log.NewestOffset() + 1)
	return f, nil
}

// handleFrame applies one leader frame. Frames from another epoch are
// rejected; duplicate records below our tail are skipped; a gap past our tail
// triggers a catch-up fetch instead of an out-of-order apply.
func (f *follower) handleFrame(_ string, data []byte) {
	frame, ok := decodeFrame(data)
	if !ok {
		f.p.logger.Warn("dropping malformed replication frame")
		return
	}
	if frame.Epoch != f.epoch {
		return
	}

	recs := frame.Records
	tail := f.p.log.NewestOffset()
	for len(recs) > 0 && recs[0].Offset <= tail {
		recs = recs[1:]
	}
	if len(recs) > 0 {
		err := f.p.log.AppendAssigned(context.Background(), recs)
		switch {
		case errors.Is(err, commitlog.ErrGap):
			f.requestFetch(tail + 1)
			return
		case err != nil:
			f.p.logger.Error("replica apply failed", logpkg.Err(err))
			return
		}
	}

	f.p.advanceHWM(frame.HWM)
	f.reportWatermark()
}

func (f *follower) reportWatermark() {
	rep := watermarkReport{
		Replica:   f.p.selfID,
		Epoch:     f.epoch,
		Watermark: f.p.log.NewestOffset(),
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return
	}
	if err := f.p.bus.Publish(watermarkSubject(f.p.stream, f.p.id), data); err != nil && err != transport.ErrClosed {
		f.p.logger.Warn("watermark report failed", logpkg.Err(err))
	}
}

func (f *follower) requestFetch(from int64) {
	f.mu.Lock()
	if time.Since(f.lastFetch) < fetchDebounce {
		f.mu.Unlock()
		return
	}
	f.lastFetch = time.Now()
	f.mu.Unlock()

	req := fetchRequest{Replica: f.p.selfID, Epoch: f.epoch, From: from}
	data, err := json.Marshal(req)
	if err != nil {
		return
	}
	if err := f.p.bus.Publish(fetchSubject(f.p.stream, f.p.id), data); err != nil && err != transport.ErrClosed {
		f.p.logger.Warn("catch-up request failed", logpkg.Int64("from", from), logpkg.Err(err))
	}
}

func (f *follower) stop() {
	f.sub.Unsubscribe()
}
