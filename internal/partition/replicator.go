package partition

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/commitlog"
	"github.com/rzbill/strand/internal/transport"
	logpkg "github.com/rzbill/strand/pkg/log"
)

// replicator is the leader-side half: fans appended records out to followers,
// folds their watermark reports into the ISR, serves catch-up fetches, and
// advances the high-water mark.
type replicator struct {
	p     *Partition
	epoch uint64
	isr   *isrTracker

	senders map[string]*followerSender

	wmSub    transport.Subscription
	fetchSub transport.Subscription
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// followerSender pushes frames to one follower behind a circuit breaker. An
// open breaker marks the replica OFFLINE instead of hammering a dead peer.
type followerSender struct {
	id      string
	subject string
	breaker *gobreaker.CircuitBreaker
}

func newReplicator(p *Partition, a cluster.Assignment) (*replicator, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &replicator{
		p:       p,
		epoch:   a.Epoch,
		senders: make(map[string]*followerSender),
		ctx:     ctx,
		cancel:  cancel,
	}
	if p.cfg.CatchupRate > 0 {
		r.limiter = rate.NewLimiter(p.cfg.CatchupRate, p.cfg.CatchupBatch)
	}

	var followers []string
	for _, id := range a.Replicas {
		if id == p.selfID {
			continue
		}
		followers = append(followers, id)
		r.senders[id] = &followerSender{
			id:      id,
			subject: replicaSubject(p.stream, p.id, id),
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    "replica-" + id,
				Timeout: p.cfg.ReplicaTimeout,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= 5
				},
			}),
		}
	}
	r.isr = newISRTracker(followers, p.cfg.ReplicaLagMax, p.cfg.ReplicaTimeout, time.Now())

	var err error
	r.wmSub, err = p.bus.Subscribe(watermarkSubject(p.stream, p.id), r.handleWatermark)
	if err != nil {
		cancel()
		return nil, err
	}
	r.fetchSub, err = p.bus.Subscribe(fetchSubject(p.stream, p.id), r.handleFetch)
	if err != nil {
		r.wmSub.Unsubscribe()
		cancel()
		return nil, err
	}

	r.wg.Add(1)
	go r.tickLoop()
	return r, nil
}

// fanout pushes freshly appended records to every follower.
func (r *replicator) fanout(recs []commitlog.Record) {
	if len(r.senders) == 0 {
		return
	}
	frame := encodeFrame(replFrame{
		Epoch:   r.epoch,
		Leader:  r.p.selfID,
		HWM:     r.p.log.HighWaterMark(),
		Records: recs,
	})
	r.broadcast(frame)
}

func (r *replicator) broadcast(frame []byte) {
	for _, s := range r.senders {
		if err := r.send(s, frame); err != nil {
			r.isr.markOffline(s.id)
		}
	}
}

func (r *replicator) send(s *followerSender, frame []byte) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, r.p.bus.Publish(s.subject, frame)
	})
	return err
}

// handleWatermark folds a follower report into the ISR and re-evaluates the
// high-water mark. Reports stamped with another epoch are dropped.
func (r *replicator) handleWatermark(_ string, data []byte) {
	var rep watermarkReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return
	}
	if rep.Epoch != r.epoch {
		return
	}
	r.isr.report(rep.Replica, rep.Watermark, r.p.log.NewestOffset(), time.Now())
	r.recomputeHWM()
}

// handleFetch streams the requested range back to a catching-up follower,
// throttled so recovery does not starve live traffic.
func (r *replicator) handleFetch(_ string, data []byte) {
	var req fetchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	if req.Epoch != r.epoch {
		return
	}
	s, ok := r.senders[req.Replica]
	if !ok {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		from := req.From
		for r.ctx.Err() == nil {
			if r.limiter != nil {
				if err := r.limiter.WaitN(r.ctx, r.p.cfg.CatchupBatch); err != nil {
					return
				}
			}
			recs, err := r.p.log.ReadBatch(from, r.p.cfg.CatchupBatch, r.p.log.NewestOffset())
			if err != nil {
				r.p.logger.Error("catch-up read failed", logpkg.Int64("from", from), logpkg.Err(err))
				return
			}
			if len(recs) == 0 {
				return
			}
			frame := encodeFrame(replFrame{
				Epoch:   r.epoch,
				Leader:  r.p.selfID,
				HWM:     r.p.log.HighWaterMark(),
				Records: recs,
			})
			if err := r.send(s, frame); err != nil {
				r.isr.markOffline(req.Replica)
				return
			}
			from = recs[len(recs)-1].Offset + 1
		}
	}()
}

// recomputeHWM advances the high-water mark to the lowest in-sync watermark
// and propagates the advance to followers.
func (r *replicator) recomputeHWM() {
	before := r.p.log.HighWaterMark()
	r.p.advanceHWM(r.isr.minWatermark(r.p.log.NewestOffset()))
	if after := r.p.log.HighWaterMark(); after > before && len(r.senders) > 0 {
		r.broadcast(encodeFrame(replFrame{Epoch: r.epoch, Leader: r.p.selfID, HWM: after}))
	}
}

func (r *replicator) tickLoop() {
	defer r.wg.Done()
	t := time.NewTicker(r.p.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-t.C:
			changed := r.isr.tick(r.p.log.NewestOffset(), now)
			if len(changed) > 0 {
				states := r.isr.snapshot()
				for _, id := range changed {
					r.p.logger.Warn("replica state changed",
						logpkg.Str("replica", id),
						logpkg.Str("state", states[id].String()))
				}
				// a shrunken ISR can unblock commits
				r.recomputeHWM()
			}
		}
	}
}

// isrSnapshot returns the in-sync ids (leader first) plus all replica states.
func (r *replicator) isrSnapshot() ([]string, map[string]ReplicaState) {
	states := r.isr.snapshot()
	isr := []string{r.p.selfID}
	for _, s := range r.sortedFollowerIDs() {
		if states[s] == StateInSync {
			isr = append(isr, s)
		}
	}
	states[r.p.selfID] = StateInSync
	return isr, states
}

func (r *replicator) sortedFollowerIDs() []string {
	ids := make([]string, 0, len(r.senders))
	for id := range r.senders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *replicator) stop() {
	r.cancel()
	r.wmSub.Unsubscribe()
	r.fetchSub.Unsubscribe()
	r.wg.Wait()
}
