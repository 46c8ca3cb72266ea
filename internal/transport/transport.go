// Package transport defines the pub/sub bus Strand rides on for publish
// requests, ack delivery, and inter-broker replication traffic. The bus is an
// external collaborator: Strand only assumes named subjects with
// at-least-once, best-effort-ordered delivery. The in-process implementation
// in this package backs single-process deployments and tests; a networked
// client implementing Bus slots in without engine changes.
package transport

import (
	"errors"
	"strings"
	"sync"
)

// Handler consumes messages delivered on a subject.
type Handler func(subject string, data []byte)

// Subscription is an active subject registration.
type Subscription interface {
	// Unsubscribe removes the registration. Idempotent.
	Unsubscribe()
}

// Bus is the transport boundary.
type Bus interface {
	// Publish sends data on a subject. Delivery is asynchronous and
	// at-least-once for connected subscribers; there is no durability.
	Publish(subject string, data []byte) error
	// Subscribe registers a handler for a subject. A trailing ".*" token
	// matches exactly one extra token.
	Subscribe(subject string, h Handler) (Subscription, error)
	// Close tears down all subscriptions and stops delivery.
	Close() error
}

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("transport: bus closed")

// Inproc is an in-process Bus. Each subscriber gets its own buffered delivery
// queue and goroutine so one slow handler cannot stall the rest.
type Inproc struct {
	mu     sync.RWMutex
	subs   map[string][]*inprocSub
	closed bool
}

type inprocSub struct {
	bus     *Inproc
	subject string
	h       Handler
	ch      chan busMsg
	done    chan struct{}
	once    sync.Once
}

type busMsg struct {
	subject string
	data    []byte
}

const subQueueLen = 256

// NewInproc builds an in-process bus.
func NewInproc() *Inproc {
	return &Inproc{subs: make(map[string][]*inprocSub)}
}

// Publish implements Bus.
func (b *Inproc) Publish(subject string, data []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	var targets []*inprocSub
	for pattern, subs := range b.subs {
		if subjectMatches(pattern, subject) {
			targets = append(targets, subs...)
		}
	}
	b.mu.RUnlock()

	msg := busMsg{subject: subject, data: data}
	for _, s := range targets {
		select {
		case s.ch <- msg:
		case <-s.done:
		}
	}
	return nil
}

// Subscribe implements Bus.
func (b *Inproc) Subscribe(subject string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &inprocSub{
		bus:     b,
		subject: subject,
		h:       h,
		ch:      make(chan busMsg, subQueueLen),
		done:    make(chan struct{}),
	}
	b.subs[subject] = append(b.subs[subject], s)
	go s.deliverLoop()
	return s, nil
}

// Close implements Bus.
func (b *Inproc) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*inprocSub
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.subs = make(map[string][]*inprocSub)
	b.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	return nil
}

func (s *inprocSub) deliverLoop() {
	for {
		select {
		case m := <-s.ch:
			s.h(m.subject, m.data)
		case <-s.done:
			// drain anything already queued, then exit
			for {
				select {
				case m := <-s.ch:
					s.h(m.subject, m.data)
				default:
					return
				}
			}
		}
	}
}

func (s *inprocSub) stop() { s.once.Do(func() { close(s.done) }) }

// Unsubscribe implements Subscription.
func (s *inprocSub) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	subs := b.subs[s.subject]
	for i, cand := range subs {
		if cand == s {
			b.subs[s.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[s.subject]) == 0 {
		delete(b.subs, s.subject)
	}
	b.mu.Unlock()
	s.stop()
}

// subjectMatches reports whether a concrete subject matches a pattern.
// Patterns are dot-separated tokens; "*" matches exactly one token.
func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	if len(pt) != len(st) {
		return false
	}
	for i := range pt {
		if pt[i] != "*" && pt[i] != st[i] {
			return false
		}
	}
	return true
}
