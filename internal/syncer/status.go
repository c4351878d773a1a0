package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/faddenpatrick/ironledger/internal/logging"
)

// Status is the externally observable state of the sync machinery. Exactly
// one authoritative instance exists per Syncer; it is recomputed and
// republished after every state-changing operation.
type Status struct {
	IsSyncing    bool
	LastSyncTime *time.Time
	PendingCount int
	Error        string
}

// Listener receives status snapshots. Listeners are invoked synchronously,
// in subscription order.
type Listener func(Status)

// publisher is a minimal in-process pub/sub for Status. A panicking
// listener never prevents the remaining listeners from running, and
// unsubscribing is safe to repeat and safe from inside a callback.
type publisher struct {
	log logging.Logger

	mu        sync.Mutex
	current   Status
	nextID    int64
	listeners []subscription
}

type subscription struct {
	id int64
	fn Listener
}

func newPublisher(log logging.Logger) *publisher {
	return &publisher{log: log}
}

// Subscribe registers fn and returns its unsubscribe function.
func (p *publisher) Subscribe(fn Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, subscription{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, sub := range p.listeners {
			if sub.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Current returns the latest published status.
func (p *publisher) Current() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// update applies mutate to the authoritative status and notifies every
// listener with the resulting snapshot. Iteration runs over a copy so a
// listener may unsubscribe itself (or others) mid-notification.
func (p *publisher) update(mutate func(*Status)) {
	p.mu.Lock()
	mutate(&p.current)
	snapshot := p.current
	listeners := make([]subscription, len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, sub := range listeners {
		p.invoke(sub, snapshot)
	}
}

func (p *publisher) invoke(sub subscription, snapshot Status) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error(context.Background(), "status listener panicked", "panic", r)
		}
	}()
	sub.fn(snapshot)
}
