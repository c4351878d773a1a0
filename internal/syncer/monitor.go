package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faddenpatrick/ironledger/internal/logging"
)

// Pinger probes server reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor watches connectivity by probing the server on an interval and
// kicks off a full sync whenever the connection comes back. Its Online
// method is the OnlineFunc the rest of the app consults.
type Monitor struct {
	pinger   Pinger
	syncer   *Syncer
	log      logging.Logger
	interval time.Duration

	online atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	resume chan struct{}
}

func NewMonitor(p Pinger, s *Syncer, log logging.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		pinger:   p,
		syncer:   s,
		log:      log,
		interval: interval,
		resume:   make(chan struct{}, 1),
	}
}

// Online reports the last observed connectivity.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Start probes once synchronously so the initial state is known, syncs if
// the server is reachable, then keeps watching in the background until
// Close is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.online.Store(m.probe(ctx))
	if err := m.syncer.RefreshStatus(ctx); err != nil {
		m.log.Error(ctx, "failed to load sync status", "error", err)
	}
	if m.online.Load() {
		m.runSync(ctx)
	}

	m.wg.Add(1)
	go m.watch(ctx)
}

// Resume forces an immediate probe outside the regular interval. Call it
// when the app regains focus after being suspended.
func (m *Monitor) Resume() {
	select {
	case m.resume <- struct{}{}:
	default:
	}
}

// Close stops the watch loop and waits for it to exit.
func (m *Monitor) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) watch(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.resume:
		}
		m.check(ctx)
	}
}

// check probes once and reacts to a state change. Coming back online
// triggers a full sync so queued mutations drain without waiting for user
// action; going offline is just recorded.
func (m *Monitor) check(ctx context.Context) {
	online := m.probe(ctx)
	was := m.online.Swap(online)
	if online == was {
		return
	}
	if online {
		m.log.Info(ctx, "connection restored, starting sync")
		m.runSync(ctx)
	} else {
		m.log.Info(ctx, "connection lost, entering offline mode")
	}
}

func (m *Monitor) runSync(ctx context.Context) {
	if err := m.syncer.FullSync(ctx); err != nil {
		m.log.Error(ctx, "sync after reconnect failed", "error", err)
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.pinger.Ping(probeCtx) == nil
}
