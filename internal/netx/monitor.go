// Package netx watches backend reachability and turns it into the
// online/offline signal the sync core consumes.
package netx

import (
	"context"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/stream"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

// Pinger is the probe the monitor runs against the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	DefaultCheckInterval = 5 * time.Second
	DefaultProbeTimeout  = 2 * time.Second
)

// Monitor probes the backend periodically and publishes connectivity
// transitions. The initial state is offline until the first successful
// probe.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	online       *stream.Value[bool]
	onTransition func(ctx context.Context, online bool)
}

// Option adjusts a Monitor.
type Option func(*Monitor)

// WithCheckInterval overrides how often the backend is probed.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithProbeTimeout bounds a single probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithTransitionFunc registers the callback invoked on every
// offline↔online transition.
func WithTransitionFunc(fn func(ctx context.Context, online bool)) Option {
	return func(m *Monitor) { m.onTransition = fn }
}

func New(p Pinger, log logging.Logger, opts ...Option) *Monitor {
	if log == nil {
		log = logging.NopLogger{}
	}
	m := &Monitor{
		pinger:   p,
		interval: DefaultCheckInterval,
		timeout:  DefaultProbeTimeout,
		log:      log,
		online:   stream.New(false),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Online is the reachability stream; it replays the current state to new
// subscribers.
func (m *Monitor) Online() *stream.Value[bool] { return m.online }

// Run probes immediately, then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	online := err == nil
	if online == m.online.Get() {
		return
	}

	if online {
		m.log.Info(ctx, "backend reachable")
	} else {
		m.log.Warn(ctx, "backend unreachable", "error", err)
	}
	m.online.Set(online)
	if m.onTransition != nil {
		m.onTransition(ctx, online)
	}
}
