package netx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

type scriptedPinger struct {
	mu      sync.Mutex
	results []error
	i       int
}

func (p *scriptedPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.i >= len(p.results) {
		return p.results[len(p.results)-1]
	}
	err := p.results[p.i]
	p.i++
	return err
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := New(&scriptedPinger{results: []error{errors.New("down")}}, logging.NopLogger{})
	assert.False(t, m.Online().Get())
}

func TestMonitor_TransitionsAndCallback(t *testing.T) {
	p := &scriptedPinger{results: []error{errors.New("down"), nil, nil, errors.New("down")}}

	var mu sync.Mutex
	var transitions []bool
	m := New(p, logging.NopLogger{},
		WithCheckInterval(time.Hour),
		WithTransitionFunc(func(ctx context.Context, online bool) {
			mu.Lock()
			transitions = append(transitions, online)
			mu.Unlock()
		}),
	)

	ctx := context.Background()
	m.probe(ctx) // down, already offline: no transition
	m.probe(ctx) // up
	m.probe(ctx) // still up: no transition
	m.probe(ctx) // down again

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, transitions)
	assert.False(t, m.Online().Get())
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	m := New(p, logging.NopLogger{}, WithCheckInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	ch, unsub := m.Online().Subscribe(4)
	defer unsub()
	require.Eventually(t, func() bool { return m.Online().Get() }, time.Second, time.Millisecond)
	<-ch

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
}
