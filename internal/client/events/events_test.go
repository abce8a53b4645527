package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	got []Event
}

func (r *recorder) Observe(ev Event) { r.got = append(r.got, ev) }

func TestEmitter_FanOut(t *testing.T) {
	var e Emitter
	a := &recorder{}
	b := &recorder{}
	e.Register(a)
	e.Register(b)

	e.Emit(Event{Kind: KindCreated, ScopeID: 1})

	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Equal(t, KindCreated, a.got[0].Kind)
	assert.False(t, a.got[0].At.IsZero())
}

func TestEmitter_NilSafe(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.Register(&recorder{})
		e.Emit(Event{Kind: KindDeleted})
	})
}

func TestEmitter_NoObservers(t *testing.T) {
	var e Emitter
	assert.NotPanics(t, func() { e.Emit(Event{Kind: KindQueued}) })
}
