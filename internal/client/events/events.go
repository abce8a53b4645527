// Package events defines operation lifecycle events emitted by the
// synchronization core. Observers (metrics, audit, logging bridges) register
// against an Emitter; the core never depends on any particular observer
// being present.
package events

import (
	"sync"
	"time"
)

// Kind labels a lifecycle event.
type Kind string

const (
	KindLoaded         Kind = "loaded"
	KindCreated        Kind = "created"
	KindUpdated        Kind = "updated"
	KindDeleted        Kind = "deleted"
	KindQueued         Kind = "queued"
	KindRolledBack     Kind = "rolled_back"
	KindSyncStarted    Kind = "sync_started"
	KindSyncCompleted  Kind = "sync_completed"
	KindOpSucceeded    Kind = "op_succeeded"
	KindOpFailed       Kind = "op_failed"
	KindOpResolved     Kind = "op_resolved"
	KindOpExhausted    Kind = "op_exhausted"
	KindUndoRegistered Kind = "undo_registered"
	KindUndoPerformed  Kind = "undo_performed"
	KindUndoExpired    Kind = "undo_expired"
)

// Event is one lifecycle occurrence. Zero-valued fields are simply not
// applicable to the kind.
type Event struct {
	Kind      Kind
	ScopeID   int64
	OpID      string
	TargetID  int64
	FromCache bool
	Duration  time.Duration
	Err       error
	At        time.Time
}

// Observer receives events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// Emitter fans events out to registered observers. The zero value is ready
// to use; a nil *Emitter is safe and drops everything.
type Emitter struct {
	mu        sync.RWMutex
	observers []Observer
}

// Register adds an observer.
func (e *Emitter) Register(o Observer) {
	if e == nil || o == nil {
		return
	}
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// Emit stamps the event and delivers it to every observer in registration
// order.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.mu.RLock()
	obs := e.observers
	e.mu.RUnlock()
	for _, o := range obs {
		o.Observe(ev)
	}
}
