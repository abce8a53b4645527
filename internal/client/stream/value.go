// Package stream provides a small replay-last-value observable used to
// expose reactive state to consumers. New subscribers immediately receive
// the current value; subsequent emissions preserve Set order.
package stream

import "sync"

// Value holds a current value of type T and fans it out to subscribers.
// The zero value is not usable; construct with New.
type Value[T any] struct {
	mu   sync.Mutex
	cur  T
	subs map[int]chan T
	next int
}

// New returns a Value seeded with initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set stores val and delivers it to every subscriber. Delivery is
// non-blocking: a subscriber whose buffer is full loses the oldest
// undelivered value, never the emission order.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = val
	for _, ch := range v.subs {
		select {
		case ch <- val:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- val:
			default:
			}
		}
	}
}

// Update applies fn to the current value under the lock and emits the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	val := fn(v.cur)
	v.cur = val
	for _, ch := range v.subs {
		select {
		case ch <- val:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- val:
			default:
			}
		}
	}
	v.mu.Unlock()
}

// Subscribe registers a buffered channel that first replays the current
// value. Cancel with the returned function; after cancel the channel is
// closed.
func (v *Value[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = ch
	ch <- v.cur
	v.mu.Unlock()

	cancel := func() {
		v.mu.Lock()
		if sub, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(sub)
		}
		v.mu.Unlock()
	}
	return ch, cancel
}
