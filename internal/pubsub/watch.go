// Package pubsub provides a small publish-subscribe primitive with
// replay-latest semantics: a new subscriber immediately receives the current
// snapshot, then every later update. Publishing never blocks; a slow
// subscriber's pending value is replaced by the newer one.
package pubsub

import (
	"context"
	"sync"
)

// Watchable fans out values of type T to any number of subscribers.
type Watchable[T any] struct {
	mu       sync.Mutex
	latest   T
	hasValue bool
	subs     map[int]chan T
	nextID   int
}

func NewWatchable[T any]() *Watchable[T] {
	return &Watchable[T]{subs: make(map[int]chan T)}
}

// Publish stores v as the latest snapshot and offers it to every subscriber.
// A subscriber that has not drained its previous value gets it replaced.
func (w *Watchable[T]) Publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.latest = v
	w.hasValue = true

	for _, ch := range w.subs {
		select {
		case ch <- v:
		default:
			// drop the stale pending value, then offer the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber. The returned channel first yields the
// current snapshot (if one was ever published), then updates. The
// subscription ends when ctx is cancelled; the channel is closed then.
func (w *Watchable[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	if w.hasValue {
		ch <- w.latest
	}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Latest returns the current snapshot and whether one was ever published.
func (w *Watchable[T]) Latest() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest, w.hasValue
}
