package store

import (
	"sync"

	"rednote/internal/observability"
)

type evalFunc func(q Query) ([]Document, error)

// registry fans writes out to live-query subscribers. Every subscriber gets
// its own delivery goroutine, so snapshots for one subscription arrive in
// order and never concurrently. A write only queues a notification; the
// query is re-evaluated by the subscriber goroutine, so rapid write bursts
// coalesce into the latest result set.
type registry struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscription
	eval evalFunc
}

type subscription struct {
	query  Query
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newRegistry(eval evalFunc) *registry {
	return &registry{subs: make(map[int]*subscription), eval: eval}
}

func (r *registry) subscribe(q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	sub := &subscription{
		query:  q,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = sub
	r.mu.Unlock()

	root := observability.CollectionRoot(q.Collection)
	observability.IncStoreSubscription(root)

	go r.run(sub, onSnapshot, onError, root)

	return func() {
		sub.once.Do(func() {
			close(sub.done)
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			observability.DecStoreSubscription(root)
		})
	}
}

func (r *registry) run(sub *subscription, onSnapshot SnapshotFunc, onError ErrorFunc, root string) {
	deliver := func() {
		docs, err := r.eval(sub.query)
		if err != nil {
			// No retry here: the next write to the collection triggers a
			// fresh evaluation.
			onError(err)
			return
		}
		select {
		case <-sub.done:
			return
		default:
		}
		onSnapshot(docs)
		observability.IncStoreSnapshot(root)
	}

	deliver()
	for {
		select {
		case <-sub.done:
			return
		case <-sub.notify:
			deliver()
		}
	}
}

// broadcast wakes every subscriber watching the given collection.
func (r *registry) broadcast(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.query.Collection != collection {
			continue
		}
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}
