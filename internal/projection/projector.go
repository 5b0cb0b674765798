// Package projection turns live store queries into consistent, ordered,
// de-duplicated local view state. Projections hold no authoritative data:
// every snapshot wholesale replaces the previous one, and the remote store
// stays the single source of truth.
package projection

import (
	"sync"

	"rednote/internal/store"
)

// Projector maintains at most one live subscription for a logical query.
// Re-projecting with a new query first tears down the previous
// subscription, so listeners are never leaked across query changes.
type Projector struct {
	store store.Store

	mu          sync.Mutex
	unsubscribe func()
	generation  int
}

func NewProjector(st store.Store) *Projector {
	return &Projector{store: st}
}

// Project replaces the active subscription with one for q. Callbacks from a
// torn-down subscription are suppressed even if they were already in
// flight when the switch happened.
func (p *Projector) Project(q store.Query, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) {
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	unsubscribe := p.store.Subscribe(q,
		func(docs []store.Document) {
			if p.current(gen) {
				onSnapshot(docs)
			}
		},
		func(err error) {
			if p.current(gen) {
				onError(err)
			}
		},
	)

	p.mu.Lock()
	if gen == p.generation {
		p.unsubscribe = unsubscribe
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	// A newer Project or Stop raced us; this subscription is already stale.
	unsubscribe()
}

// Stop tears down the active subscription, if any. Idempotent.
func (p *Projector) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.generation++
}

func (p *Projector) current(gen int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.generation
}
