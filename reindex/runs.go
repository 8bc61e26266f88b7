package reindex

import (
	"sync"

	"github.com/poiesic/docqa/core"
	"golang.org/x/sync/singleflight"
)

// Runs coordinates re-index runs across every Reindexer sharing it.
// Overlapping runs of one collection share a single execution, and a
// document cannot be re-indexed while its collection is being rebuilt.
type Runs struct {
	group singleflight.Group

	mu     sync.Mutex
	active map[core.ID]struct{}
}

// NewRuns creates an empty run registry.
func NewRuns() *Runs {
	return &Runs{active: make(map[core.ID]struct{})}
}

// Active reports whether a collection run is in flight.
func (r *Runs) Active(collectionID core.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[collectionID]
	return ok
}

// collection runs fn once per collection at a time. Callers arriving while
// it runs receive the same result. joined is false for the caller that ran fn.
func (r *Runs) collection(collectionID core.ID, fn func() *Result) (result *Result, joined bool) {
	v, _, shared := r.group.Do(collectionID.String(), func() (any, error) {
		r.mu.Lock()
		r.active[collectionID] = struct{}{}
		r.mu.Unlock()
		defer func() {
			r.mu.Lock()
			delete(r.active, collectionID)
			r.mu.Unlock()
		}()
		return fn(), nil
	})
	return v.(*Result), shared
}

// document runs fn once per document at a time. ok is false when the
// document's collection has a run in flight and fn was not called.
func (r *Runs) document(collectionID, documentID core.ID, fn func() *DocumentResult) (result *DocumentResult, ok bool) {
	if r.Active(collectionID) {
		return nil, false
	}
	v, _, _ := r.group.Do("doc/"+documentID.String(), func() (any, error) {
		return fn(), nil
	})
	return v.(*DocumentResult), true
}
