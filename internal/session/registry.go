package session

import (
	"cmp"
	"errors"
	"slices"
	"sync"
)

// Entry is a live registry value. It reports its own persisted form.
type Entry interface {
	Record() Record
}

// Registry maps identity keys to live handles, failed keys and records restored from disk.
// It is the only guard against provisioning the same key twice in a session.
type Registry struct {
	mu       sync.RWMutex
	live     map[string]Entry
	failures map[string]error
	restored map[string]Record
}

func newRegistry() *Registry {
	return &Registry{
		live:     map[string]Entry{},
		failures: map[string]error{},
		restored: map[string]Record{},
	}
}

// Get returns the live entry for key.
func (r *Registry) Get(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.live[key]
	return e, ok
}

// Put registers a live entry, replacing any restored record for the key.
func (r *Registry) Put(key string, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[key] = e
	delete(r.restored, key)
}

// Remove forgets the live entry for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, key)
}

// Fail marks key as failed for the rest of the session.
func (r *Registry) Fail(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[key] = err
	delete(r.live, key)
}

// Failure returns the recorded failure for key, or nil.
func (r *Registry) Failure(key string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures[key]
}

// Restored returns the record loaded from disk for a key that has no live entry yet.
func (r *Registry) Restored(key string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.restored[key]
	return rec.clone(), ok
}

// Keys returns every known key in lexical order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for k := range r.live {
		seen[k] = struct{}{}
	}
	for k := range r.failures {
		seen[k] = struct{}{}
	}
	for k := range r.restored {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Records returns the persisted form of every key, sorted by key.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.live)+len(r.failures)+len(r.restored))
	for _, rec := range r.restored {
		out = append(out, rec.clone())
	}
	for key, e := range r.live {
		rec := e.Record()
		rec.Key = key
		out = append(out, rec)
	}
	for key, err := range r.failures {
		if _, ok := r.live[key]; ok {
			continue
		}
		if idx := slices.IndexFunc(out, func(rec Record) bool { return rec.Key == key }); idx >= 0 {
			out[idx].Failure = err.Error()
			continue
		}
		out = append(out, Record{Key: key, State: "Error", Failure: err.Error()})
	}
	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.live)
	clear(r.failures)
	clear(r.restored)
}

func (r *Registry) load(records []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.restored[rec.Key] = rec.clone()
		if rec.Failed() {
			r.failures[rec.Key] = errors.New(rec.Failure)
		}
	}
}
