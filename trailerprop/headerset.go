package trailerprop

import (
	"strings"
	"sync"

	"google.golang.org/grpc/metadata"
)

// HeaderSet is an ordered collection of response headers accumulated during a
// single call. Keys are case-insensitive and normalized to lowercase, matching
// gRPC metadata conventions. Multiple values for the same key are kept in
// insertion order and never overwritten, and the relative order of keys is the
// order of their first insertion.
//
// A HeaderSet is owned by exactly one call; the propagator creates a fresh one
// per call and never shares it across calls.
type HeaderSet struct {
	mu     sync.Mutex
	keys   []string
	values map[string][]string
}

// NewHeaderSet creates an empty HeaderSet.
func NewHeaderSet() *HeaderSet {
	return &HeaderSet{
		values: make(map[string][]string),
	}
}

// Add appends values under the given key. The key is normalized to lowercase.
// Adding a key that already exists appends to its existing values.
func (hs *HeaderSet) Add(key string, values ...string) {
	if len(values) == 0 {
		return
	}
	key = strings.ToLower(key)

	hs.mu.Lock()
	defer hs.mu.Unlock()

	if _, ok := hs.values[key]; !ok {
		hs.keys = append(hs.keys, key)
	}
	hs.values[key] = append(hs.values[key], values...)
}

// Get returns a copy of the values stored under the given key, in insertion
// order. Lookup is case-insensitive. A missing key returns nil.
func (hs *HeaderSet) Get(key string) []string {
	key = strings.ToLower(key)

	hs.mu.Lock()
	defer hs.mu.Unlock()

	values, ok := hs.values[key]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Keys returns the normalized keys in first-insertion order.
func (hs *HeaderSet) Keys() []string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	out := make([]string, len(hs.keys))
	copy(out, hs.keys)
	return out
}

// Len returns the number of distinct keys.
func (hs *HeaderSet) Len() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.keys)
}

// filteredMD exports the entries whose keys pass the eligible predicate as
// gRPC metadata. Returns a nil MD when nothing is eligible.
func (hs *HeaderSet) filteredMD(eligible func(key string) bool) (metadata.MD, int) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	var md metadata.MD
	screened := 0
	for _, key := range hs.keys {
		if !eligible(key) {
			screened++
			continue
		}
		if md == nil {
			md = metadata.MD{}
		}
		values := hs.values[key]
		md[key] = append(md[key], values...)
	}
	return md, screened
}
