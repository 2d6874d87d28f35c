// Package registry tracks the most recent authoritative location record per
// client. State is in-memory only and private to one server instance
package registry

import (
	"fmt"
	"sync"

	"github.com/els0r/geoherd/pkg/protocol"
)

// Registry maps client identifiers to their live location record. All methods
// are safe for concurrent use; the read-compare-write of Update is atomic per
// client
type Registry struct {
	sync.RWMutex
	records map[string]protocol.Record
}

// New instantiates an empty registry
func New() *Registry {
	return &Registry{
		records: make(map[string]protocol.Record),
	}
}

// Update applies the monotonic replace rule: a candidate is admitted if the
// client is unknown or if its timestamp is strictly greater than the stored
// one. Equal timestamps do not overwrite. It returns the record that is live
// after the call and whether the candidate was admitted. An unparsable
// candidate timestamp leaves the registry untouched
func (r *Registry) Update(candidate protocol.Record) (live protocol.Record, accepted bool, err error) {
	r.Lock()
	defer r.Unlock()

	cur, exists := r.records[candidate.ClientID]
	if !protocol.ParsableTimestamp(candidate.Timestamp) {
		return cur, false, fmt.Errorf("unparsable timestamp %q", candidate.Timestamp)
	}
	if exists {
		cmp, cmpErr := protocol.CompareTimestamp(candidate.Timestamp, cur.Timestamp)
		if cmpErr != nil {
			return cur, false, cmpErr
		}
		if cmp <= 0 {
			return cur, false, nil
		}
	}

	r.records[candidate.ClientID] = candidate
	return candidate, true, nil
}

// Get returns the live record for a client
func (r *Registry) Get(clientID string) (protocol.Record, bool) {
	r.RLock()
	defer r.RUnlock()

	rec, exists := r.records[clientID]
	return rec, exists
}

// Len returns the number of clients currently tracked
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.records)
}

// Snapshot returns a copy of all live records
func (r *Registry) Snapshot() map[string]protocol.Record {
	r.RLock()
	defer r.RUnlock()

	records := make(map[string]protocol.Record, len(r.records))
	for id, rec := range r.records {
		records[id] = rec
	}
	return records
}
