// Package poe tracks proofs of existence: for every token of a validation
// run, the instants at which its existence is attested by an already
// validated token.
package poe

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Kind represents the source of a proof of existence.
type Kind int

const (
	// KindTimestamp indicates POE from a timestamp token
	KindTimestamp Kind = iota
	// KindArchiveTimestamp indicates POE from an archive timestamp
	KindArchiveTimestamp
	// KindEvidenceRecord indicates POE from an evidence record
	KindEvidenceRecord
	// KindExternal indicates externally provided POE
	KindExternal
)

// String returns the string representation of the POE kind.
func (k Kind) String() string {
	switch k {
	case KindTimestamp:
		return "timestamp"
	case KindArchiveTimestamp:
		return "archive_timestamp"
	case KindEvidenceRecord:
		return "evidence_record"
	case KindExternal:
		return "external"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is one attestation of a token's existence.
type Entry struct {
	Time       time.Time `json:"time" xml:"Time"`
	ProducedBy string    `json:"producedBy,omitempty" xml:"ProducedBy,omitempty"`
	Kind       Kind      `json:"kind" xml:"Kind"`
}

// Tracker holds the proofs of existence of one validation run. Writers take
// the lock exclusively and readers share it, so concurrent evaluations
// never observe a half updated set.
type Tracker struct {
	mu      sync.RWMutex
	ref     time.Time
	entries map[string][]Entry // ascending by Time
}

// NewTracker returns a tracker whose default POE is ref, the run's
// reference time.
func NewTracker(ref time.Time) *Tracker {
	return &Tracker{
		ref:     ref,
		entries: make(map[string][]Entry),
	}
}

// ReferenceTime returns the run's reference time.
func (t *Tracker) ReferenceTime() time.Time {
	return t.ref
}

// Record adds an attestation that tokenID existed at instant at. Recording
// an instant already known for the token has no effect. It reports whether
// the entry was added.
func (t *Tracker) Record(tokenID string, at time.Time, producedBy string, kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.entries[tokenID]
	i := sort.Search(len(list), func(i int) bool { return !list[i].Time.Before(at) })
	if i < len(list) && list[i].Time.Equal(at) {
		return false
	}
	list = append(list, Entry{})
	copy(list[i+1:], list[i:])
	list[i] = Entry{Time: at, ProducedBy: producedBy, Kind: kind}
	t.entries[tokenID] = list
	return true
}

// Lowest returns the earliest usable POE of tokenID: the earliest recorded
// instant, or the reference time when none is earlier.
func (t *Tracker) Lowest(tokenID string) time.Time {
	e, ok := t.LowestEntry(tokenID)
	if !ok {
		return t.ref
	}
	return e.Time
}

// LowestEntry returns the earliest attestation of tokenID if it is not
// later than the reference time.
func (t *Tracker) LowestEntry(tokenID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	list := t.entries[tokenID]
	if len(list) == 0 || list[0].Time.After(t.ref) {
		return Entry{}, false
	}
	return list[0], true
}

// Entries returns the attestations of tokenID in ascending order.
func (t *Tracker) Entries(tokenID string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries[tokenID]...)
}

// Candidates returns the distinct attested instants of tokenID strictly
// before the given time, earliest first.
func (t *Tracker) Candidates(tokenID string, before time.Time) []time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []time.Time
	for _, e := range t.entries[tokenID] {
		if !e.Time.Before(before) {
			break
		}
		out = append(out, e.Time)
	}
	return out
}

// Snapshot returns a copy of every token's attestations.
func (t *Tracker) Snapshot() map[string][]Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]Entry, len(t.entries))
	for id, list := range t.entries {
		out[id] = append([]Entry(nil), list...)
	}
	return out
}
