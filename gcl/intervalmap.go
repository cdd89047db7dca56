// Package gcl implements C3 from spec.md: the Gate Control List abstraction
// the constructive scheduler uses to reserve disjoint transmission windows
// on every link and queue over a hyperperiod.
//
// The original implementation indexes its interval store with a van Emde
// Boas tree for O(log log U) predecessor/successor queries. Go has no
// stdlib or widely-vendored VEB tree, and spec.md permits any sub-linear
// ordered structure, so IntervalMap keeps a sorted, disjoint slice of
// intervals and answers predecessor/successor queries with sort.Search
// instead — O(log n) per query, O(n) per insert/delete, which is the
// structure the original's own commented-out binary_search variant already
// sketched as an alternative to the VEB tree.
package gcl

import "sort"

// Interval is a half-open [Start, End) span of time, in microseconds.
type Interval struct {
	Start, End uint32
}

// overlaps reports whether a and b share any instant.
func (a Interval) overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Entry pairs a stored interval with the owner value (a stream ID) that
// reserved it.
type Entry struct {
	Interval Interval
	Value    int
}

// IntervalMap is an ordered store of disjoint, non-touching-merge intervals
// keyed by start time. An inserted interval is merged into its immediate
// predecessor when that predecessor has the same value and touches it,
// mirroring the original's pred_connected rule; a same-valued successor is
// not merged, so touching same-valued entries can remain separate.
type IntervalMap struct {
	entries []Entry // sorted ascending by Interval.Start, pairwise disjoint
}

// NewIntervalMap returns an empty IntervalMap.
func NewIntervalMap() *IntervalMap {
	return &IntervalMap{}
}

// Clone returns a deep copy whose entries can be mutated independently of
// m.
func (m *IntervalMap) Clone() *IntervalMap {
	return &IntervalMap{entries: append([]Entry(nil), m.entries...)}
}

// searchPos returns the index of the first entry whose Start >= start.
func (m *IntervalMap) searchPos(start uint32) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Interval.Start >= start
	})
}

// Intervals returns every stored (interval, value) pair in ascending start
// order. The returned slice must not be mutated.
func (m *IntervalMap) Intervals() []Entry {
	return m.entries
}

// IntervalsAfter returns every stored entry whose interval ends at or after
// start, in ascending start order (spec.md/original: "skip_while end <
// start").
func (m *IntervalMap) IntervalsAfter(start uint32) []Entry {
	idx := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Interval.End >= start
	})

	return m.entries[idx:]
}

// CheckVacant reports whether key can be inserted with the given value
// without conflicting with an existing, differently-valued reservation.
// A key that only touches a neighbouring entry is vacant, and a key that
// overlaps its predecessor is vacant only if that predecessor has the same
// value (it will be merged on Insert). A key that starts at an existing
// entry's start, or overlaps its successor, is never vacant, whatever the
// values.
func (m *IntervalMap) CheckVacant(key Interval, value int) bool {
	pos := m.searchPos(key.Start)
	if pos < len(m.entries) && m.entries[pos].Interval.Start == key.Start {
		return false
	}

	nextIdx := pos
	if nextIdx < len(m.entries) && key.End > m.entries[nextIdx].Interval.Start {
		return false
	}

	if pos > 0 {
		prev := m.entries[pos-1]
		if prev.Interval.End > key.Start {
			return prev.Value == value
		}
	}

	return true
}

// Insert records key as owned by value, merging into an immediately
// preceding same-valued interval when they touch or overlap. Callers are
// expected to have verified CheckVacant first; Insert does not itself
// re-check for conflicts with a different value.
func (m *IntervalMap) Insert(key Interval, value int) {
	pos := m.searchPos(key.Start)

	if pos > 0 {
		prev := &m.entries[pos-1]
		if prev.Interval.End >= key.Start && prev.Value == value {
			if key.End > prev.Interval.End {
				prev.Interval.End = key.End
			}
			return
		}
	}

	m.entries = append(m.entries, Entry{})
	copy(m.entries[pos+1:], m.entries[pos:])
	m.entries[pos] = Entry{Interval: key, Value: value}
}

// RemoveValue deletes every interval owned by value.
func (m *IntervalMap) RemoveValue(value int) {
	out := m.entries[:0]
	for _, e := range m.entries {
		if e.Value != value {
			out = append(out, e)
		}
	}
	m.entries = out
}

// Clear empties the map.
func (m *IntervalMap) Clear() {
	m.entries = nil
}
