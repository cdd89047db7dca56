package gcl

import (
	"errors"
	"fmt"

	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/stream"
)

// ErrBadHyperperiod indicates a non-positive hyperperiod.
var ErrBadHyperperiod = errors.New("gcl: hyperperiod must be positive")

// MaxHyperperiod caps the hyperperiod a GateCtrlList will accept, in
// microseconds. Nothing in the original scheduler bounds the LCM of a
// stream mix's periods; a handful of coprime periods in the hundreds of
// microseconds range is enough to overflow this into a gigabyte-scale
// interval store, so New rejects anything past this cap rather than let a
// misconfigured input silently exhaust memory.
const MaxHyperperiod = 1_000_000

// GateCtrlList holds, per directed edge, the gate-open windows reserved for
// TSN frames, and per (edge, queue), the windows during which that queue is
// occupied by an in-flight stream — the two disjointness constraints
// try_calculate_windows enforces while placing a new stream's frames.
type GateCtrlList struct {
	hyperperiod uint32

	gate  map[network.EdgeID]*IntervalMap
	queue map[network.EdgeID][stream.MaxQueue]*IntervalMap
}

// New returns an empty GateCtrlList for the given hyperperiod, in
// microseconds.
func New(hyperperiod uint32) (*GateCtrlList, error) {
	if hyperperiod == 0 {
		return nil, ErrBadHyperperiod
	}
	if hyperperiod > MaxHyperperiod {
		return nil, fmt.Errorf("%w: %d exceeds cap %d", ErrBadHyperperiod, hyperperiod, MaxHyperperiod)
	}

	return &GateCtrlList{
		hyperperiod: hyperperiod,
		gate:        make(map[network.EdgeID]*IntervalMap),
		queue:       make(map[network.EdgeID][stream.MaxQueue]*IntervalMap),
	}, nil
}

// Hyperperiod returns the schedule period, in microseconds, over which gate
// and queue windows repeat.
func (g *GateCtrlList) Hyperperiod() uint32 {
	return g.hyperperiod
}

// Clone returns a deep copy whose interval stores can be mutated
// independently of g, for forking a search branch.
func (g *GateCtrlList) Clone() *GateCtrlList {
	out := &GateCtrlList{
		hyperperiod: g.hyperperiod,
		gate:        make(map[network.EdgeID]*IntervalMap, len(g.gate)),
		queue:       make(map[network.EdgeID][stream.MaxQueue]*IntervalMap, len(g.queue)),
	}
	for edge, m := range g.gate {
		out.gate[edge] = m.Clone()
	}
	for edge, row := range g.queue {
		var clonedRow [stream.MaxQueue]*IntervalMap
		for q, m := range row {
			if m != nil {
				clonedRow[q] = m.Clone()
			}
		}
		out.queue[edge] = clonedRow
	}

	return out
}

func (g *GateCtrlList) gateMap(edge network.EdgeID) *IntervalMap {
	m, ok := g.gate[edge]
	if !ok {
		m = NewIntervalMap()
		g.gate[edge] = m
	}

	return m
}

func (g *GateCtrlList) queueMap(edge network.EdgeID, queue int) *IntervalMap {
	row := g.queue[edge]
	if row[queue] == nil {
		row[queue] = NewIntervalMap()
		g.queue[edge] = row
	}

	return row[queue]
}

// InsertGateEvt reserves window on edge for streamID's frame transmission.
func (g *GateCtrlList) InsertGateEvt(edge network.EdgeID, streamID int, window Interval) {
	g.gateMap(edge).Insert(window, streamID)
}

// InsertQueueEvt reserves window in the given egress queue of edge for
// streamID, spanning from when the frame arrives at the previous hop to
// when it is released onto edge.
func (g *GateCtrlList) InsertQueueEvt(edge network.EdgeID, queue int, streamID int, window Interval) {
	g.queueMap(edge, queue).Insert(window, streamID)
}

// Remove clears every gate and queue reservation belonging to streamID on
// edge, undoing a prior allocation so the stream can be rescheduled.
func (g *GateCtrlList) Remove(edge network.EdgeID, streamID int) {
	if m, ok := g.gate[edge]; ok {
		m.RemoveValue(streamID)
	}
	if row, ok := g.queue[edge]; ok {
		for _, m := range row {
			if m != nil {
				m.RemoveValue(streamID)
			}
		}
	}
}

// Clear empties every gate and queue reservation, for the scheduler's
// full-GCL retry path (spec.md: "clear and reschedule everything from
// scratch if a single pass fails").
func (g *GateCtrlList) Clear() {
	g.gate = make(map[network.EdgeID]*IntervalMap)
	g.queue = make(map[network.EdgeID][stream.MaxQueue]*IntervalMap)
}

// GetNextEmptyTime reports whether [start, start+duration) conflicts with
// an existing gate reservation on edge. If it does, it returns the end of
// the first conflicting interval at or after start — the earliest time the
// caller may retry from — and ok=true. If the window is free, ok is false.
func (g *GateCtrlList) GetNextEmptyTime(edge network.EdgeID, start, duration uint32) (next uint32, ok bool) {
	m, exists := g.gate[edge]
	if !exists {
		return 0, false
	}

	want := Interval{Start: start, End: start + duration}
	for _, e := range m.IntervalsAfter(start) {
		if want.overlaps(e.Interval) {
			return e.Interval.End, true
		}
		if e.Interval.Start >= want.End {
			break
		}
	}

	return 0, false
}

// GetNextQueueEmptyTime reports whether instant `at` falls inside an
// existing reservation of the given queue on edge. If so it returns that
// reservation's end and ok=true; otherwise ok is false.
func (g *GateCtrlList) GetNextQueueEmptyTime(edge network.EdgeID, queue int, at uint32) (next uint32, ok bool) {
	row, exists := g.queue[edge]
	if !exists || row[queue] == nil {
		return 0, false
	}

	for _, e := range row[queue].IntervalsAfter(at) {
		if e.Interval.Start > at {
			break
		}
		if at < e.Interval.End {
			return e.Interval.End, true
		}
	}

	return 0, false
}

// GateIntervals returns every gate reservation on edge, in ascending start
// order, for reporting and introspection. The returned slice must not be
// mutated.
func (g *GateCtrlList) GateIntervals(edge network.EdgeID) []Entry {
	m, ok := g.gate[edge]
	if !ok {
		return nil
	}

	return m.Intervals()
}
