// Package solution implements the mutable state the metaheuristic search
// threads through every candidate iteration: a per-stream selection of
// which candidate route is in effect, the Gate Control List that TSN
// selection implies, and the set of AVB streams traversing each edge.
//
// It generalizes the original's NetworkWrapper/Solution split: where the
// original kept a separate "old/new" diff table to track what must be
// recomputed after a partial reconfiguration, this package folds that
// bookkeeping into a four-state Selection per stream (spec.md §5:
// Pending/Scheduled/Stay/Fail), so a single Clone is enough to fork a
// search branch — no parallel diff structure to keep in sync.
package solution

import (
	"errors"
	"fmt"

	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/gcl"
	"github.com/redbug312/adams-leaf/network"
)

// ErrUnknownStream indicates a selection lookup against an ID the Solution
// was never resized to cover.
var ErrUnknownStream = errors.New("solution: unknown stream id")

// State is the lifecycle of one stream's route selection across a
// Configure call.
type State int

const (
	// Pending marks a newly added stream, or one given a new candidate
	// index, whose route the scheduler has not yet applied.
	Pending State = iota

	// Scheduled marks a stream whose candidate route has been chosen and
	// (for TSN) successfully placed onto the GCL this round.
	Scheduled

	// Stay marks a stream the current search iteration left untouched,
	// keeping the route chosen in a prior iteration.
	Stay

	// Fail marks a stream the scheduler could not place within any queue
	// on its chosen route before reaching MaxQueue.
	Fail
)

// String renders the state name, for logs and show-results reporting.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Scheduled:
		return "scheduled"
	case Stay:
		return "stay"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Selection is one stream's route choice and its lifecycle state.
type Selection struct {
	State State
	Kth   int // index into the candidate path list; while Pending, the route the scheduler will apply
}

// Solution is the complete routing/scheduling state for one pass of the
// search: which candidate each stream currently uses, the resulting Gate
// Control List, and which AVB streams traverse each edge (for worst-case
// delay evaluation).
//
// Solution is intentionally cheap to deep-copy (Clone): GRASP and ACO each
// fork dozens to thousands of branches per run, and only the per-stream
// selections and the GCL's interval stores actually differ between
// branches.
type Solution struct {
	flowtable *flowtable.FlowTable

	tsnSelect []Selection
	avbSelect []Selection

	gcl *gcl.GateCtrlList

	// traversedAVBs[edge] is the set of AVB stream IDs currently routed
	// over edge, consulted by the evaluator's worst-case-delay bound.
	traversedAVBs map[network.EdgeID]map[int]struct{}
}

// New returns an empty Solution bound to ft, with every stream Pending and
// an empty GCL of the given hyperperiod.
func New(ft *flowtable.FlowTable, hyperperiodUs uint32) (*Solution, error) {
	g, err := gcl.New(hyperperiodUs)
	if err != nil {
		return nil, fmt.Errorf("solution: %w", err)
	}

	s := &Solution{
		flowtable:     ft,
		gcl:           g,
		traversedAVBs: make(map[network.EdgeID]map[int]struct{}),
	}
	s.Resize()

	return s, nil
}

// Resize grows the selection slices to match the FlowTable's current
// stream counts, marking any newly appeared stream Pending. It is a no-op
// for streams already tracked.
func (s *Solution) Resize() {
	for len(s.tsnSelect) < s.flowtable.NumTSNs() {
		s.tsnSelect = append(s.tsnSelect, Selection{State: Pending})
	}
	for len(s.avbSelect) < s.flowtable.NumAVBs() {
		s.avbSelect = append(s.avbSelect, Selection{State: Pending})
	}
}

// Clone deep-copies the Solution so a search branch may mutate it without
// affecting the caller's copy. The FlowTable reference is shared (it is
// never mutated mid-search).
func (s *Solution) Clone() *Solution {
	out := &Solution{
		flowtable:     s.flowtable,
		tsnSelect:     append([]Selection(nil), s.tsnSelect...),
		avbSelect:     append([]Selection(nil), s.avbSelect...),
		gcl:           s.gcl.Clone(),
		traversedAVBs: make(map[network.EdgeID]map[int]struct{}, len(s.traversedAVBs)),
	}
	for edge, set := range s.traversedAVBs {
		clone := make(map[int]struct{}, len(set))
		for id := range set {
			clone[id] = struct{}{}
		}
		out.traversedAVBs[edge] = clone
	}

	return out
}

// FlowTable returns the stream registry this Solution is bound to.
func (s *Solution) FlowTable() *flowtable.FlowTable {
	return s.flowtable
}

// GCL returns the Gate Control List backing this Solution's TSN windows.
func (s *Solution) GCL() *gcl.GateCtrlList {
	return s.gcl
}

// TSNSelection returns the current selection for TSN stream id.
func (s *Solution) TSNSelection(id int) (Selection, error) {
	if id < 0 || id >= len(s.tsnSelect) {
		return Selection{}, fmt.Errorf("%w: tsn %d", ErrUnknownStream, id)
	}

	return s.tsnSelect[id], nil
}

// AVBSelection returns the current selection for AVB stream id.
func (s *Solution) AVBSelection(id int) (Selection, error) {
	if id < 0 || id >= len(s.avbSelect) {
		return Selection{}, fmt.Errorf("%w: avb %d", ErrUnknownStream, id)
	}

	return s.avbSelect[id], nil
}

// SetTSNSelection overwrites TSN stream id's selection.
func (s *Solution) SetTSNSelection(id int, sel Selection) error {
	if id < 0 || id >= len(s.tsnSelect) {
		return fmt.Errorf("%w: tsn %d", ErrUnknownStream, id)
	}
	s.tsnSelect[id] = sel

	return nil
}

// SetAVBSelection overwrites AVB stream id's selection.
func (s *Solution) SetAVBSelection(id int, sel Selection) error {
	if id < 0 || id >= len(s.avbSelect) {
		return fmt.Errorf("%w: avb %d", ErrUnknownStream, id)
	}
	s.avbSelect[id] = sel

	return nil
}

// TraversedAVBs returns the set of AVB stream IDs currently routed over
// edge. The returned map must not be mutated by callers; use
// AddTraversedAVB/RemoveTraversedAVB instead.
func (s *Solution) TraversedAVBs(edge network.EdgeID) map[int]struct{} {
	return s.traversedAVBs[edge]
}

// AddTraversedAVB records avb as routed over edge.
func (s *Solution) AddTraversedAVB(edge network.EdgeID, avb int) {
	set, ok := s.traversedAVBs[edge]
	if !ok {
		set = make(map[int]struct{})
		s.traversedAVBs[edge] = set
	}
	set[avb] = struct{}{}
}

// RemoveTraversedAVB undoes a prior AddTraversedAVB.
func (s *Solution) RemoveTraversedAVB(edge network.EdgeID, avb int) {
	if set, ok := s.traversedAVBs[edge]; ok {
		delete(set, avb)
	}
}

// Confirm walks every Scheduled selection to Stay, so the next Configure
// call treats it as already-placed background state rather than something
// to re-derive (spec.md §5's per-iteration lifecycle).
func (s *Solution) Confirm() {
	for i, sel := range s.tsnSelect {
		if sel.State == Scheduled {
			s.tsnSelect[i].State = Stay
		}
	}
	for i, sel := range s.avbSelect {
		if sel.State == Scheduled {
			s.avbSelect[i].State = Stay
		}
	}
}
