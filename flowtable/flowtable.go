// Package flowtable implements the append-only registry of TSN and AVB
// streams that the rest of the CNC core addresses by stable integer ID,
// generalizing the original's recorder/flow_table module (which interleaves
// TSN/AVB storage behind a single FlowID) into two parallel, never-reused
// ID spaces that stay simple to range over.
package flowtable

import (
	"errors"
	"fmt"

	"github.com/redbug312/adams-leaf/stream"
)

// ErrUnknownID indicates a lookup against an ID this FlowTable never
// issued for that stream kind. TSN and AVB IDs are numbered independently,
// so the same integer can name one stream of each kind.
var ErrUnknownID = errors.New("flowtable: unknown stream id")

// FlowTable is an append-only collection of TSN and AVB streams. IDs are
// assigned at insertion time and are never reused or reordered, so a
// FlowTable grows strictly monotonically across repeated Configure calls
// (spec.md §3: "streams accumulate; nothing is ever removed").
type FlowTable struct {
	tsns []stream.TSN
	avbs []stream.AVB
}

// New returns an empty FlowTable.
func New() *FlowTable {
	return &FlowTable{}
}

// AddTSN appends a TSN stream and returns its stable ID.
func (ft *FlowTable) AddTSN(s stream.TSN) int {
	id := len(ft.tsns)
	ft.tsns = append(ft.tsns, s)

	return id
}

// AddAVB appends an AVB stream and returns its stable ID.
func (ft *FlowTable) AddAVB(s stream.AVB) int {
	id := len(ft.avbs)
	ft.avbs = append(ft.avbs, s)

	return id
}

// TSN returns the TSN stream with the given ID.
func (ft *FlowTable) TSN(id int) (stream.TSN, error) {
	if id < 0 || id >= len(ft.tsns) {
		return stream.TSN{}, fmt.Errorf("%w: tsn %d", ErrUnknownID, id)
	}

	return ft.tsns[id], nil
}

// AVB returns the AVB stream with the given ID.
func (ft *FlowTable) AVB(id int) (stream.AVB, error) {
	if id < 0 || id >= len(ft.avbs) {
		return stream.AVB{}, fmt.Errorf("%w: avb %d", ErrUnknownID, id)
	}

	return ft.avbs[id], nil
}

// TSNs returns every TSN stream ID currently registered, in insertion
// order.
func (ft *FlowTable) TSNs() []int {
	ids := make([]int, len(ft.tsns))
	for i := range ft.tsns {
		ids[i] = i
	}

	return ids
}

// AVBs returns every AVB stream ID currently registered, in insertion
// order.
func (ft *FlowTable) AVBs() []int {
	ids := make([]int, len(ft.avbs))
	for i := range ft.avbs {
		ids[i] = i
	}

	return ids
}

// NumTSNs returns the number of registered TSN streams.
func (ft *FlowTable) NumTSNs() int {
	return len(ft.tsns)
}

// NumAVBs returns the number of registered AVB streams.
func (ft *FlowTable) NumAVBs() int {
	return len(ft.avbs)
}
