// Package evaluator implements C5 from spec.md: turning a Solution into a
// scalar search cost plus the four-component objective vector cnc.rs's
// show_results reports per stream (TSN schedulability, AVB deadline
// misses, reroute overhead, and the AVB delay/deadline ratio).
//
// The AVB worst-case-delay bound follows the credit-based-shaper
// interference model common to TSN/AVB co-scheduling literature: at each
// hop, the bound adds the frame's own MTU transmission time, the total time
// that link's gate is reserved for TSN windows over the hyperperiod, and
// one MTU-sized frame from every other AVB stream sharing the link. The
// original's own WCD formula was not present in the retrieved source, so
// this bound is this module's own grounded-in-the-model reconstruction,
// not a transcription (see DESIGN.md).
package evaluator

import (
	"math"

	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

// Objectives indexes the four-component cost vector.
const (
	// ObjTSNFail counts TSN streams the scheduler left in the Fail state.
	ObjTSNFail = 0

	// ObjAVBFail counts AVB streams whose worst-case delay exceeds their
	// deadline.
	ObjAVBFail = 1

	// ObjReroute counts streams whose committed candidate route changed
	// relative to the prior accepted Solution.
	ObjReroute = 2

	// ObjAVBRatio is the worst, over all AVB streams, of worst-case delay
	// divided by deadline. A value at or below 1.0 means every AVB stream
	// meets its deadline.
	ObjAVBRatio = 3
)

// Evaluator turns a Solution into a scalar cost via a weighted blend of
// the four objectives.
type Evaluator struct {
	weights [4]float64
	net     *network.Network
	yens    *yens.Yens
}

// New returns an Evaluator blending the four objectives with weights, on
// candidate routes resolved from y against net.
func New(weights [4]float64, net *network.Network, y *yens.Yens) *Evaluator {
	return &Evaluator{weights: weights, net: net, yens: y}
}

func (e *Evaluator) route(src, dst, kth int) (network.Path, error) {
	paths, err := e.yens.KShortestPaths(int64(src), int64(dst))
	if err != nil {
		return nil, err
	}
	if kth < 0 || kth >= len(paths) {
		return nil, nil
	}

	return paths[kth], nil
}

// EvaluateCostObjectives returns the blended scalar cost and the four
// underlying objectives for current, using latest as the baseline a
// reroute is measured against.
func (e *Evaluator) EvaluateCostObjectives(current, latest *solution.Solution) (float64, [4]float64) {
	var objs [4]float64

	ft := current.FlowTable()

	for _, id := range ft.TSNs() {
		sel, err := current.TSNSelection(id)
		if err != nil {
			continue
		}
		if sel.State == solution.Fail {
			objs[ObjTSNFail]++
		}
		if rerouted(latest.TSNSelection)(id, sel) {
			objs[ObjReroute]++
		}
	}

	for _, id := range ft.AVBs() {
		sel, err := current.AVBSelection(id)
		if err != nil {
			continue
		}
		avb, err := ft.AVB(id)
		if err != nil {
			continue
		}

		wcd, err := e.EvaluateAVBWCDForKth(current, id, sel.Kth)
		if err != nil {
			continue
		}

		ratio := float64(wcd) / float64(avb.Deadline)
		objs[ObjAVBRatio] = math.Max(objs[ObjAVBRatio], ratio)
		if ratio > 1.0 {
			objs[ObjAVBFail]++
		}

		if rerouted(latest.AVBSelection)(id, sel) {
			objs[ObjReroute]++
		}
	}

	cost := e.weights[ObjTSNFail]*objs[ObjTSNFail] +
		e.weights[ObjAVBFail]*objs[ObjAVBFail] +
		e.weights[ObjReroute]*objs[ObjReroute] +
		e.weights[ObjAVBRatio]*objs[ObjAVBRatio]

	return cost, objs
}

// EvaluateAVBObjectives returns a per-stream objective vector for avbID,
// for reporting: objs[ObjReroute] is 1 if avbID's candidate route changed
// relative to latest, 0 otherwise; objs[ObjAVBRatio] is avbID's own
// worst-case-delay/deadline ratio. objs[ObjTSNFail] and objs[ObjAVBFail]
// are always zero, since those two objectives are only meaningful in
// aggregate.
func (e *Evaluator) EvaluateAVBObjectives(avbID int, current, latest *solution.Solution) ([4]float64, error) {
	var objs [4]float64

	sel, err := current.AVBSelection(avbID)
	if err != nil {
		return objs, err
	}
	avb, err := current.FlowTable().AVB(avbID)
	if err != nil {
		return objs, err
	}
	wcd, err := e.EvaluateAVBWCDForKth(current, avbID, sel.Kth)
	if err != nil {
		return objs, err
	}

	objs[ObjAVBRatio] = float64(wcd) / float64(avb.Deadline)
	if rerouted(latest.AVBSelection)(avbID, sel) {
		objs[ObjReroute] = 1
	}

	return objs, nil
}

// rerouted returns a predicate comparing id's current selection's Kth
// against whatever latest had selected for it, treating a lookup failure
// (id unknown to latest, e.g. a newly added stream) as not rerouted.
func rerouted(lookup func(int) (solution.Selection, error)) func(id int, cur solution.Selection) bool {
	return func(id int, cur solution.Selection) bool {
		prev, err := lookup(id)
		if err != nil {
			return false
		}

		return prev.Kth != cur.Kth
	}
}

// EvaluateAVBWCDForKth returns the worst-case end-to-end delay, in
// microseconds, an AVB stream would see on its kth candidate route given
// sol's current GCL and AVB traversal sets.
func (e *Evaluator) EvaluateAVBWCDForKth(sol *solution.Solution, avbID, kth int) (uint32, error) {
	avb, err := sol.FlowTable().AVB(avbID)
	if err != nil {
		return 0, err
	}
	route, err := e.route(avb.Src, avb.Dst, kth)
	if err != nil {
		return 0, err
	}

	frameBits := float64(stream.MTU * stream.BitsPerByte)
	hyperperiod := sol.GCL().Hyperperiod()

	var wcd uint32
	for _, edge := range route {
		dur, err := e.net.DurationOn(edge, frameBits)
		if err != nil {
			return 0, err
		}
		frameTime := ceilUint32(dur)

		wcd += frameTime
		wcd += tsnBlocking(sol, edge, hyperperiod)
		wcd += avbInterference(sol, edge, avbID, frameTime)
	}

	return wcd, nil
}

// tsnBlocking returns the total time, within one hyperperiod, that edge's
// gate is closed to this AVB stream by already-scheduled TSN traffic — the
// worst-case amount of time a credit-based-shaper-eligible frame could
// wait behind gated TSN windows on this hop.
func tsnBlocking(sol *solution.Solution, edge network.EdgeID, hyperperiod uint32) uint32 {
	var blocked uint32
	for _, entry := range sol.GCL().GateIntervals(edge) {
		if entry.Interval.End <= entry.Interval.Start {
			continue
		}
		blocked += entry.Interval.End - entry.Interval.Start
	}
	_ = hyperperiod // reservations are already confined to one hyperperiod by construction

	return blocked
}

// avbInterference returns the one-frame worst-case interference from
// every other AVB stream currently traversing edge (credit-based shaping
// admits at most one maximum-size frame of interference per competing
// stream).
func avbInterference(sol *solution.Solution, edge network.EdgeID, avbID int, frameTime uint32) uint32 {
	others := 0
	for id := range sol.TraversedAVBs(edge) {
		if id != avbID {
			others++
		}
	}

	return uint32(others) * frameTime
}

func ceilUint32(v float64) uint32 {
	u := uint32(v)
	if float64(u) < v {
		u++
	}

	return u
}
