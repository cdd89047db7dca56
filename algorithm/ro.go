package algorithm

import (
	"math"
	"time"

	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/internal/rng"
	"github.com/redbug312/adams-leaf/solution"
)

// RO implements GRASP: a randomized-greedy construction phase over every
// AVB stream's candidate routes, followed by hill-climbing that keeps
// perturbing one AVB stream's route at a time as long as it improves the
// blended cost. TSN streams are routed once via the scheduler's own
// shortest-candidate default and are never part of RO's search, mirroring
// ro.rs: RO's grasp/hill_climbing loops only ever touch
// get_flow_table().iter_avb().
type RO struct {
	tb          *Toolbox
	sol         *solution.Solution
	computeTime time.Duration
}

// NewRO returns a GRASP strategy driven by tb.
func NewRO(tb *Toolbox) *RO {
	return &RO{tb: tb}
}

// Configure implements Algorithm.
func (a *RO) Configure(ft *flowtable.FlowTable, latest *solution.Solution) (*solution.Solution, error) {
	start := time.Now()

	sol, err := startingSolution(ft, a.tb.Cfg.HyperperiodUs, a.tb.Sched, latest)
	if err != nil {
		return nil, err
	}
	a.sol = sol
	if latest == nil {
		latest = sol
	}

	if err := a.grasp(start, latest); err != nil {
		return nil, err
	}
	a.computeTime = time.Since(start)

	return a.sol, nil
}

// Solution implements Algorithm.
func (a *RO) Solution() *solution.Solution { return a.sol }

// ComputeTime implements Algorithm.
func (a *RO) ComputeTime() time.Duration { return a.computeTime }

func (a *RO) grasp(start time.Time, latest *solution.Solution) error {
	root := rng.NewSource(a.tb.Cfg.Seed)
	_, minObjs := a.tb.Eval.EvaluateCostObjectives(a.sol, latest)
	minCost := costWithoutReroute(a.tb.Cfg.Weights, minObjs)

	for time.Since(start) < a.tb.Cfg.TimeLimit {
		iterSeed := root.Uint64()
		iterRNG := rng.NewSource(iterSeed)

		cur := a.sol.Clone()
		ft := cur.FlowTable()
		for _, id := range ft.AVBs() {
			avb, err := ft.AVB(id)
			if err != nil {
				return err
			}
			candidateCnt := a.tb.candidateCount(avb.Src, avb.Dst)
			if candidateCnt == 0 {
				continue
			}
			alpha := int(float64(candidateCnt) * a.tb.Cfg.AlphaPortion)
			if alpha < 1 {
				alpha = 1
			}
			rcl := iterRNG.SampleDistinct(alpha, candidateCnt)

			newKth, err := a.bestCandidate(id, rcl)
			if err != nil {
				return err
			}
			if err := a.tb.Sched.ReselectAVB(cur, id, newKth); err != nil {
				return err
			}
		}
		if err := a.tb.Sched.Configure(cur); err != nil {
			return err
		}

		_, objs := a.tb.Eval.EvaluateCostObjectives(cur, latest)
		cost := costWithoutReroute(a.tb.Cfg.Weights, objs)
		if cost < minCost {
			minCost = cost
			minObjs = objs
			a.sol = cur
		}

		a.tb.Log.Debugw("grasp construction iteration", "cost", cost, "objs", objs)

		if minObjs[evaluator.ObjAVBFail] == 0 && a.tb.Cfg.FastStop {
			break
		}

		if err := a.hillClimb(start, iterRNG, &minCost, &minObjs, cur, latest); err != nil {
			return err
		}
		if minObjs[evaluator.ObjAVBFail] == 0 && a.tb.Cfg.FastStop {
			break
		}
	}

	return nil
}

// hillClimb repeatedly rereoutes one random AVB stream to its best
// candidate route and keeps the change only if it improves the blended
// cost, stopping after as many consecutive rejections as there are
// streams (ro.rs's iter_times == get_flow_cnt() bailout).
func (a *RO) hillClimb(start time.Time, r *rng.Source, minCost *float64, minObjs *[4]float64, cur, latest *solution.Solution) error {
	ft := cur.FlowTable()
	flowCnt := ft.NumTSNs() + ft.NumAVBs()
	if flowCnt == 0 {
		return nil
	}

	stagnant := 0
	for time.Since(start) < a.tb.Cfg.TimeLimit {
		if minObjs[evaluator.ObjAVBFail] == 0 && a.tb.Cfg.FastStop {
			return nil
		}

		avbIDs := ft.AVBs()
		if len(avbIDs) == 0 {
			return nil
		}
		targetID := avbIDs[r.Intn(len(avbIDs))]

		sel, err := cur.AVBSelection(targetID)
		if err != nil {
			return err
		}
		oldKth := sel.Kth

		avb, err := ft.AVB(targetID)
		if err != nil {
			return err
		}
		candidateCnt := a.tb.candidateCount(avb.Src, avb.Dst)
		if candidateCnt == 0 {
			continue
		}
		full := make([]int, candidateCnt)
		for i := range full {
			full[i] = i
		}
		newKth, err := a.bestCandidate(targetID, full)
		if err != nil {
			return err
		}
		if newKth == oldKth {
			continue
		}

		if err := a.tb.Sched.ReselectAVB(cur, targetID, newKth); err != nil {
			return err
		}
		if err := a.tb.Sched.Configure(cur); err != nil {
			return err
		}

		_, objs := a.tb.Eval.EvaluateCostObjectives(cur, latest)
		cost := costWithoutReroute(a.tb.Cfg.Weights, objs)
		if cost < *minCost {
			*minCost = cost
			*minObjs = objs
			a.sol = cur.Clone()
			stagnant = 0
		} else {
			if err := a.tb.Sched.ReselectAVB(cur, targetID, oldKth); err != nil {
				return err
			}
			if err := a.tb.Sched.Configure(cur); err != nil {
				return err
			}
			stagnant++
			if stagnant >= flowCnt {
				return nil
			}
		}
	}

	return nil
}

// bestCandidate returns whichever kth in candidates minimizes targetID's
// worst-case delay against a's currently committed Solution, mirroring
// find_min_cost_route.
func (a *RO) bestCandidate(targetID int, candidates []int) (int, error) {
	bestKth, bestWCD := 0, math.MaxFloat64
	for _, k := range candidates {
		wcd, err := a.tb.Eval.EvaluateAVBWCDForKth(a.sol, targetID, k)
		if err != nil {
			continue
		}
		if float64(wcd) < bestWCD {
			bestWCD = float64(wcd)
			bestKth = k
		}
	}

	return bestKth, nil
}
