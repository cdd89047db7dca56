package algorithm

import (
	"math"
	"time"

	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/internal/rng"
	"github.com/redbug312/adams-leaf/solution"
)

// tsnMemory and avbMemory boost the visibility of a stream's currently
// committed route relative to its other candidates, so the colony does
// not thrash away from a working schedule purely by chance. Matches
// aco_routing.rs's TSN_MEMORY/AVB_MEMORY constants.
const (
	tsnMemory = 3.0
	avbMemory = 3.0
)

// ACO is an ant colony optimization strategy over the joint state space of
// every stream's candidate-route index (TSN and AVB together), grounded
// on aco_routing.rs: per-generation, every ant samples a full route
// assignment biased by visibility (1/route-length for TSN,
// 1/worst-case-delay for AVB, boosted for the previously committed route)
// and pheromone, the assignment is applied
// and scored, and the trail is deposited/evaporated before the next
// generation.
type ACO struct {
	tb          *Toolbox
	sol         *solution.Solution
	computeTime time.Duration
}

// NewACO returns an ACO strategy driven by tb.
func NewACO(tb *Toolbox) *ACO {
	return &ACO{tb: tb}
}

// Configure implements Algorithm.
func (a *ACO) Configure(ft *flowtable.FlowTable, latest *solution.Solution) (*solution.Solution, error) {
	start := time.Now()

	sol, err := startingSolution(ft, a.tb.Cfg.HyperperiodUs, a.tb.Sched, latest)
	if err != nil {
		return nil, err
	}
	a.sol = sol
	if latest == nil {
		latest = sol
	}

	if err := a.run(start, latest); err != nil {
		return nil, err
	}
	a.computeTime = time.Since(start)

	return a.sol, nil
}

// Solution implements Algorithm.
func (a *ACO) Solution() *solution.Solution { return a.sol }

// ComputeTime implements Algorithm.
func (a *ACO) ComputeTime() time.Duration { return a.computeTime }

// streamRef names one stream by kind and its flowtable id, since ACO's
// state vector spans both TSN and AVB streams together.
type streamRef struct {
	isTSN bool
	id    int
}

func (a *ACO) streams() []streamRef {
	ft := a.sol.FlowTable()
	refs := make([]streamRef, 0, ft.NumTSNs()+ft.NumAVBs())
	for _, id := range ft.TSNs() {
		refs = append(refs, streamRef{isTSN: true, id: id})
	}
	for _, id := range ft.AVBs() {
		refs = append(refs, streamRef{isTSN: false, id: id})
	}

	return refs
}

func (a *ACO) candidateCountFor(ref streamRef) int {
	ft := a.sol.FlowTable()
	if ref.isTSN {
		tsn, err := ft.TSN(ref.id)
		if err != nil {
			return 0
		}

		return a.tb.candidateCount(tsn.Src, tsn.Dst)
	}
	avb, err := ft.AVB(ref.id)
	if err != nil {
		return 0
	}

	return a.tb.candidateCount(avb.Src, avb.Dst)
}

func (a *ACO) currentKth(ref streamRef) int {
	if ref.isTSN {
		sel, err := a.sol.TSNSelection(ref.id)
		if err != nil {
			return 0
		}

		return sel.Kth
	}
	sel, err := a.sol.AVBSelection(ref.id)
	if err != nil {
		return 0
	}

	return sel.Kth
}

// visibility returns, per stream and per candidate index (bounded by
// stream.MaxK worth of columns, ragged by that stream's actual candidate
// count), the inverse of a proxy for how costly that candidate is — route
// length for TSN, worst-case delay for AVB — with the currently committed
// candidate boosted by tsnMemory/avbMemory.
func (a *ACO) visibility(refs []streamRef) [][]float64 {
	vis := make([][]float64, len(refs))
	for i, ref := range refs {
		n := a.candidateCountFor(ref)
		row := make([]float64, n)
		for k := 0; k < n; k++ {
			row[k] = a.candidateVisibility(ref, k)
		}
		if n > 0 {
			row[a.currentKth(ref)] *= memoryFactor(ref)
		}
		vis[i] = row
	}

	return vis
}

func memoryFactor(ref streamRef) float64 {
	if ref.isTSN {
		return tsnMemory
	}

	return avbMemory
}

func (a *ACO) candidateVisibility(ref streamRef, k int) float64 {
	if ref.isTSN {
		tsn, err := a.sol.FlowTable().TSN(ref.id)
		if err != nil {
			return 0
		}
		paths, perr := a.tb.Yens.KShortestPaths(int64(tsn.Src), int64(tsn.Dst))
		if perr != nil || k >= len(paths) || len(paths[k]) == 0 {
			return 0
		}

		return 1.0 / float64(len(paths[k]))
	}

	wcd, err := a.tb.Eval.EvaluateAVBWCDForKth(a.sol, ref.id, k)
	if err != nil || wcd == 0 {
		return 0
	}

	return 1.0 / float64(wcd)
}

// run executes the colony: every generation, every ant draws a full state
// (one candidate index per stream) biased by pheromone*visibility, the
// best-scoring ant's state is applied to a.sol if it improves on the
// incumbent, and the pheromone trail evaporates and is reinforced before
// the next generation.
func (a *ACO) run(start time.Time, latest *solution.Solution) error {
	refs := a.streams()
	if len(refs) == 0 {
		return nil
	}

	pher := make([][]float64, len(refs))
	for i, ref := range refs {
		n := a.candidateCountFor(ref)
		pher[i] = make([]float64, n)
		for k := range pher[i] {
			pher[i][k] = 1.0
		}
	}

	root := rng.NewSource(a.tb.Cfg.Seed)
	bestCost, bestObjs := a.tb.Eval.EvaluateCostObjectives(a.sol, latest)
	bestDist := distCompute(bestCost)

	for time.Since(start) < a.tb.Cfg.TimeLimit {
		vis := a.visibility(refs)

		type antResult struct {
			state []int
			dist  float64
			objs  [4]float64
		}
		var gen []antResult

		for n := 0; n < a.tb.Cfg.Ants; n++ {
			ant := root.Derive(uint64(n))
			state := sampleState(ant, pher, vis)

			cur, cost, objs, err := a.apply(state, refs, latest)
			if err != nil {
				return err
			}
			dist := distCompute(cost)
			gen = append(gen, antResult{state: state, dist: dist, objs: objs})

			if dist < bestDist {
				bestDist = dist
				bestObjs = objs
				a.sol = cur
			}
		}

		evaporate(pher, a.tb.Cfg.Rho)
		for _, ant := range gen {
			deposit(pher, ant.state, ant.dist)
		}

		if bestObjs[evaluator.ObjAVBFail] == 0 && a.tb.Cfg.FastStop {
			break
		}
	}

	return nil
}

// distCompute maps a blended cost to a distance the colony minimizes,
// following aco_routing.rs's dist_computing: base**cost-1, so that small
// cost differences near the feasible boundary are magnified.
func distCompute(cost float64) float64 {
	return math.Pow(10, cost-1)
}

func sampleState(ant *rng.Source, pher, vis [][]float64) []int {
	state := make([]int, len(pher))
	for i := range pher {
		n := len(pher[i])
		if n == 0 {
			state[i] = 0

			continue
		}

		weights := make([]float64, n)
		var total float64
		for k := 0; k < n; k++ {
			w := pher[i][k] * vis[i][k]
			if w < 0 {
				w = 0
			}
			weights[k] = w
			total += w
		}
		if total <= 0 {
			state[i] = ant.Intn(n)

			continue
		}

		draw := ant.Uint64()
		target := (float64(draw) / float64(^uint64(0))) * total
		var acc float64
		chosen := n - 1
		for k := 0; k < n; k++ {
			acc += weights[k]
			if target <= acc {
				chosen = k

				break
			}
		}
		state[i] = chosen
	}

	return state
}

func evaporate(pher [][]float64, rho float64) {
	for i := range pher {
		for k := range pher[i] {
			pher[i][k] *= 1 - rho
			if pher[i][k] < 0.01 {
				pher[i][k] = 0.01
			}
		}
	}
}

func deposit(pher [][]float64, state []int, dist float64) {
	if dist <= 0 {
		return
	}
	amount := 1.0 / dist
	for i, k := range state {
		if k < len(pher[i]) {
			pher[i][k] += amount
		}
	}
}

// apply reselects every stream in refs to the candidate state prescribes,
// reconfigures a clone of a.sol, and returns its full blended cost (used by
// distCompute, per aco_routing.rs's dist_computing, which never strips the
// reroute term the way RO's costWithoutReroute does) and objectives.
func (a *ACO) apply(state []int, refs []streamRef, latest *solution.Solution) (*solution.Solution, float64, [4]float64, error) {
	cur := a.sol.Clone()
	for i, ref := range refs {
		k := state[i]
		if ref.isTSN {
			if err := a.tb.Sched.ReselectTSN(cur, ref.id, k); err != nil {
				return nil, 0, [4]float64{}, err
			}
		} else {
			if err := a.tb.Sched.ReselectAVB(cur, ref.id, k); err != nil {
				return nil, 0, [4]float64{}, err
			}
		}
	}
	if err := a.tb.Sched.Configure(cur); err != nil {
		return nil, 0, [4]float64{}, err
	}

	cost, objs := a.tb.Eval.EvaluateCostObjectives(cur, latest)

	return cur, cost, objs, nil
}
