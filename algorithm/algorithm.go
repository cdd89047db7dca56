// Package algorithm implements C6 from spec.md: the three interchangeable
// route-selection strategies the CNC can run over a flow table — SPF
// (always shortest path), RO (GRASP: randomized-greedy construction plus
// hill-climbing), and ACO (ant colony optimization). All three share the
// same Toolbox of already-built collaborators (network, Yen's candidate
// cache, scheduler, evaluator) and differ only in how they walk the space
// of per-stream candidate-route choices.
package algorithm

import (
	"time"

	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/internal/obs"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/scheduler"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/yens"
	"go.uber.org/zap"
)

// Algorithm is the common interface CNC drives every routing strategy
// through, mirroring the original's RoutingAlgo trait.
type Algorithm interface {
	// Configure runs the strategy to completion against ft, starting from
	// latest's committed selections (nil means start from scratch), and
	// returns the resulting Solution. latest is also the baseline the
	// evaluator's reroute objective is measured against.
	Configure(ft *flowtable.FlowTable, latest *solution.Solution) (*solution.Solution, error)

	// Solution returns the most recently computed Solution, or nil if
	// Configure has not been called yet.
	Solution() *solution.Solution

	// ComputeTime returns how long the last Configure call took.
	ComputeTime() time.Duration
}

// Config holds the search parameters spec.md §6 exposes per algorithm.
type Config struct {
	// Weights blends the evaluator's four objectives into a scalar cost.
	Weights [4]float64

	// TimeLimit bounds RO's and ACO's search loops. SPF ignores it.
	TimeLimit time.Duration

	// FastStop ends the search as soon as a solution with zero AVB
	// deadline violations is found, rather than running the full
	// TimeLimit.
	FastStop bool

	// Seed drives every pseudo-random draw the strategy makes, so a run is
	// reproducible given the same flow table and network.
	Seed uint64

	// AlphaPortion is the fraction of each AVB stream's candidate routes
	// RO's GRASP construction phase samples into its restricted candidate
	// list (ro.rs's ALPHA_PORTION).
	AlphaPortion float64

	// Ants is the number of ants ACO dispatches per generation.
	Ants int

	// Rho is ACO's pheromone evaporation rate in [0,1].
	Rho float64

	// HyperperiodUs is the schedule period every Solution's Gate Control
	// List repeats over, in microseconds.
	HyperperiodUs uint32
}

// DefaultConfig returns the parameter values the original's constants use
// (ALPHA_PORTION=0.5, TSN_MEMORY/AVB_MEMORY folded into the ACO strategy
// itself) where spec.md does not otherwise pin a value.
func DefaultConfig() Config {
	return Config{
		Weights:       [4]float64{1, 1, 1, 1},
		TimeLimit:     time.Second,
		FastStop:      true,
		Seed:          420,
		AlphaPortion:  0.5,
		Ants:          20,
		Rho:           0.5,
		HyperperiodUs: 1_000_000,
	}
}

// Toolbox bundles the collaborators every Algorithm implementation needs:
// the network and its precomputed candidate routes, the scheduler that
// turns a route selection into GCL/traversal state, and the evaluator
// that scores the result.
type Toolbox struct {
	Net   *network.Network
	Yens  *yens.Yens
	Sched *scheduler.Scheduler
	Eval  *evaluator.Evaluator
	Log   *zap.SugaredLogger
	Cfg   Config
}

// NewToolbox wires net, y, sched and eval together with cfg. A nil log
// discards diagnostics.
func NewToolbox(net *network.Network, y *yens.Yens, sched *scheduler.Scheduler, eval *evaluator.Evaluator, log *zap.SugaredLogger, cfg Config) *Toolbox {
	if log == nil {
		log = obs.Nop()
	}

	return &Toolbox{Net: net, Yens: y, Sched: sched, Eval: eval, Log: log, Cfg: cfg}
}

// costWithoutReroute blends objs using weights but excludes the reroute
// term, mirroring RoutingCost::compute_without_reroute_cost: the search's
// per-iteration accept/reject decision should not penalize a candidate
// for differing from the very baseline it is trying to improve on.
func costWithoutReroute(weights, objs [4]float64) float64 {
	return weights[evaluator.ObjTSNFail]*objs[evaluator.ObjTSNFail] +
		weights[evaluator.ObjAVBFail]*objs[evaluator.ObjAVBFail] +
		weights[evaluator.ObjAVBRatio]*objs[evaluator.ObjAVBRatio]
}

// candidateCount returns how many candidate routes Yen's produced for
// (src,dst), treating a lookup failure as zero candidates.
func (tb *Toolbox) candidateCount(src, dst int) int {
	n, err := tb.Yens.CountShortestPaths(int64(src), int64(dst))
	if err != nil {
		return 0
	}

	return n
}

// startingSolution returns the Solution a strategy begins its search
// from: a clone of latest (resized to admit any streams ft gained since
// latest was built, keeping every already-Stay selection) if latest is
// non-nil, or a fresh all-Pending Solution otherwise. Either way the
// scheduler is run once so every stream starts from a concrete placement
// (kth=0 for every newly added stream) before the strategy begins
// perturbing it.
func startingSolution(ft *flowtable.FlowTable, hyperperiodUs uint32, sched *scheduler.Scheduler, latest *solution.Solution) (*solution.Solution, error) {
	var sol *solution.Solution
	if latest != nil {
		sol = latest.Clone()
		sol.Resize()
	} else {
		fresh, err := solution.New(ft, hyperperiodUs)
		if err != nil {
			return nil, err
		}
		sol = fresh
	}

	if err := sched.Configure(sol); err != nil {
		return nil, err
	}

	return sol, nil
}
