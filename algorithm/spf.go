package algorithm

import (
	"time"

	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/solution"
)

// SPF always selects each stream's shortest (kth=0) candidate route,
// grounded directly on spf.rs: no search, no hill-climbing, just the
// scheduler applied once over kth=0 for every stream.
type SPF struct {
	tb          *Toolbox
	sol         *solution.Solution
	computeTime time.Duration
}

// NewSPF returns an SPF strategy driven by tb.
func NewSPF(tb *Toolbox) *SPF {
	return &SPF{tb: tb}
}

// Configure implements Algorithm.
func (a *SPF) Configure(ft *flowtable.FlowTable, latest *solution.Solution) (*solution.Solution, error) {
	start := time.Now()

	sol, err := startingSolution(ft, a.tb.Cfg.HyperperiodUs, a.tb.Sched, latest)
	if err != nil {
		return nil, err
	}

	a.sol = sol
	a.computeTime = time.Since(start)

	return a.sol, nil
}

// Solution implements Algorithm.
func (a *SPF) Solution() *solution.Solution { return a.sol }

// ComputeTime implements Algorithm.
func (a *SPF) ComputeTime() time.Duration { return a.computeTime }
