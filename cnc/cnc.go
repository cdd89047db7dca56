// Package cnc implements C7 from spec.md: the orchestration layer that
// wires the network, candidate-route cache, scheduler and evaluator
// together behind whichever routing Algorithm the configuration selects,
// and exposes the add-streams/configure lifecycle an operator drives the
// controller through.
package cnc

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/redbug312/adams-leaf/algorithm"
	"github.com/redbug312/adams-leaf/config"
	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/internal/obs"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/scheduler"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

// CNC is the Centralized Network Configuration controller: it owns the
// flow table and the last accepted Solution, and runs the configured
// routing Algorithm over them each time Configure is called.
type CNC struct {
	net  *network.Network
	eval *evaluator.Evaluator
	algo algorithm.Algorithm
	ft   *flowtable.FlowTable
	sol  *solution.Solution
	cfg  config.Config
	log  *zap.SugaredLogger
}

// New validates cfg and wires a CNC around net. A nil log discards
// diagnostics.
func New(net *network.Network, cfg config.Config, log *zap.SugaredLogger) (*CNC, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = obs.Nop()
	}

	weights := cfg.Weights
	if cfg.Algorithm == config.RO {
		// RO's hill-climbing never reroutes a stream deliberately to
		// improve on churn, so penalizing it would only reject otherwise
		// improving moves for a side effect RO doesn't optimize for.
		weights[evaluator.ObjReroute] = 0
	}

	y := yens.New(net, stream.MaxK)
	sched := scheduler.New(net, y, log)
	eval := evaluator.New(weights, net, y)
	ft := flowtable.New()

	algoCfg := algorithm.Config{
		Weights:       weights,
		TimeLimit:     time.Duration(cfg.TimeoutUs) * time.Microsecond,
		FastStop:      cfg.EarlyStop,
		Seed:          cfg.Seed,
		AlphaPortion:  cfg.Parameters.AlphaPortion,
		Ants:          cfg.Parameters.Ants,
		Rho:           cfg.Parameters.Rho,
		HyperperiodUs: cfg.HyperperiodUs,
	}
	tb := algorithm.NewToolbox(net, y, sched, eval, log, algoCfg)

	var algo algorithm.Algorithm
	switch cfg.Algorithm {
	case config.SPF:
		algo = algorithm.NewSPF(tb)
	case config.RO:
		algo = algorithm.NewRO(tb)
	case config.ACO:
		algo = algorithm.NewACO(tb)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAlgorithm, cfg.Algorithm)
	}

	return &CNC{net: net, eval: eval, algo: algo, ft: ft, cfg: cfg, log: log}, nil
}

// AddStreams appends tsns and avbs to the flow table. Streams already
// configured in a prior Configure call keep their committed route
// selection; the newly added streams start Pending.
func (c *CNC) AddStreams(tsns []stream.TSN, avbs []stream.AVB) {
	for _, t := range tsns {
		c.ft.AddTSN(t)
	}
	for _, a := range avbs {
		c.ft.AddAVB(a)
	}
}

// Configure runs the configured routing algorithm over the current flow
// table, starting from the previously accepted Solution (or from scratch
// on the first call), and returns how long the run took.
func (c *CNC) Configure() (time.Duration, error) {
	start := time.Now()

	next, err := c.algo.Configure(c.ft, c.sol)
	if err != nil {
		return 0, err
	}

	elapsed := time.Since(start)

	c.log.Infow("configure complete", "elapsed", elapsed, "algorithm", c.cfg.Algorithm)
	c.sol = next

	return elapsed, nil
}

// Solution returns the most recently accepted Solution, or nil before the
// first Configure call.
func (c *CNC) Solution() *solution.Solution { return c.sol }

// FlowTable returns the CNC's flow table.
func (c *CNC) FlowTable() *flowtable.FlowTable { return c.ft }

// Report writes a human-readable summary of the current Solution to w,
// grounded on cnc.rs's show_results: per-TSN-stream pass/fail and route,
// per-AVB-stream delay ratio/reroute marker and route, then the aggregate
// cost and objective vector.
func (c *CNC) Report(w io.Writer) error {
	if c.sol == nil {
		_, err := io.WriteString(w, "no solution computed yet\n")

		return err
	}

	var b strings.Builder
	cost, objs := c.eval.EvaluateCostObjectives(c.sol, c.sol)

	fmt.Fprintln(&b, "TSN streams")
	for _, id := range c.ft.TSNs() {
		sel, err := c.sol.TSNSelection(id)
		if err != nil {
			return err
		}
		outcome := "ok"
		if sel.State == solution.Fail {
			outcome = "failed"
		}
		fmt.Fprintf(&b, "- stream #%02d %s, with route #%d\n", id, outcome, sel.Kth)
	}

	fmt.Fprintln(&b, "AVB streams")
	for _, id := range c.ft.AVBs() {
		streamObjs, err := c.eval.EvaluateAVBObjectives(id, c.sol, c.sol)
		if err != nil {
			return err
		}
		sel, err := c.sol.AVBSelection(id)
		if err != nil {
			return err
		}
		outcome := "ok"
		if streamObjs[evaluator.ObjAVBRatio] > 1.0 {
			outcome = "failed"
		}
		reroute := ""
		if streamObjs[evaluator.ObjReroute] != 0 {
			reroute = "*"
		}
		fmt.Fprintf(&b, "- stream #%02d %s (%02.0f%%), with route #%d%s\n",
			id, outcome, streamObjs[evaluator.ObjAVBRatio]*100, sel.Kth, reroute)
	}

	fmt.Fprintf(&b, "the solution has cost %.2f and objectives %.2f\n", cost, objs)

	_, err := io.WriteString(w, b.String())

	return err
}
