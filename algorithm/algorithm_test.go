package algorithm_test

import (
	"testing"
	"time"

	"github.com/redbug312/adams-leaf/algorithm"
	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/scheduler"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

func buildNetwork(t *testing.T) *network.Network {
	t.Helper()

	n := network.New()
	edges := [][2]int64{{0, 1}, {0, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 5}, {3, 5}}
	for _, e := range edges {
		if err := n.AddEdge(e[0], e[1], 1000); err != nil {
			t.Fatalf("AddEdge %v: %v", e, err)
		}
	}

	return n
}

func newToolbox(t *testing.T, net *network.Network, cfg algorithm.Config) *algorithm.Toolbox {
	t.Helper()

	y := yens.New(net, stream.MaxK)
	sched := scheduler.New(net, y, nil)
	eval := evaluator.New(cfg.Weights, net, y)

	return algorithm.NewToolbox(net, y, sched, eval, nil, cfg)
}

func TestSPF_SelectsShortestCandidateForEveryStream(t *testing.T) {
	net := buildNetwork(t)
	cfg := algorithm.DefaultConfig()
	cfg.HyperperiodUs = 600
	tb := newToolbox(t, net, cfg)

	ft := flowtable.New()
	tsn := ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
	avb := ft.AddAVB(stream.AVB{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 100})

	spf := algorithm.NewSPF(tb)
	sol, err := spf.Configure(ft, nil)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	tsnSel, err := sol.TSNSelection(tsn)
	if err != nil {
		t.Fatalf("TSNSelection: %v", err)
	}
	if tsnSel.Kth != 0 {
		t.Fatalf("expected SPF to pick kth=0 for the TSN stream, got %d", tsnSel.Kth)
	}

	avbSel, err := sol.AVBSelection(avb)
	if err != nil {
		t.Fatalf("AVBSelection: %v", err)
	}
	if avbSel.Kth != 0 {
		t.Fatalf("expected SPF to pick kth=0 for the AVB stream, got %d", avbSel.Kth)
	}
}

func TestRO_NeverWorsensTheStartingSolution(t *testing.T) {
	net := buildNetwork(t)
	cfg := algorithm.DefaultConfig()
	cfg.HyperperiodUs = 600
	cfg.TimeLimit = 50 * time.Millisecond
	cfg.FastStop = false
	tb := newToolbox(t, net, cfg)

	ft := flowtable.New()
	ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
	for i := 0; i < 3; i++ {
		ft.AddAVB(stream.AVB{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300})
	}

	ro := algorithm.NewRO(tb)
	sol, err := ro.Configure(ft, nil)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if sol == nil {
		t.Fatal("expected a non-nil solution")
	}

	eval := evaluator.New(cfg.Weights, net, tb.Yens)
	for _, id := range ft.AVBs() {
		sel, err := sol.AVBSelection(id)
		if err != nil {
			t.Fatalf("AVBSelection: %v", err)
		}
		if _, err := eval.EvaluateAVBWCDForKth(sol, id, sel.Kth); err != nil {
			t.Fatalf("EvaluateAVBWCDForKth: %v", err)
		}
	}

	// SPF returns exactly the kth=0 starting Solution RO's search begins from.
	start, err := algorithm.NewSPF(tb).Configure(ft, nil)
	if err != nil {
		t.Fatalf("SPF Configure: %v", err)
	}
	startCost, _ := eval.EvaluateCostObjectives(start, start)
	roCost, _ := eval.EvaluateCostObjectives(sol, sol)
	if roCost > startCost {
		t.Fatalf("expected RO's cost %v to be no worse than the starting cost %v", roCost, startCost)
	}
}

// TestSPF_DiamondWithContentionSchedulesAllFourStreams covers spec.md's
// end-to-end scenario 3: a diamond topology with four contending TSN
// streams, the three bound for node 4 sharing edge (0,1). All four must
// schedule (obj[0]=0).
func TestSPF_DiamondWithContentionSchedulesAllFourStreams(t *testing.T) {
	net := buildNetwork(t)
	cfg := algorithm.DefaultConfig()
	cfg.HyperperiodUs = 600
	tb := newToolbox(t, net, cfg)

	ft := flowtable.New()
	ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
	ft.AddTSN(stream.TSN{Src: 0, Dst: 5, Size: 750, Period: 150, Deadline: 150})
	ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 500, Period: 200, Deadline: 200})
	ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 750, Period: 300, Deadline: 300})

	spf := algorithm.NewSPF(tb)
	sol, err := spf.Configure(ft, nil)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	eval := evaluator.New(cfg.Weights, net, tb.Yens)
	_, objs := eval.EvaluateCostObjectives(sol, sol)
	if objs[evaluator.ObjTSNFail] != 0 {
		t.Fatalf("expected all four contending TSN streams to schedule, got objs=%v", objs)
	}

	for _, id := range ft.TSNs() {
		sel, err := sol.TSNSelection(id)
		if err != nil {
			t.Fatalf("TSNSelection(%d): %v", id, err)
		}
		if sel.State == solution.Fail {
			t.Fatalf("stream #%d unexpectedly failed to schedule", id)
		}
	}
}

// TestRO_DeterministicAcrossIdenticalSeeds covers spec.md invariant P6 and
// end-to-end scenario 4: two configure() runs with identical inputs and
// seed must produce bit-identical Solutions.
func TestRO_DeterministicAcrossIdenticalSeeds(t *testing.T) {
	run := func() *solution.Solution {
		net := buildNetwork(t)
		cfg := algorithm.DefaultConfig()
		cfg.HyperperiodUs = 600
		cfg.TimeLimit = 40 * time.Millisecond
		cfg.FastStop = false
		cfg.Seed = 420
		tb := newToolbox(t, net, cfg)

		ft := flowtable.New()
		ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
		for i := 0; i < 3; i++ {
			ft.AddAVB(stream.AVB{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300})
		}

		sol, err := algorithm.NewRO(tb).Configure(ft, nil)
		if err != nil {
			t.Fatalf("Configure: %v", err)
		}

		return sol
	}

	first := run()
	second := run()

	for _, id := range first.FlowTable().AVBs() {
		a, err := first.AVBSelection(id)
		if err != nil {
			t.Fatalf("AVBSelection(%d) run 1: %v", id, err)
		}
		b, err := second.AVBSelection(id)
		if err != nil {
			t.Fatalf("AVBSelection(%d) run 2: %v", id, err)
		}
		if a != b {
			t.Fatalf("expected identical seed to reproduce the same selection for stream #%d, got %v vs %v", id, a, b)
		}
	}
}

// TestACO_DeterministicAcrossIdenticalSeeds mirrors
// TestRO_DeterministicAcrossIdenticalSeeds for the ACO strategy.
func TestACO_DeterministicAcrossIdenticalSeeds(t *testing.T) {
	run := func() *solution.Solution {
		net := buildNetwork(t)
		cfg := algorithm.DefaultConfig()
		cfg.HyperperiodUs = 600
		cfg.TimeLimit = 40 * time.Millisecond
		cfg.Ants = 4
		cfg.FastStop = false
		cfg.Seed = 420
		tb := newToolbox(t, net, cfg)

		ft := flowtable.New()
		ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
		ft.AddAVB(stream.AVB{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300})

		sol, err := algorithm.NewACO(tb).Configure(ft, nil)
		if err != nil {
			t.Fatalf("Configure: %v", err)
		}

		return sol
	}

	first := run()
	second := run()

	for _, id := range first.FlowTable().TSNs() {
		a, err := first.TSNSelection(id)
		if err != nil {
			t.Fatalf("TSNSelection(%d) run 1: %v", id, err)
		}
		b, err := second.TSNSelection(id)
		if err != nil {
			t.Fatalf("TSNSelection(%d) run 2: %v", id, err)
		}
		if a != b {
			t.Fatalf("expected identical seed to reproduce the same selection for stream #%d, got %v vs %v", id, a, b)
		}
	}
	for _, id := range first.FlowTable().AVBs() {
		a, err := first.AVBSelection(id)
		if err != nil {
			t.Fatalf("AVBSelection(%d) run 1: %v", id, err)
		}
		b, err := second.AVBSelection(id)
		if err != nil {
			t.Fatalf("AVBSelection(%d) run 2: %v", id, err)
		}
		if a != b {
			t.Fatalf("expected identical seed to reproduce the same selection for stream #%d, got %v vs %v", id, a, b)
		}
	}
}

func TestACO_ProducesAFullyScheduledSolution(t *testing.T) {
	net := buildNetwork(t)
	cfg := algorithm.DefaultConfig()
	cfg.HyperperiodUs = 600
	cfg.TimeLimit = 30 * time.Millisecond
	cfg.Ants = 4
	cfg.FastStop = false
	tb := newToolbox(t, net, cfg)

	ft := flowtable.New()
	tsn := ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
	avb := ft.AddAVB(stream.AVB{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300})

	aco := algorithm.NewACO(tb)
	sol, err := aco.Configure(ft, nil)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	tsnSel, err := sol.TSNSelection(tsn)
	if err != nil {
		t.Fatalf("TSNSelection: %v", err)
	}
	if tsnSel.State != solution.Stay {
		t.Fatalf("expected the TSN stream to be scheduled (Stay), got %v", tsnSel.State)
	}

	avbSel, err := sol.AVBSelection(avb)
	if err != nil {
		t.Fatalf("AVBSelection: %v", err)
	}
	if avbSel.State != solution.Stay {
		t.Fatalf("expected the AVB stream to be scheduled (Stay), got %v", avbSel.State)
	}
}
