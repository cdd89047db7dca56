package algorithm

import (
	"testing"

	"github.com/redbug312/adams-leaf/evaluator"
	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/scheduler"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

func buildDiamond(t *testing.T) *network.Network {
	t.Helper()

	n := network.New()
	edges := [][2]int64{{0, 1}, {0, 2}, {1, 3}, {2, 3}}
	for _, e := range edges {
		if err := n.AddEdge(e[0], e[1], 1000); err != nil {
			t.Fatalf("AddEdge %v: %v", e, err)
		}
	}

	return n
}

// TestACO_ApplyUsesFullCostNotCostWithoutReroute is a regression test for
// aco.go reusing RO's costWithoutReroute helper, which silently discarded
// any configured reroute weight for ACO's distance computation. apply's
// returned cost must move with weights[ObjReroute], matching
// aco_routing.rs's dist_computing(cost: &RoutingCost), which always uses
// the full cost.compute().
func TestACO_ApplyUsesFullCostNotCostWithoutReroute(t *testing.T) {
	net := buildDiamond(t)
	y := yens.New(net, stream.MaxK)
	sched := scheduler.New(net, y, nil)
	eval := evaluator.New([4]float64{0, 0, 1000, 0}, net, y)

	cfg := Config{Weights: [4]float64{0, 0, 1000, 0}, HyperperiodUs: 600}
	tb := NewToolbox(net, y, sched, eval, nil, cfg)

	ft := flowtable.New()
	avb := ft.AddAVB(stream.AVB{Src: 0, Dst: 3, Size: 250, Period: 100, Deadline: 300})

	latest, err := solution.New(ft, 600)
	if err != nil {
		t.Fatalf("solution.New: %v", err)
	}
	if err := latest.SetAVBSelection(avb, solution.Selection{State: solution.Pending, Kth: 0}); err != nil {
		t.Fatalf("SetAVBSelection: %v", err)
	}
	if err := sched.Configure(latest); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	a := NewACO(tb)
	a.sol = latest

	refs := []streamRef{{isTSN: false, id: avb}}

	_, sameCost, _, err := a.apply([]int{0}, refs, latest)
	if err != nil {
		t.Fatalf("apply(kth=0): %v", err)
	}
	_, rerouteCost, _, err := a.apply([]int{1}, refs, latest)
	if err != nil {
		t.Fatalf("apply(kth=1): %v", err)
	}

	if rerouteCost <= sameCost {
		t.Fatalf("expected rerouting to raise the full cost given a nonzero reroute weight: same=%v reroute=%v", sameCost, rerouteCost)
	}

	gotDiff := rerouteCost - sameCost
	if gotDiff != cfg.Weights[evaluator.ObjReroute] {
		t.Fatalf("expected the cost difference to equal the reroute weight %v, got %v", cfg.Weights[evaluator.ObjReroute], gotDiff)
	}
}
