package scheduler_test

import (
	"testing"

	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/gcl"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/scheduler"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

// buildNetwork reproduces the six-node fixture the original scheduler's
// window-calculation test uses: two branches out of node 0 that both
// eventually reach node 4/5, every edge at the same 1000 bits/µs bandwidth
// (so every MTU frame takes 2µs to transmit).
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

func TestConfigure_PlacesBackToBackFramesOnASharedRoute(t *testing.T) {
	net := buildNetwork(t)
	y := yens.New(net, stream.MaxK)

	ft := flowtable.New()
	// Two streams sharing the 0->1->4 route; the second carries two
	// frames instead of one.
	idSingleFrame := ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})
	idTwoFrames := ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 500, Period: 200, Deadline: 200})

	sol, err := solution.New(ft, 600)
	if err != nil {
		t.Fatalf("solution.New: %v", err)
	}
	if err := sol.SetTSNSelection(idSingleFrame, solution.Selection{State: solution.Pending, Kth: 0}); err != nil {
		t.Fatalf("SetTSNSelection: %v", err)
	}
	if err := sol.SetTSNSelection(idTwoFrames, solution.Selection{State: solution.Pending, Kth: 0}); err != nil {
		t.Fatalf("SetTSNSelection: %v", err)
	}

	sched := scheduler.New(net, y, nil)
	if err := sched.Configure(sol); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	for _, id := range []int{idSingleFrame, idTwoFrames} {
		sel, err := sol.TSNSelection(id)
		if err != nil {
			t.Fatalf("TSNSelection: %v", err)
		}
		if sel.State != solution.Stay {
			t.Fatalf("stream %d: expected Stay after Configure, got %v", id, sel.State)
		}
	}

	edge01 := network.EdgeID{From: 0, To: 1}
	got := sol.GCL().GateIntervals(edge01)
	if len(got) == 0 {
		t.Fatal("expected gate reservations on edge 0->1")
	}

	// Deadline-first ordering places the 100µs-deadline single-frame
	// stream's window before the 200µs-deadline stream's two frames, so
	// together they occupy [0,2) and two more back-to-back slots.
	wantFirst := gcl.Interval{Start: 0, End: 2}
	if got[0].Interval != wantFirst {
		t.Fatalf("expected first reservation on edge 0->1 to start at [0,2), got %v", got[0].Interval)
	}
}

func TestConfigure_AVBStreamRecordedAsTraversingItsRoute(t *testing.T) {
	net := buildNetwork(t)
	y := yens.New(net, stream.MaxK)

	ft := flowtable.New()
	avb := ft.AddAVB(stream.AVB{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})

	sol, err := solution.New(ft, 600)
	if err != nil {
		t.Fatalf("solution.New: %v", err)
	}
	if err := sol.SetAVBSelection(avb, solution.Selection{State: solution.Pending, Kth: 0}); err != nil {
		t.Fatalf("SetAVBSelection: %v", err)
	}

	sched := scheduler.New(net, y, nil)
	if err := sched.Configure(sol); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	edge01 := network.EdgeID{From: 0, To: 1}
	if _, present := sol.TraversedAVBs(edge01)[avb]; !present {
		t.Fatalf("expected AVB stream %d to traverse edge 0->1", avb)
	}

	sel, err := sol.AVBSelection(avb)
	if err != nil {
		t.Fatalf("AVBSelection: %v", err)
	}
	if sel.State != solution.Stay {
		t.Fatalf("expected Stay after Configure, got %v", sel.State)
	}
}

func TestReselectTSN_RemovesPriorReservationBeforePending(t *testing.T) {
	net := buildNetwork(t)
	y := yens.New(net, stream.MaxK)

	ft := flowtable.New()
	id := ft.AddTSN(stream.TSN{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100})

	sol, err := solution.New(ft, 600)
	if err != nil {
		t.Fatalf("solution.New: %v", err)
	}
	if err := sol.SetTSNSelection(id, solution.Selection{State: solution.Pending, Kth: 0}); err != nil {
		t.Fatalf("SetTSNSelection: %v", err)
	}

	sched := scheduler.New(net, y, nil)
	if err := sched.Configure(sol); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	edge01 := network.EdgeID{From: 0, To: 1}
	if len(sol.GCL().GateIntervals(edge01)) == 0 {
		t.Fatal("expected a reservation after the first Configure")
	}

	if err := sched.ReselectTSN(sol, id, 0); err != nil {
		t.Fatalf("ReselectTSN: %v", err)
	}

	sel, err := sol.TSNSelection(id)
	if err != nil {
		t.Fatalf("TSNSelection: %v", err)
	}
	if sel.State != solution.Pending {
		t.Fatalf("expected Pending after ReselectTSN, got %v", sel.State)
	}
	if len(sol.GCL().GateIntervals(edge01)) != 0 {
		t.Fatal("expected the prior reservation to be removed by ReselectTSN")
	}
}
