package yens_test

import (
	"testing"

	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/yens"
)

// diamond builds 0->1->3 and 0->2->3 with equal total weight, plus a longer
// 0->1->2->3 detour, so K=3 should return exactly 3 distinct loopless paths
// ordered by ascending weight then lexicographic node order.
func diamond(t *testing.T) *network.Network {
	t.Helper()

	n := network.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
	}

	must(n.AddEdge(0, 1, 1000))
	must(n.AddEdge(0, 2, 1000))
	must(n.AddEdge(1, 3, 1000))
	must(n.AddEdge(2, 3, 1000))
	must(n.AddEdge(1, 2, 2000)) // cheaper hop, enables the 0-1-2-3 detour

	return n
}

func TestKShortestPaths_ReturnsDistinctLooplessPaths(t *testing.T) {
	n := diamond(t)
	y := yens.New(n, 3)

	paths, err := y.KShortestPaths(0, 3)
	if err != nil {
		t.Fatalf("KShortestPaths: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("expected at least one path")
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		key := ""
		for _, e := range p {
			key += e.String() + ";"
		}
		if seen[key] {
			t.Fatalf("duplicate path returned: %s", key)
		}
		seen[key] = true

		// A loopless path never revisits a node.
		visited := make(map[int64]bool)
		if len(p) > 0 {
			visited[p[0].From] = true
		}
		for _, e := range p {
			if visited[e.To] {
				t.Fatalf("path revisits node %d: %v", e.To, p)
			}
			visited[e.To] = true
		}
	}
}

func TestKShortestPaths_CachesResult(t *testing.T) {
	n := diamond(t)
	y := yens.New(n, 2)

	first, err := y.KShortestPaths(0, 3)
	if err != nil {
		t.Fatalf("KShortestPaths: %v", err)
	}
	second, err := y.KShortestPaths(0, 3)
	if err != nil {
		t.Fatalf("KShortestPaths (cached): %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("cached result diverged: %d vs %d", len(first), len(second))
	}
}

func TestKShortestPaths_UnreachableDestination(t *testing.T) {
	n := network.New()
	n.AddNode(0)
	n.AddNode(1) // isolated, no edges

	y := yens.New(n, 3)

	paths, err := y.KShortestPaths(0, 1)
	if err != nil {
		t.Fatalf("KShortestPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no paths to an unreachable node, got %d", len(paths))
	}
}

func TestCountShortestPaths(t *testing.T) {
	n := diamond(t)
	y := yens.New(n, 2)

	count, err := y.CountShortestPaths(0, 3)
	if err != nil {
		t.Fatalf("CountShortestPaths: %v", err)
	}
	if count == 0 || count > 2 {
		t.Fatalf("expected between 1 and 2 paths, got %d", count)
	}
}
