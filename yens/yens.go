// Package yens implements C2 from spec.md: precomputing up to K loopless
// shortest paths per (src,dst) pair with Yen's algorithm, using
// gonum.org/v1/gonum/graph/path.DijkstraFrom as the inner shortest-path
// primitive (spec.md §4.1: "Compute the first path by Dijkstra... Dijkstra
// from the spur node to dst").
//
// Candidate sets are computed once and cached; the computation never
// mutates the Network passed to New (spec.md: "Precomputed once per configure(); never
// mutated").
package yens

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	gpath "gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/redbug312/adams-leaf/network"
)

// pairKey identifies a (src,dst) candidate-path query.
type pairKey struct {
	Src, Dst int64
}

// Yens precomputes and caches the K shortest loopless paths for any number
// of (src,dst) pairs over a fixed network. Reads are safe for concurrent
// use once all KShortestPaths/CountShortestPaths calls that populate the cache have
// returned; in the CNC's single-threaded model (spec.md §5) that is always
// the case by the time the search begins.
type Yens struct {
	k int

	mu        sync.RWMutex
	work      *simple.WeightedDirectedGraph // private copy; Yen's mutates this, never net's graph
	candCache map[pairKey][]network.Path
}

// New returns a Yens that will compute up to k candidate paths per pair
// over a private copy of net's graph (net itself is never mutated).
func New(net *network.Network, k int) *Yens {
	y := &Yens{
		k:         k,
		work:      simple.NewWeightedDirectedGraph(0, 0),
		candCache: make(map[pairKey][]network.Path),
	}

	for _, id := range net.NodeIDs() {
		y.work.AddNode(simple.Node(id))
	}

	// Copy edge weights straight from the network's gonum graph, which
	// already holds the MTU-frame transmission time AddEdge derived.
	src := net.Weighted()
	for _, e := range graph.WeightedEdgesOf(src.WeightedEdges()) {
		y.work.SetWeightedEdge(simple.WeightedEdge{
			F: e.From(),
			T: e.To(),
			W: e.Weight(),
		})
	}

	return y
}

// CountShortestPaths returns how many candidate paths (0..k) exist between
// src and dst, computing and caching them if necessary.
func (y *Yens) CountShortestPaths(src, dst int64) (int, error) {
	paths, err := y.KShortestPaths(src, dst)
	if err != nil {
		return 0, err
	}

	return len(paths), nil
}

// KShortestPaths returns up to k loopless paths from src to dst, sorted by
// ascending total edge weight and, for ties, ascending lexicographic node
// order (spec.md §4.1). The slice is cached and must not be mutated by
// callers.
func (y *Yens) KShortestPaths(src, dst int64) ([]network.Path, error) {
	key := pairKey{Src: src, Dst: dst}

	y.mu.RLock()
	if cached, ok := y.candCache[key]; ok {
		y.mu.RUnlock()
		return cached, nil
	}
	y.mu.RUnlock()

	y.mu.Lock()
	defer y.mu.Unlock()

	// Another goroutine may have populated it while we waited for the
	// write lock.
	if cached, ok := y.candCache[key]; ok {
		return cached, nil
	}

	paths, err := y.computeLocked(src, dst)
	if err != nil {
		return nil, err
	}
	y.candCache[key] = paths

	return paths, nil
}

// candidate is one member of Yen's B-list: a node sequence and its total
// weight, kept until it is promoted into A or discarded as a duplicate.
type candidate struct {
	nodes  []int64
	weight float64
}

// computeLocked runs classical Yen's algorithm from src to dst on a private
// working copy of the graph, caller holds y.mu.
func (y *Yens) computeLocked(src, dst int64) ([]network.Path, error) {
	if y.work.Node(src) == nil || y.work.Node(dst) == nil {
		return nil, fmt.Errorf("yens: unknown node in pair (%d,%d)", src, dst)
	}

	first, firstWeight, ok := y.shortestPath(src, dst, y.work)
	if !ok {
		return nil, nil // EmptyCandidateSet: the scheduler reports a selection on it as ErrNoCandidate
	}

	a := []candidate{{nodes: first, weight: firstWeight}}
	var b []candidate

	for len(a) < y.k {
		prev := a[len(a)-1].nodes
		for i := 0; i < len(prev)-1; i++ {
			spurNode := prev[i]
			rootPath := append([]int64(nil), prev[:i+1]...)

			removedEdges := y.removeRootConflictingEdges(a, rootPath, i)
			removedNodes, nodeEdges := y.removeRootNodes(rootPath, spurNode)

			spurPath, spurWeight, ok := y.shortestPath(spurNode, dst, y.work)

			y.restoreNodes(removedNodes)
			y.restoreEdges(nodeEdges)
			y.restoreEdges(removedEdges)

			if !ok {
				continue
			}

			total := append(append([]int64(nil), rootPath[:len(rootPath)-1]...), spurPath...)
			rootWeight := pathWeight(rootPath, y.work)
			cand := candidate{nodes: total, weight: rootWeight + spurWeight}

			if !containsCandidate(a, cand) && !containsCandidate(b, cand) {
				b = append(b, cand)
			}
		}

		if len(b) == 0 {
			break
		}

		sort.SliceStable(b, func(i, j int) bool {
			return lessCandidate(b[i], b[j])
		})
		a = append(a, b[0])
		b = b[1:]
	}

	// The first path is whichever equal-weight path Dijkstra settles on, so
	// the tie-break is applied to the whole list once it is complete.
	sort.SliceStable(a, func(i, j int) bool {
		return lessCandidate(a[i], a[j])
	})

	out := make([]network.Path, len(a))
	for i, c := range a {
		out[i] = nodesToPath(c.nodes)
	}

	return out, nil
}

// shortestPath runs Dijkstra from src to dst on g and returns the node
// sequence and weight, or ok=false if dst is unreachable.
func (y *Yens) shortestPath(src, dst int64, g *simple.WeightedDirectedGraph) ([]int64, float64, bool) {
	if g.Node(src) == nil {
		return nil, 0, false
	}

	shortest := gpath.DijkstraFrom(simple.Node(src), g)
	nodes, weight := shortest.To(dst)
	if nodes == nil {
		return nil, 0, false
	}

	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}

	return ids, weight, true
}

// removeRootConflictingEdges removes, from y.work, the edge leaving
// rootPath[i] that would reproduce any already-found path sharing this
// root prefix (spec.md §4.1).
func (y *Yens) removeRootConflictingEdges(a []candidate, rootPath []int64, i int) []simple.WeightedEdge {
	var removed []simple.WeightedEdge
	for _, c := range a {
		if samePrefix(c.nodes, rootPath) && len(c.nodes) > i+1 {
			from, to := rootPath[i], c.nodes[i+1]
			if e := y.work.WeightedEdge(from, to); e != nil {
				removed = append(removed, simple.WeightedEdge{F: e.From(), T: e.To(), W: e.Weight()})
				y.work.RemoveEdge(from, to)
			}
		}
	}

	return removed
}

// removeRootNodes removes every node in rootPath except spurNode, so the
// spur search cannot walk back through the already-committed root. It
// returns the removed node IDs and every edge that was attached to them,
// since removing a node also removes its edges.
func (y *Yens) removeRootNodes(rootPath []int64, spurNode int64) ([]int64, []simple.WeightedEdge) {
	var removed []int64
	var edges []simple.WeightedEdge
	for _, id := range rootPath {
		if id == spurNode {
			continue
		}
		if y.work.Node(id) != nil {
			for _, to := range graph.NodesOf(y.work.From(id)) {
				edges = append(edges, simple.WeightedEdge{F: simple.Node(id), T: to, W: y.work.WeightedEdge(id, to.ID()).Weight()})
			}
			for _, from := range graph.NodesOf(y.work.To(id)) {
				edges = append(edges, simple.WeightedEdge{F: from, T: simple.Node(id), W: y.work.WeightedEdge(from.ID(), id).Weight()})
			}
			y.work.RemoveNode(id)
			removed = append(removed, id)
		}
	}

	return removed, edges
}

func (y *Yens) restoreNodes(ids []int64) {
	for _, id := range ids {
		y.work.AddNode(simple.Node(id))
	}
}

func (y *Yens) restoreEdges(edges []simple.WeightedEdge) {
	for _, e := range edges {
		y.work.SetWeightedEdge(e)
	}
	// Restoring an edge whose endpoint node was also removed re-adds that
	// node implicitly (SetWeightedEdge adds missing endpoints); restoring
	// nodes before edges in computeLocked's unwind order keeps this a
	// no-op in the common case and a safe no-op otherwise.
}

func pathWeight(nodes []int64, g *simple.WeightedDirectedGraph) float64 {
	var total float64
	for i := 0; i+1 < len(nodes); i++ {
		if e := g.WeightedEdge(nodes[i], nodes[i+1]); e != nil {
			total += e.Weight()
		}
	}

	return total
}

func samePrefix(nodes, prefix []int64) bool {
	if len(nodes) < len(prefix) {
		return false
	}
	for i, id := range prefix {
		if nodes[i] != id {
			return false
		}
	}

	return true
}

func containsCandidate(list []candidate, cand candidate) bool {
	for _, c := range list {
		if len(c.nodes) == len(cand.nodes) && samePrefix(cand.nodes, c.nodes) {
			return true
		}
	}

	return false
}

// lessCandidate orders candidates by ascending weight, then ascending
// lexicographic node order, matching spec.md §4.1's tie-break.
func lessCandidate(a, b candidate) bool {
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	n := len(a.nodes)
	if len(b.nodes) < n {
		n = len(b.nodes)
	}
	for i := 0; i < n; i++ {
		if a.nodes[i] != b.nodes[i] {
			return a.nodes[i] < b.nodes[i]
		}
	}

	return len(a.nodes) < len(b.nodes)
}

func nodesToPath(nodes []int64) network.Path {
	p := make(network.Path, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		p = append(p, network.EdgeID{From: nodes[i], To: nodes[i+1]})
	}

	return p
}
