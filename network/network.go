// Package network implements C1 from spec.md: a directed graph of
// switches/hosts with a per-edge transmission bandwidth, wrapping
// gonum.org/v1/gonum/graph/simple.WeightedDirectedGraph as the underlying
// storage and shortest-path substrate for package yens.
//
// A topology arrives as an undirected edge list (host/switch pairs with a
// single bandwidth); the core always treats it as two directed edges
// (spec.md §6), so callers call AddEdge twice for an undirected link, once
// per direction, or AddUndirectedEdge once as a convenience.
package network

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/redbug312/adams-leaf/stream"
)

// Sentinel errors for Network construction and lookups.
var (
	// ErrSelfLoop indicates an edge whose source and destination are the
	// same node, which TSN/AVB routing never needs.
	ErrSelfLoop = errors.New("network: self-loop edges are not supported")

	// ErrBadBandwidth indicates a non-positive bandwidth value.
	ErrBadBandwidth = errors.New("network: bandwidth must be positive")

	// ErrEdgeNotFound indicates a lookup against an edge that does not
	// exist in the graph.
	ErrEdgeNotFound = errors.New("network: edge not found")
)

// EdgeID uniquely identifies a directed edge within a Network. It packs the
// source and destination node IDs so it is a plain comparable value, usable
// directly as a map key by package gcl ("gate[e]", "queue[e][q]",
// "traversed_avbs[e]" from spec.md §3).
type EdgeID struct {
	From, To int64
}

// String renders the edge as "from->to", for logging and test failure
// messages.
func (e EdgeID) String() string {
	return fmt.Sprintf("%d->%d", e.From, e.To)
}

// Path is an ordered sequence of edges from a stream's source to its
// destination, as produced by package yens.
type Path []EdgeID

// Network is a directed graph with a transmission bandwidth on every
// edge, in bits per microsecond (spec.md §3: "bandwidth in bits/µs"). It
// holds at most one edge per ordered (src,dst) pair: parallel edges are not
// supported, and AddEdge on an existing pair replaces that edge's bandwidth
// and weight.
//
// The gonum-backed graph stores, as each edge's weight, the transmission
// time of one MTU-sized frame on that edge — the deterministic edge-weight
// policy spec.md §4.1 requires for Yen's algorithm. Network is safe for
// concurrent readers once construction (AddNode/AddEdge) has finished;
// construction itself is guarded by mu so a collaborator may build the
// topology from a concurrent JSON/YAML decode.
type Network struct {
	mu sync.RWMutex

	g         *simple.WeightedDirectedGraph
	bandwidth map[EdgeID]float64 // bits per microsecond
}

// New returns an empty Network.
func New() *Network {
	return &Network{
		g:         simple.NewWeightedDirectedGraph(0, 0),
		bandwidth: make(map[EdgeID]float64),
	}
}

// AddNode ensures id is present in the graph. It is a no-op if the node
// already exists.
func (n *Network) AddNode(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.g.Node(id) == nil {
		n.g.AddNode(simple.Node(id))
	}
}

// AddEdge adds a single directed edge src->dst with the given bandwidth (in
// bits/µs). Both endpoints are created if absent. Returns ErrSelfLoop if
// src == dst, or ErrBadBandwidth if bandwidthBitsPerUs <= 0.
func (n *Network) AddEdge(src, dst int64, bandwidthBitsPerUs float64) error {
	if src == dst {
		return fmt.Errorf("%w: node %d", ErrSelfLoop, src)
	}
	if bandwidthBitsPerUs <= 0 {
		return fmt.Errorf("%w: %g", ErrBadBandwidth, bandwidthBitsPerUs)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	frameBits := float64(stream.MTU * stream.BitsPerByte)
	weight := frameBits / bandwidthBitsPerUs // transmission time of one MTU frame, µs

	n.g.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(src),
		T: simple.Node(dst),
		W: weight,
	})
	n.bandwidth[EdgeID{From: src, To: dst}] = bandwidthBitsPerUs

	return nil
}

// AddUndirectedEdge is a convenience for the topology file's undirected
// edge list (spec.md §6): it adds both src->dst and dst->src with the same
// bandwidth.
func (n *Network) AddUndirectedEdge(a, b int64, bandwidthBitsPerUs float64) error {
	if err := n.AddEdge(a, b, bandwidthBitsPerUs); err != nil {
		return err
	}

	return n.AddEdge(b, a, bandwidthBitsPerUs)
}

// DurationOn returns duration_on(edge, frameBits) = frameBits / bandwidth,
// in microseconds (fractional; callers that feed an integer window take the
// ceiling themselves per spec.md §3/§4.4.4).
func (n *Network) DurationOn(edge EdgeID, frameBits float64) (float64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	bw, ok := n.bandwidth[edge]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEdgeNotFound, edge)
	}

	return frameBits / bw, nil
}

// HasNode reports whether id is present in the graph.
func (n *Network) HasNode(id int64) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.g.Node(id) != nil
}

// NodeIDs returns every node ID in the graph, in no particular order.
func (n *Network) NodeIDs() []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	nodes := graph.NodesOf(n.g.Nodes())
	ids := make([]int64, len(nodes))
	for i, nd := range nodes {
		ids[i] = nd.ID()
	}

	return ids
}

// Weighted returns the underlying gonum graph for use by package yens'
// Dijkstra-driven spur searches. It must not be mutated by callers other
// than Network itself.
func (n *Network) Weighted() *simple.WeightedDirectedGraph {
	return n.g
}

// Edges returns every directed edge currently in the graph.
func (n *Network) Edges() []EdgeID {
	n.mu.RLock()
	defer n.mu.RUnlock()

	edges := make([]EdgeID, 0, len(n.bandwidth))
	for e := range n.bandwidth {
		edges = append(edges, e)
	}

	return edges
}
