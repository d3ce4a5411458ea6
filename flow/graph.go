// Package flow implements an arena-backed directed flow graph with integer
// capacities and the Boykov-Kolmogorov two-tree augmenting-path max-flow
// algorithm. A Graph is built fresh for each alpha-expansion
// move: nodes and arcs are appended to growable slices, never freed
// individually, and the whole Graph is dropped once the move is scored.
package flow

import "math"

// NodeID indexes into Graph.nodes. The first call to AddNode returns 0, the
// second 1, and so on.
type NodeID int

// Term names a max-flow terminal.
type Term int

const (
	Source Term = 0
	Sink   Term = 1
)

// arcNone marks the end of a node's outgoing-arc list.
const arcNone = -1

// parent markers distinguishing a free node from one rooted in a search
// tree. Any non-negative value of node.parent is a real arc index.
const (
	parentFree     = -1
	parentTerminal = -2
	parentOrphan   = -3
)

type node struct {
	first  int  // index of first outgoing arc, or arcNone
	parent int  // arc index toward the root, or parentFree/Terminal/Orphan
	next   int  // active-list link: nodeNone="not in list", self="last in list"
	ts     int  // timestamp of last dist recomputation
	dist   int  // distance to the tree root
	term   Term // which tree the node belongs to (valid only if parent!=parentFree)
	cap    int  // capacity SOURCE->node if >0, node->SINK if <0
}

const nodeNone = -1

type arc struct {
	head   int // destination node
	next   int // next arc from the same origin, or arcNone
	sister int // reverse arc's index
	cap    int // residual capacity
}

// Graph is an arena-backed capacitated network for Boykov-Kolmogorov
// max-flow: nodes and arcs live in flat slices addressed by index, and each
// arc stores its sister (reverse) arc for O(1) residual-capacity updates.
type Graph struct {
	nodes []node
	arcs  []arc

	flow int

	queueFirst, queueLast int // active-list head/tail, nodeNone if empty

	orphans []int // FIFO of orphan node indices

	time int
}

// NewGraph returns an empty graph. sizeHintNodes/sizeHintArcs preallocate
// the arenas (the move builder in package stereo sizes these to roughly
// 2*W*H nodes and 12*W*H arcs).
func NewGraph(sizeHintNodes, sizeHintArcs int) *Graph {
	g := &Graph{queueFirst: nodeNone, queueLast: nodeNone}
	g.nodes = make([]node, 0, sizeHintNodes)
	g.arcs = make([]arc, 0, sizeHintArcs)
	return g
}

// AddNode appends a fresh node with zero t-weight and returns its id.
func (g *Graph) AddNode() NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{first: arcNone, parent: parentFree, next: nodeNone})
	return id
}

// AddEdge adds a sister pair of arcs i->j (capacity capij) and j->i
// (capacity capji). i and j must be distinct and both capacities
// non-negative; violating this is a programmer error and panics.
func (g *Graph) AddEdge(i, j NodeID, capij, capji int) {
	if i == j {
		panic("flow: AddEdge: self-loop")
	}
	if capij < 0 || capji < 0 {
		panic("flow: AddEdge: negative capacity")
	}
	ij := len(g.arcs)
	ji := ij + 1

	g.arcs = append(g.arcs,
		arc{head: int(j), next: g.nodes[i].first, sister: ji, cap: capij},
		arc{head: int(i), next: g.nodes[j].first, sister: ij, cap: capji},
	)
	g.nodes[i].first = ij
	g.nodes[j].first = ji
}

// AddTweights folds t-edges SOURCE->i (capacity capSource) and i->SINK
// (capacity capSink) into node i's single signed t-capacity, pre-saturating
// their common part into the running flow (the same reduction as the
// original Graph::add_tweights).
func (g *Graph) AddTweights(i NodeID, capSource, capSink int) {
	n := &g.nodes[i]
	delta := n.cap
	if delta > 0 {
		capSource += delta
	} else {
		capSink -= delta
	}
	if capSource < capSink {
		g.flow += capSource
	} else {
		g.flow += capSink
	}
	n.cap = capSource - capSink
}

// ForbidZeroOne adds an arc of effectively infinite capacity from i to j,
// forbidding the min-cut from placing i in SOURCE (xi=0) while j is in SINK
// (xj=1); the opposite placement costs nothing. Used to encode hard
// constraints such as the uniqueness correspondence rule.
func (g *Graph) ForbidZeroOne(i, j NodeID) {
	g.AddEdge(i, j, infiniteCap, 0)
}

// infiniteCap is large enough that no valid submodular instance ever
// selects it as part of a finite min-cut, yet far below the overflow
// threshold for the sums this package computes (arithmetic
// guardrail targets a 32-bit captype).
const infiniteCap = math.MaxInt32 / 4

// Flow returns the maximum flow value computed by the last Maxflow call.
func (g *Graph) Flow() int { return g.flow }

// WhatSegment reports which terminal node i's min-cut partition belongs to.
// If i was never reached by either search tree (an under-determined tie),
// def is returned.
func (g *Graph) WhatSegment(i NodeID, def Term) Term {
	n := &g.nodes[i]
	if n.parent == parentFree {
		return def
	}
	return n.term
}
