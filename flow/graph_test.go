package flow

import "testing"

// TestTwoNodeBottleneck checks a single bottleneck edge caps the flow.
func TestTwoNodeBottleneck(t *testing.T) {
	g := NewGraph(2, 1)
	a := g.AddNode()
	b := g.AddNode()
	g.AddTweights(a, 5, 0)
	g.AddTweights(b, 0, 5)
	g.AddEdge(a, b, 3, 0)

	if f := g.Maxflow(); f != 3 {
		t.Fatalf("Maxflow() = %d, want 3", f)
	}
	if seg := g.WhatSegment(a, Sink); seg != Source {
		t.Errorf("WhatSegment(a) = %v, want Source", seg)
	}
	if seg := g.WhatSegment(b, Source); seg != Sink {
		t.Errorf("WhatSegment(b) = %v, want Sink", seg)
	}
}

// TestDiamond checks flow splits and remerges across two parallel paths.
func TestDiamond(t *testing.T) {
	g := NewGraph(4, 5)
	s := g.AddNode() // index 0, but treated as a regular node with t-edge from SOURCE
	a := g.AddNode()
	b := g.AddNode()
	tNode := g.AddNode()

	g.AddTweights(s, 10+10, 0) // pull: s sources 20 total toward a and b below
	g.AddEdge(s, a, 10, 0)
	g.AddEdge(s, b, 10, 0)
	g.AddEdge(a, tNode, 10, 0)
	g.AddEdge(b, tNode, 10, 0)
	g.AddEdge(a, b, 1, 0)
	g.AddTweights(tNode, 0, 20)

	if f := g.Maxflow(); f != 20 {
		t.Fatalf("Maxflow() = %d, want 20", f)
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on self-loop")
		}
	}()
	g := NewGraph(1, 1)
	n := g.AddNode()
	g.AddEdge(n, n, 1, 1)
}

func TestAddEdgeRejectsNegativeCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative capacity")
		}
	}()
	g := NewGraph(2, 1)
	a := g.AddNode()
	b := g.AddNode()
	g.AddEdge(a, b, -1, 0)
}

// TestConservation checks flow conservation at every non-terminal node
// after Maxflow.
func TestConservation(t *testing.T) {
	g := NewGraph(4, 5)
	s := g.AddNode()
	a := g.AddNode()
	b := g.AddNode()
	tNode := g.AddNode()

	g.AddTweights(s, 20, 0)
	g.AddEdge(s, a, 10, 0)
	g.AddEdge(s, b, 10, 0)
	g.AddEdge(a, tNode, 10, 0)
	g.AddEdge(b, tNode, 10, 0)
	g.AddEdge(a, b, 1, 0)
	g.AddTweights(tNode, 0, 20)

	origArc := make([]int, len(g.arcs))
	for a := range g.arcs {
		origArc[a] = g.arcs[a].cap
	}
	origNode := make([]int, len(g.nodes))
	for i := range g.nodes {
		origNode[i] = g.nodes[i].cap
	}

	if f := g.Maxflow(); f != 20 {
		t.Fatalf("Maxflow() = %d, want 20", f)
	}

	// Net terminal inflow (source minus sink) must equal the net flow out
	// through the node's arcs.
	for i := range g.nodes {
		in := origNode[i] - g.nodes[i].cap
		out := 0
		for a := g.nodes[i].first; a != arcNone; a = g.arcs[a].next {
			out += origArc[a] - g.arcs[a].cap
		}
		if in != out {
			t.Errorf("node %d: terminal inflow %d != arc outflow %d", i, in, out)
		}
	}
}
