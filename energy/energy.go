// Package energy implements the Kolmogorov-Zabih submodular-to-mincut
// reduction: a thin wrapper over package flow adding a constant term and
// 1- and 2-variable submodular terms, each folded into t-edges and at most
// one extra edge.
package energy

import "github.com/pmonasse/disparity-with-graph-cuts/flow"

// Var names a binary variable; it is the underlying flow graph node id.
type Var = flow.NodeID

// Builder accumulates a pseudo-boolean energy function and minimizes it via
// max-flow. A Builder is scoped to a single alpha-expansion move.
type Builder struct {
	g      *flow.Graph
	econst int
}

// NewBuilder allocates a Builder backed by a Graph sized for sizeHintNodes
// variables and sizeHintArcs edges (the move builder in package stereo
// reserves roughly 2*W*H nodes and 12*W*H arcs).
func NewBuilder(sizeHintNodes, sizeHintArcs int) *Builder {
	return &Builder{g: flow.NewGraph(sizeHintNodes, sizeHintArcs)}
}

// AddConstant adds c to the energy unconditionally.
func (b *Builder) AddConstant(c int) {
	b.econst += c
}

// AddVariable adds a fresh variable x with unary cost E(0)=e0, E(1)=e1, and
// returns its handle.
func (b *Builder) AddVariable(e0, e1 int) Var {
	x := b.g.AddNode()
	b.AddTerm1(x, e0, e1)
	return x
}

// AddTerm1 adds a unary term E(x): E(0)=e0, E(1)=e1.
func (b *Builder) AddTerm1(x Var, e0, e1 int) {
	b.g.AddTweights(x, e1, e0)
}

// AddTerm2 adds a submodular pairwise term E(x,y): E(0,0)=a, E(0,1)=b,
// E(1,0)=c, E(1,1)=d. The term must satisfy a+d <= b+c, the regularity
// condition required for a pairwise term to reduce to a min-cut at all; a
// violation is a programmer error and panics, matching package flow's
// contract-violation handling.
func (b *Builder) AddTerm2(x, y Var, a, bb, c, d int) {
	if a+d > bb+c {
		panic("energy: AddTerm2: non-submodular term")
	}
	b.g.AddTweights(x, d, bb)
	b.g.AddTweights(y, 0, a-bb)
	b.g.AddEdge(x, y, 0, bb+c-a-d)
}

// ForbidZeroOne forbids the assignment x=0, y=1 by adding an edge of
// effectively infinite capacity, as used by the uniqueness constraint in
// package stereo.
func (b *Builder) ForbidZeroOne(x, y Var) {
	b.g.ForbidZeroOne(x, y)
}

// Minimize runs max-flow and returns the minimum energy Econst+maxflow().
func (b *Builder) Minimize() int {
	return b.econst + b.g.Maxflow()
}

// GetVar returns the optimal value (0 or 1) of variable x after Minimize.
// Ties (variables the min-cut left under-determined) resolve to SINK,
// which is 0 for vars0 and 1 for varsA in package stereo's encoding — the
// identity move.
func (b *Builder) GetVar(x Var) int {
	if b.g.WhatSegment(x, flow.Sink) == flow.Sink {
		return 1
	}
	return 0
}
