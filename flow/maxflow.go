package flow

import "math"

// setActive appends i to the active list unless it is already queued.
// next==nodeNone means "not queued"; next==i (self) means "last in queue".
func (g *Graph) setActive(i int) {
	n := &g.nodes[i]
	if n.next != nodeNone {
		return
	}
	if g.queueLast != nodeNone {
		g.nodes[g.queueLast].next = i
	} else {
		g.queueFirst = i
	}
	g.queueLast = i
	n.next = i
}

// nextActive pops and returns the next active node still rooted in a tree
// (parent != parentFree), skipping lazily-deleted entries, or nodeNone.
func (g *Graph) nextActive() int {
	for {
		i := g.queueFirst
		if i == nodeNone {
			return nodeNone
		}
		n := &g.nodes[i]
		if n.next == i {
			g.queueFirst, g.queueLast = nodeNone, nodeNone
		} else {
			g.queueFirst = n.next
		}
		n.next = nodeNone
		if n.parent != parentFree {
			return i
		}
	}
}

func (g *Graph) setOrphan(i int) {
	g.nodes[i].parent = parentOrphan
	g.orphans = append(g.orphans, i)
}

// maxflowInit seeds every node with nonzero t-capacity as an active,
// distance-1 leaf of its terminal's tree; nodes with zero t-capacity start
// free. time resets to 0 (it is scoped to one Maxflow call).
func (g *Graph) maxflowInit() {
	g.queueFirst, g.queueLast = nodeNone, nodeNone
	g.orphans = g.orphans[:0]
	g.time = 0

	for i := range g.nodes {
		n := &g.nodes[i]
		n.next = nodeNone
		n.ts = g.time
		if n.cap == 0 {
			n.parent = parentFree
			continue
		}
		if n.cap > 0 {
			n.term = Source
		} else {
			n.term = Sink
		}
		n.parent = parentTerminal
		n.dist = 1
		g.setActive(i)
	}
}

// growTree extends the search tree rooted at leaf i. It returns the arc
// connecting the two trees if growth meets the opposing tree (augment
// reorients it to run SOURCE tree -> SINK tree), or arcNone if the tree
// simply grew.
func (g *Graph) growTree(i int) int {
	ni := &g.nodes[i]
	for a := ni.first; a != arcNone; a = g.arcs[a].next {
		var residual int
		if ni.term == Source {
			residual = g.arcs[a].cap
		} else {
			residual = g.arcs[g.arcs[a].sister].cap
		}
		if residual == 0 {
			continue
		}
		j := g.arcs[a].head
		nj := &g.nodes[j]
		switch {
		case nj.parent == parentFree:
			nj.term = ni.term
			nj.parent = g.arcs[a].sister
			nj.ts = ni.ts
			nj.dist = ni.dist + 1
			g.setActive(j)
		case nj.term != ni.term:
			return a // augment reorients this to run SOURCE tree -> SINK tree
		case nj.ts <= ni.ts && nj.dist > ni.dist:
			nj.parent = g.arcs[a].sister
			nj.ts = ni.ts
			nj.dist = ni.dist + 1
		}
	}
	return arcNone
}

// findBottleneck returns the minimum residual capacity along the
// source-to-sink path through midarc (which must run SOURCE tree -> SINK
// tree), including the two terminal t-capacities at the path's ends.
func (g *Graph) findBottleneck(midarc int) int {
	cap := g.arcs[midarc].cap

	i := g.arcs[g.arcs[midarc].sister].head
	for {
		a := g.nodes[i].parent
		if a == parentTerminal {
			break
		}
		if c := g.arcs[g.arcs[a].sister].cap; c < cap {
			cap = c
		}
		i = g.arcs[a].head
	}
	if g.nodes[i].cap < cap {
		cap = g.nodes[i].cap
	}

	i = g.arcs[midarc].head
	for {
		a := g.nodes[i].parent
		if a == parentTerminal {
			break
		}
		if c := g.arcs[a].cap; c < cap {
			cap = c
		}
		i = g.arcs[a].head
	}
	if -g.nodes[i].cap < cap {
		cap = -g.nodes[i].cap
	}

	return cap
}

// pushFlow sends f units of flow along the source-to-sink path through
// midarc, saturating arcs as it goes and queuing any endpoint whose parent
// edge hits zero residual as an orphan.
func (g *Graph) pushFlow(midarc, f int) {
	g.flow += f

	sister := g.arcs[midarc].sister
	g.arcs[sister].cap += f
	g.arcs[midarc].cap -= f

	i := g.arcs[sister].head
	for {
		a := g.nodes[i].parent
		if a == parentTerminal {
			break
		}
		g.arcs[a].cap += f
		rev := g.arcs[a].sister
		g.arcs[rev].cap -= f
		if g.arcs[rev].cap == 0 {
			g.setOrphan(i)
		}
		i = g.arcs[a].head
	}
	g.nodes[i].cap -= f
	if g.nodes[i].cap == 0 {
		g.setOrphan(i)
	}

	i = g.arcs[midarc].head
	for {
		a := g.nodes[i].parent
		if a == parentTerminal {
			break
		}
		rev := g.arcs[a].sister
		g.arcs[rev].cap += f
		g.arcs[a].cap -= f
		if g.arcs[a].cap == 0 {
			g.setOrphan(i)
		}
		i = g.arcs[a].head
	}
	g.nodes[i].cap += f
	if g.nodes[i].cap == 0 {
		g.setOrphan(i)
	}
}

// augment orients midarc from the SOURCE tree to the SINK tree and pushes
// the bottleneck flow along it.
func (g *Graph) augment(midarc int) {
	if g.nodes[g.arcs[midarc].head].term == Source {
		midarc = g.arcs[midarc].sister
	}
	g.pushFlow(midarc, g.findBottleneck(midarc))
}

// distToRoot walks j's parent chain toward its tree root and returns the
// distance an orphan adopting j would have (j's distance plus one). The walk
// stops early at a node already stamped with the current time, reusing its
// distance; of the nodes it walks, it stamps only a terminal-adjacent one
// (processOrphan stamps the rest). Returns math.MaxInt32 if the chain hits
// an orphan or free node (no path to the root).
func (g *Graph) distToRoot(j int) int {
	d := 2 // count j and the root
	for {
		a := g.nodes[j].parent
		if a == parentTerminal {
			g.nodes[j].ts = g.time
			g.nodes[j].dist = 1
			return d
		}
		if a == parentOrphan || a == parentFree {
			return math.MaxInt32
		}
		if g.nodes[j].ts == g.time {
			return d + g.nodes[j].dist - 1
		}
		j = g.arcs[a].head
		d++
	}
}

// processOrphan tries to reconnect orphan i to its original tree by
// scanning its neighbors for the closest still-rooted in-tree neighbor; if
// none is found, i's former tree children become orphans themselves and
// any reachable tree neighbor is reactivated.
func (g *Graph) processOrphan(i int) {
	dmin := math.MaxInt32
	ni := &g.nodes[i]
	myTerm := ni.term
	ni.parent = parentFree

	for a0 := ni.first; a0 != arcNone; a0 = g.arcs[a0].next {
		var residual int
		if myTerm == Source {
			residual = g.arcs[g.arcs[a0].sister].cap
		} else {
			residual = g.arcs[a0].cap
		}
		if residual == 0 {
			continue
		}
		j := g.arcs[a0].head
		nj := &g.nodes[j]
		if nj.term != myTerm || nj.parent == parentFree {
			continue
		}
		d := g.distToRoot(j)
		if d >= math.MaxInt32 {
			continue
		}
		if d < dmin {
			ni.parent = a0
			ni.ts = g.time
			ni.dist = d
			dmin = d
		}
		for k := j; g.nodes[k].ts != g.time; {
			d--
			g.nodes[k].ts = g.time
			g.nodes[k].dist = d
			k = g.arcs[g.nodes[k].parent].head
		}
	}

	if ni.parent != parentFree {
		return
	}
	for a0 := ni.first; a0 != arcNone; a0 = g.arcs[a0].next {
		j := g.arcs[a0].head
		nj := &g.nodes[j]
		if nj.term != myTerm || nj.parent == parentFree {
			continue
		}
		if nj.parent != parentTerminal && nj.parent != parentOrphan && g.arcs[nj.parent].head == i {
			g.setOrphan(j)
		}
		var residual int
		if nj.term == Source {
			residual = g.arcs[g.arcs[a0].sister].cap
		} else {
			residual = g.arcs[a0].cap
		}
		if residual != 0 {
			g.setActive(j)
		}
	}
}

// adoptOrphans drains the orphan queue, reconnecting or evicting each one
// (processOrphan may append new orphans, which are drained too).
func (g *Graph) adoptOrphans() {
	for len(g.orphans) > 0 {
		i := g.orphans[0]
		g.orphans = g.orphans[1:]
		g.processOrphan(i)
	}
}

// Maxflow runs the Boykov-Kolmogorov algorithm to completion and returns
// the maximum flow value; call WhatSegment afterward to read the min-cut.
func (g *Graph) Maxflow() int {
	g.maxflowInit()

	i := nodeNone
	for {
		if i == nodeNone {
			if i = g.nextActive(); i == nodeNone {
				break
			}
		}
		a := g.growTree(i)
		g.time++
		if a == arcNone {
			i = nodeNone
			continue
		}
		g.nodes[i].next = i // mark active: keep it out of the queue during augment
		g.augment(a)
		g.adoptOrphans()
		g.nodes[i].next = nodeNone
		if g.nodes[i].parent == parentFree {
			i = nodeNone // i could not be reconnected; fetch a new active node
		}
		// else: keep growing from the same i next iteration
	}

	return g.flow
}
