package stereo

import (
	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/energy"
)

// Scratch-variable markers: a pixel's vars0/varsA entry is either a real
// energy.Var (>=0), the alpha marker (the assignment is forced active and
// already folded into the constant term), or the absent marker (the
// assignment cannot exist).
const (
	varAlpha  = -1
	varAbsent = -2
)

func isVar(v int) bool { return v >= 0 }

// D is the data+occlusion penalty for assignment (p,q): the scaled data
// term minus the fixed per-assignment occlusion reward K.
func (d *Driver) D(p, q coord.Coord) int {
	return d.params.Denominator*d.kernel.DataPenalty(p, q) - d.params.K
}

// buildNodes emits vars0[p] and varsA[p] plus their constant/unary
// contribution for label alpha.
func (d *Driver) buildNodes(e *energy.Builder, p coord.Coord, alpha int) {
	cur := d.labeling.At(p)
	if cur == alpha {
		d.vars0[d.idx(p)] = varAlpha
		d.varsA[d.idx(p)] = varAlpha
		e.AddConstant(d.D(p, p.Shift(alpha)))
		return
	}

	if cur != Occluded {
		d.vars0[d.idx(p)] = int(e.AddVariable(d.D(p, p.Shift(cur)), 0))
	} else {
		d.vars0[d.idx(p)] = varAbsent
	}

	pa := p.Shift(alpha)
	if coord.InRect(pa, d.labeling.SizeR) {
		d.varsA[d.idx(p)] = int(e.AddVariable(0, d.D(p, pa)))
	} else {
		d.varsA[d.idx(p)] = varAbsent
	}
}

// buildSmoothness emits the pairwise smoothness terms between p and
// neighbor np for label alpha.
func (d *Driver) buildSmoothness(e *energy.Builder, p, np coord.Coord, alpha int) {
	cur := d.labeling.At(p)
	ncur := d.labeling.At(np)
	var0, varA := d.vars0[d.idx(p)], d.varsA[d.idx(p)]
	nvar0, nvarA := d.vars0[d.idx(np)], d.varsA[d.idx(np)]

	// Disparity alpha on both assignments.
	if varA != varAbsent && nvarA != varAbsent {
		delta := d.kernel.SmoothnessPenalty(p, np, alpha)
		switch {
		case varA != varAlpha && nvarA != varAlpha:
			e.AddTerm2(energy.Var(varA), energy.Var(nvarA), 0, delta, delta, 0)
		case varA != varAlpha: // nvarA == varAlpha: (np,np+alpha) active
			e.AddTerm1(energy.Var(varA), delta, 0)
		case nvarA != varAlpha: // varA == varAlpha: (p,p+alpha) active
			e.AddTerm1(energy.Var(nvarA), delta, 0)
		}
	}

	// Common disparity cur (if not alpha).
	if isVar(var0) && coord.InRect(np.Shift(cur), d.labeling.SizeR) {
		delta := d.kernel.SmoothnessPenalty(p, np, cur)
		if cur == ncur {
			e.AddTerm2(energy.Var(var0), energy.Var(nvar0), 0, delta, delta, 0)
		} else {
			e.AddTerm1(energy.Var(var0), delta, 0)
		}
	}

	// Symmetric case: np keeps ncur, p does not carry it.
	if isVar(nvar0) && cur != ncur && coord.InRect(p.Shift(ncur), d.labeling.SizeR) {
		delta := d.kernel.SmoothnessPenalty(p, np, ncur)
		e.AddTerm1(energy.Var(nvar0), delta, 0)
	}
}

// buildUniquenessLeft forbids (p,p+d) and (p,p+alpha) from both becoming
// active: p cannot keep its current partner and also acquire the new one.
func (d *Driver) buildUniquenessLeft(e *energy.Builder, p coord.Coord) {
	var0, varA := d.vars0[d.idx(p)], d.varsA[d.idx(p)]
	if isVar(var0) && varA != varAbsent {
		e.ForbidZeroOne(energy.Var(var0), energy.Var(varA))
	}
}

// buildUniquenessRight forbids (q-d,q) and (q-alpha,q) from both becoming
// active, where q is a right pixel: two distinct left pixels cannot both
// end up matched to the same right pixel q. Walked over the right-pixel
// grid separately from buildUniquenessLeft since the left and right images
// need not share a width.
func (d *Driver) buildUniquenessRight(e *energy.Builder, q coord.Coord, alpha int) {
	d0 := d.labeling.RightAt(q)
	if d0 == Occluded {
		return
	}
	leftPos := q.Shift(d0) // left pixel currently matched to q
	var0 := d.vars0[d.idx(leftPos)]
	if var0 == varAlpha {
		return
	}
	pa := q.Shift(-alpha)
	if !coord.InRect(pa, d.labeling.SizeL) {
		return
	}
	varA := d.varsA[d.idx(pa)]
	if isVar(var0) && varA != varAbsent {
		e.ForbidZeroOne(energy.Var(var0), energy.Var(varA))
	}
}

// idx returns the flat index of left pixel p in the per-move scratch
// arrays (which mirror Labeling.DLeft's layout).
func (d *Driver) idx(p coord.Coord) int {
	return p.Y*d.labeling.SizeL.X + p.X
}

// updateLabeling commits the min-cut result for label alpha.
func (d *Driver) updateLabeling(e *energy.Builder, alpha int) {
	for y := 0; y < d.labeling.SizeL.Y; y++ {
		for x := 0; x < d.labeling.SizeL.X; x++ {
			p := coord.Coord{X: x, Y: y}
			v := d.vars0[d.idx(p)]
			if isVar(v) && e.GetVar(energy.Var(v)) == 1 {
				d.labeling.setOccluded(p)
			}
		}
	}
	for y := 0; y < d.labeling.SizeL.Y; y++ {
		for x := 0; x < d.labeling.SizeL.X; x++ {
			p := coord.Coord{X: x, Y: y}
			v := d.varsA[d.idx(p)]
			if isVar(v) && e.GetVar(energy.Var(v)) == 1 {
				d.labeling.setDisparity(p, alpha)
			}
		}
	}
}
