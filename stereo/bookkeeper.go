package stereo

import "github.com/pmonasse/disparity-with-graph-cuts/coord"

// computeEnergy walks the whole labeling and recomputes the data+occlusion
// and smoothness terms from scratch. Run uses it to seed the tracked
// energy; after that, each accepted move's energy comes from the graph's
// minimum, and no per-move comparison against this value is made.
func (d *Driver) computeEnergy() int {
	e := 0
	for y := 0; y < d.labeling.SizeL.Y; y++ {
		for x := 0; x < d.labeling.SizeL.X; x++ {
			p := coord.Coord{X: x, Y: y}
			dv := d.labeling.At(p)
			if dv != Occluded {
				e += d.D(p, p.Shift(dv))
			}

			for _, n := range neighbors {
				np := p.Add(n)
				if !coord.InRect(np, d.labeling.SizeL) {
					continue
				}
				nd := d.labeling.At(np)
				if dv == nd {
					continue
				}
				if dv != Occluded && coord.InRect(np.Shift(dv), d.labeling.SizeR) {
					e += d.kernel.SmoothnessPenalty(p, np, dv)
				}
				if nd != Occluded && coord.InRect(p.Shift(nd), d.labeling.SizeR) {
					e += d.kernel.SmoothnessPenalty(p, np, nd)
				}
			}
		}
	}
	return e
}
