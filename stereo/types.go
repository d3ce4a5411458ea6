// Package stereo implements the Kolmogorov-Zabih alpha-expansion move
// builder and outer driver: per-pixel labeling
// state, the per-move graph construction, automatic parameter calibration,
// and the reference energy bookkeeper that seeds each run's energy.
package stereo

import (
	"math"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/cost"
)

// Occluded marks a left pixel with no correspondent.
const Occluded = math.MaxInt32

// neighbors is the half-neighborhood walked per pixel; the full 4-neighbor
// system arises from visiting each pixel as both p and its neighbor's
// neighbor, so each undirected edge is handled exactly once.
var neighbors = [2]coord.Coord{{X: -1, Y: 0}, {X: 0, Y: 1}}

// Labeling is the persistent per-pixel disparity assignment, owned by the
// Driver for the lifetime of a run.
type Labeling struct {
	SizeL, SizeR coord.Size
	DLeft        []int // len SizeL.X*SizeL.Y, Occluded sentinel
	DRight       []int // len SizeR.X*SizeR.Y, Occluded sentinel
}

// NewLabeling returns a labeling with every pixel occluded.
func NewLabeling(sizeL, sizeR coord.Size) *Labeling {
	l := &Labeling{SizeL: sizeL, SizeR: sizeR}
	l.DLeft = make([]int, sizeL.X*sizeL.Y)
	l.DRight = make([]int, sizeR.X*sizeR.Y)
	for i := range l.DLeft {
		l.DLeft[i] = Occluded
	}
	for i := range l.DRight {
		l.DRight[i] = Occluded
	}
	return l
}

func (l *Labeling) leftIndex(p coord.Coord) int  { return p.Y*l.SizeL.X + p.X }
func (l *Labeling) rightIndex(p coord.Coord) int { return p.Y*l.SizeR.X + p.X }

// At returns the current disparity of left pixel p.
func (l *Labeling) At(p coord.Coord) int {
	return l.DLeft[l.leftIndex(p)]
}

// RightAt returns the partner disparity (negated) recorded at right pixel
// q, or Occluded if q currently has no partner.
func (l *Labeling) RightAt(q coord.Coord) int {
	return l.DRight[l.rightIndex(q)]
}

// setOccluded clears p's assignment, also clearing its old partner's
// d_right entry if one existed.
func (l *Labeling) setOccluded(p coord.Coord) {
	d := l.At(p)
	if d != Occluded {
		q := p.Shift(d)
		if coord.InRect(q, l.SizeR) {
			l.DRight[l.rightIndex(q)] = Occluded
		}
	}
	l.DLeft[l.leftIndex(p)] = Occluded
}

// setDisparity activates assignment (p, p+d).
func (l *Labeling) setDisparity(p coord.Coord, d int) {
	l.DLeft[l.leftIndex(p)] = d
	q := p.Shift(d)
	l.DRight[l.rightIndex(q)] = -d
}

// LoadFrom seeds DLeft (and the derived DRight entries) from a
// previously computed disparity map, matching every non-occluded value
// against the current disparity range; values outside the valid
// assignment are treated as occluded. This supports warm-starting a run
// from a saved map, adapted from the original Match::LoadXLeft.
func (l *Labeling) LoadFrom(d []int, dispMin, dispMax int) {
	for i := range l.DLeft {
		l.DLeft[i] = Occluded
	}
	for i := range l.DRight {
		l.DRight[i] = Occluded
	}
	for y := 0; y < l.SizeL.Y; y++ {
		for x := 0; x < l.SizeL.X; x++ {
			p := coord.Coord{X: x, Y: y}
			v := d[l.leftIndex(p)]
			if v < dispMin || v > dispMax {
				continue
			}
			q := p.Shift(v)
			if !coord.InRect(q, l.SizeR) {
				continue
			}
			l.setDisparity(p, v)
		}
	}
}

// Params holds the calibrated cost-model parameters for a run.
type Params struct {
	DispMin, DispMax int

	K           int // occlusion penalty numerator
	Lambda1     int // non-edge smoothness numerator
	Lambda2     int // edge smoothness numerator
	Denominator int // common denominator for K, Lambda1, Lambda2

	MaxIter   int
	Randomize bool
}

// costKernel copies the smoothness numerators into k. K and Denominator
// are applied separately in D() (the data+occlusion term), since only the
// data penalty needs scaling up to share Lambda1/Lambda2's denominator.
func (p *Params) costKernel(k *cost.Kernel) {
	k.Lambda1 = p.Lambda1
	k.Lambda2 = p.Lambda2
}
