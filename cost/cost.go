// Package cost implements the pure per-pixel cost kernels (Birchfield-Tomasi
// data penalty and the edge-aware smoothness penalty) used by the move
// builder in package stereo.
package cost

import "github.com/pmonasse/disparity-with-graph-cuts/coord"
import "github.com/pmonasse/disparity-with-graph-cuts/rectimg"

// DataCost selects the data-term shaping policy.
type DataCost int

const (
	L1 DataCost = iota
	L2
)

// Cutoff caps a single-channel Birchfield-Tomasi distance before squaring.
const Cutoff = 30

// Kernel bundles the parameters and image pair the penalty functions need.
type Kernel struct {
	Left, Right *rectimg.Image
	DataCost    DataCost
	EdgeThresh  int
	Lambda1     int // smoothness cost away from an intensity edge
	Lambda2     int // smoothness cost across an intensity edge (<= Lambda1)
}

func distInterval(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DataPenalty returns the Birchfield-Tomasi dissimilarity between left
// pixel p and right pixel q, clamped at Cutoff and optionally squared.
func (k *Kernel) DataPenalty(p, q coord.Coord) int {
	if k.Left.Color {
		return k.dataPenaltyColor(p, q)
	}
	return k.dataPenaltyGray(p, q)
}

func (k *Kernel) dataPenaltyGray(p, q coord.Coord) int {
	ip := k.Left.At(p)
	iq := k.Right.At(q)
	qMin, qMax := k.Right.MinMax(q)
	pMin, pMax := k.Left.MinMax(p)

	dp := distInterval(ip, qMin, qMax)
	dq := distInterval(iq, pMin, pMax)
	d := min(dp, dq)
	if d > Cutoff {
		d = Cutoff
	}
	if k.DataCost == L2 {
		d = d * d
	}
	return d
}

func (k *Kernel) dataPenaltyColor(p, q coord.Coord) int {
	sum := 0
	for ch := 0; ch < 3; ch++ {
		ip := k.Left.AtC(p, ch)
		iq := k.Right.AtC(q, ch)
		qMin, qMax := k.Right.MinMaxC(q, ch)
		pMin, pMax := k.Left.MinMaxC(p, ch)

		dp := distInterval(ip, qMin, qMax)
		dq := distInterval(iq, pMin, pMax)
		d := min(dp, dq)
		if d > Cutoff {
			d = Cutoff
		}
		if k.DataCost == L2 {
			d = d * d
		}
		sum += d
	}
	return sum / 3
}

// SmoothnessPenalty returns lambda1 if both views' intensity jumps between
// p1 and p2 (at disparity d) are below EdgeThresh, else lambda2.
func (k *Kernel) SmoothnessPenalty(p1, p2 coord.Coord, d int) int {
	if k.Left.Color {
		return k.smoothnessPenaltyColor(p1, p2, d)
	}
	return k.smoothnessPenaltyGray(p1, p2, d)
}

func (k *Kernel) smoothnessPenaltyGray(p1, p2 coord.Coord, d int) int {
	dl := abs(k.Left.At(p1) - k.Left.At(p2))
	dr := abs(k.Right.At(p1.Shift(d)) - k.Right.At(p2.Shift(d)))
	if dl < k.EdgeThresh && dr < k.EdgeThresh {
		return k.Lambda1
	}
	return k.Lambda2
}

func (k *Kernel) smoothnessPenaltyColor(p1, p2 coord.Coord, d int) int {
	max := 0
	for ch := 0; ch < 3; ch++ {
		dl := abs(k.Left.AtC(p1, ch) - k.Left.AtC(p2, ch))
		if dl > max {
			max = dl
		}
		dr := abs(k.Right.AtC(p1.Shift(d), ch) - k.Right.AtC(p2.Shift(d), ch))
		if dr > max {
			max = dr
		}
	}
	if max < k.EdgeThresh {
		return k.Lambda1
	}
	return k.Lambda2
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
