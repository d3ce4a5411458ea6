package stereo

import (
	"context"
	"testing"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/cost"
	"github.com/pmonasse/disparity-with-graph-cuts/rectimg"
)

func flatKernel(left, right []int) *cost.Kernel {
	size := coord.Size{X: len(left), Y: 1}
	return &cost.Kernel{
		Left:       rectimg.NewGray(size, left),
		Right:      rectimg.NewGray(size, right),
		DataCost:   cost.L1,
		EdgeThresh: 8,
	}
}

// TestPerfectMatchNoOcclusion mirrors the identical-views scenario: with
// dispRange pinned to zero and L==R, every pixel should settle on
// disparity 0 at zero energy.
func TestPerfectMatchNoOcclusion(t *testing.T) {
	pix := []int{10, 20, 30, 40}
	k := flatKernel(pix, append([]int(nil), pix...))
	size := coord.Size{X: 4, Y: 1}

	params := Params{DispMin: 0, DispMax: 0, K: 5, Denominator: 1, MaxIter: 4}
	d, err := NewDriver(k, size, size, params, nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for x := 0; x < 4; x++ {
		if got := d.Labeling().At(coord.Coord{X: x, Y: 0}); got != 0 {
			t.Errorf("At(%d) = %d, want 0", x, got)
		}
	}
	if e := d.Energy(); e != 0 {
		t.Errorf("Energy() = %d, want 0", e)
	}
}

// TestOcclusionAtBoundary forces one pixel out of range of any good match:
// a flat background with a single outlier that cannot be explained at
// disparity 0 should be marked occluded rather than matched at full cost.
func TestOcclusionAtBoundary(t *testing.T) {
	left := []int{100, 100, 100, 100}
	right := []int{999, 100, 100, 100}
	k := flatKernel(left, right)
	size := coord.Size{X: 4, Y: 1}

	params := Params{DispMin: 0, DispMax: 0, K: 10, Denominator: 1, MaxIter: 4}
	d, err := NewDriver(k, size, size, params, nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := d.Labeling().At(coord.Coord{X: 0, Y: 0}); got != Occluded {
		t.Errorf("At(0) = %d, want Occluded", got)
	}
	for x := 1; x < 4; x++ {
		if got := d.Labeling().At(coord.Coord{X: x, Y: 0}); got != 0 {
			t.Errorf("At(%d) = %d, want 0", x, got)
		}
	}
	if e := d.Energy(); e != params.K {
		t.Errorf("Energy() = %d, want %d", e, params.K)
	}
}

// TestUniquenessHoldsAfterRun checks the two uniqueness invariants and the
// left/right consistency invariant on a less trivial image where several
// disparities compete.
func TestUniquenessHoldsAfterRun(t *testing.T) {
	left := []int{30, 90, 90, 30, 30, 90, 90, 30}
	right := []int{30, 30, 90, 90, 30, 30, 90, 90}
	k := flatKernel(left, right)
	size := coord.Size{X: 8, Y: 1}

	params := Params{DispMin: -2, DispMax: 2, K: 15, Lambda1: 2, Lambda2: 1, Denominator: 1, MaxIter: 8, Randomize: true}
	d, err := NewDriver(k, size, size, params, nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := make(map[coord.Coord]coord.Coord)
	for x := 0; x < size.X; x++ {
		p := coord.Coord{X: x, Y: 0}
		dv := d.Labeling().At(p)
		if dv == Occluded {
			continue
		}
		q := p.Shift(dv)
		if !coord.InRect(q, size) {
			t.Fatalf("p=%v has partner %v out of the right image", p, q)
		}
		if prev, ok := seen[q]; ok {
			t.Fatalf("uniqueness-right violated: both %v and %v map to %v", prev, p, q)
		}
		seen[q] = p

		if got := d.Labeling().RightAt(q); got != -dv {
			t.Fatalf("d_right[%v] = %d, want %d", q, got, -dv)
		}
	}
}

// TestNewDriverRejectsDispMinAboveDispMax checks that a malformed disparity
// range is reported as an error instead of reaching Run's negative-length
// slice allocation.
func TestNewDriverRejectsDispMinAboveDispMax(t *testing.T) {
	pix := []int{10, 20, 30, 40}
	k := flatKernel(pix, append([]int(nil), pix...))
	size := coord.Size{X: 4, Y: 1}

	params := Params{DispMin: 3, DispMax: 1, K: 5, Denominator: 1, MaxIter: 4}
	if _, err := NewDriver(k, size, size, params, nil); err == nil {
		t.Error("expected an error when disp-min exceeds disp-max")
	}
}

// TestNewDriverRejectsMaxIterBelowOne checks that a MaxIter of zero (or
// negative) is reported as an error rather than silently running zero
// sweeps and returning a fully-occluded labeling.
func TestNewDriverRejectsMaxIterBelowOne(t *testing.T) {
	pix := []int{10, 20, 30, 40}
	k := flatKernel(pix, append([]int(nil), pix...))
	size := coord.Size{X: 4, Y: 1}

	params := Params{DispMin: 0, DispMax: 0, K: 5, Denominator: 1, MaxIter: 0}
	if _, err := NewDriver(k, size, size, params, nil); err == nil {
		t.Error("expected an error when max-iter is 0")
	}
}

// flatKernel2D builds a Kernel over a W x H gray image pair, row-major.
func flatKernel2D(size coord.Size, left, right []int) *cost.Kernel {
	return &cost.Kernel{
		Left:       rectimg.NewGray(size, left),
		Right:      rectimg.NewGray(size, right),
		DataCost:   cost.L1,
		EdgeThresh: 8,
		Lambda1:    2,
		Lambda2:    1,
	}
}

// TestDriverRunOnTwoDimensionalForegroundShift reproduces the shifted-block
// scenario: a 4x4 foreground square sits at rows [2,6), columns [2,6) in
// the left image and at the same rows but columns [6,10) in the right
// image, a disparity-4 shift. The image is 16 wide by 10 tall (W != H, so a
// swapped x/y offset anywhere in the 4-neighbor or interval-image code, or
// in buildNodes/buildSmoothness/buildUniqueness's row/column loops, would
// either misplace the block or panic on an out-of-range index). Only
// interior block pixels are asserted (margin 1 from the block's own edge,
// where Birchfield-Tomasi neighbor averaging never mixes in the background
// value) — the flat background surrounding the block is tied across every
// disparity in range and so is deliberately left unchecked.
func TestDriverRunOnTwoDimensionalForegroundShift(t *testing.T) {
	const w, h = 16, 10
	size := coord.Size{X: w, Y: h}

	inBlock := func(x, y, x0, y0 int) bool {
		return x >= x0 && x < x0+4 && y >= y0 && y < y0+4
	}

	left := make([]int, w*h)
	right := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			left[i] = 50
			right[i] = 50
			if inBlock(x, y, 2, 2) {
				left[i] = 200
			}
			if inBlock(x, y, 6, 2) {
				right[i] = 200
			}
		}
	}

	k := flatKernel2D(size, left, right)
	params := Params{DispMin: 0, DispMax: 4, K: 10, Lambda1: 2, Lambda2: 1, Denominator: 1, MaxIter: 6}
	d, err := NewDriver(k, size, size, params, nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Interior of the foreground block (margin 1 on every side) must match
	// at disparity 4.
	for _, p := range []coord.Coord{{X: 3, Y: 3}, {X: 4, Y: 3}, {X: 3, Y: 4}, {X: 4, Y: 4}} {
		if got := d.Labeling().At(p); got != 4 {
			t.Errorf("At(%v) = %d, want 4 (foreground block)", p, got)
		}
	}
}

// TestIdempotentRerun checks that running an already-converged driver again
// performs zero accepted moves and leaves the labeling untouched.
func TestIdempotentRerun(t *testing.T) {
	left := []int{30, 90, 90, 30, 30, 90, 90, 30}
	right := []int{30, 30, 90, 90, 30, 30, 90, 90}
	k := flatKernel(left, right)
	size := coord.Size{X: 8, Y: 1}

	params := Params{DispMin: -2, DispMax: 2, K: 15, Lambda1: 2, Lambda2: 1, Denominator: 1, MaxIter: 8}
	d, err := NewDriver(k, size, size, params, nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before := append([]int(nil), d.Labeling().DLeft...)
	energyBefore := d.Energy()

	accepted := 0
	if err := d.Run(context.Background(), func(p Progress) {
		if p.Accepted {
			accepted++
		}
	}); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if accepted != 0 {
		t.Errorf("second Run accepted %d moves, want 0", accepted)
	}
	if d.Energy() != energyBefore {
		t.Errorf("energy changed across idempotent rerun: %d -> %d", energyBefore, d.Energy())
	}
	for x := range before {
		if d.Labeling().DLeft[x] != before[x] {
			t.Errorf("labeling changed at %d: %d -> %d", x, before[x], d.Labeling().DLeft[x])
		}
	}
}
