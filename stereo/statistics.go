package stereo

import (
	"fmt"
	"sort"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/cost"
)

// EstimateK samples the data penalty over the disparity range at every
// pixel whose full disparity window stays in bounds, and returns the mean
// of each pixel's k-th order statistic (k around a quarter of the
// disparity count, clamped to [3, disparity count]). This is the
// noise-floor heuristic from Kolmogorov's thesis: a pixel with a true
// correspondence should have a low-penalty match somewhere in the window,
// so the k-th smallest value (not the minimum, which is too noisy alone)
// estimates the per-pixel matching noise.
func EstimateK(k *cost.Kernel, sizeL coord.Size, dispMin, dispMax int) (int, error) {
	n := dispMax - dispMin + 1
	kth := (n + 2) / 4
	if kth < 3 {
		kth = 3
	}
	if kth > n {
		kth = n
	}

	xmin := 0
	if dispMin < 0 {
		xmin = -dispMin
	}
	xmax := sizeL.X
	if dispMax > 0 && sizeL.X-dispMax < xmax {
		xmax = sizeL.X - dispMax
	}

	sum, num := 0, 0
	window := make([]int, n)
	for y := 0; y < sizeL.Y; y++ {
		for x := xmin; x < xmax; x++ {
			p := coord.Coord{X: x, Y: y}
			for i, dd := 0, dispMin; dd <= dispMax; i, dd = i+1, dd+1 {
				window[i] = k.DataPenalty(p, p.Shift(dd))
			}
			sort.Ints(window)
			sum += window[kth-1]
			num++
		}
	}

	if num == 0 {
		return 0, fmt.Errorf("stereo: EstimateK: disparity range too wide for image width")
	}
	if sum == 0 {
		return 0, fmt.Errorf("stereo: EstimateK: estimated K is 0, data term has no noise to calibrate against")
	}
	return sum / num, nil
}
