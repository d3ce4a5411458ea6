package stereo

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/cost"
	"github.com/pmonasse/disparity-with-graph-cuts/energy"
	"github.com/pmonasse/disparity-with-graph-cuts/rngutil"
)

// Progress is reported once per expansion move attempted.
type Progress struct {
	Iteration int
	Step      int
	Label     int // the candidate disparity just expanded
	Accepted  bool
	Energy    int
}

// ProgressFunc receives one Progress update per attempted expansion move.
// A nil ProgressFunc is legal and simply discards updates.
type ProgressFunc func(Progress)

// Driver owns the persistent labeling and per-move scratch buffers for one
// solve, and runs the alpha-expansion sweep to convergence.
type Driver struct {
	kernel   *cost.Kernel
	labeling *Labeling
	params   Params
	rng      *rand.Rand

	vars0, varsA []int
	energy       int
}

// NewDriver allocates a Driver over a freshly occluded labeling of the
// given left/right image sizes, and copies params' smoothness numerators
// into kernel. Use Labeling.LoadFrom afterward to
// warm-start from a previously computed disparity map.
func NewDriver(kernel *cost.Kernel, sizeL, sizeR coord.Size, params Params, rng *rand.Rand) (*Driver, error) {
	if params.DispMin > params.DispMax {
		return nil, fmt.Errorf("stereo: NewDriver: disp-min %d exceeds disp-max %d", params.DispMin, params.DispMax)
	}
	if params.MaxIter < 1 {
		return nil, fmt.Errorf("stereo: NewDriver: max-iter must be at least 1, got %d", params.MaxIter)
	}
	if rng == nil {
		rng = rngutil.NewSource(0)
	}
	params.costKernel(kernel)
	return &Driver{
		kernel:   kernel,
		labeling: NewLabeling(sizeL, sizeR),
		params:   params,
		rng:      rng,
		vars0:    make([]int, sizeL.X*sizeL.Y),
		varsA:    make([]int, sizeL.X*sizeL.Y),
	}, nil
}

// Labeling exposes the driver's current disparity assignment.
func (d *Driver) Labeling() *Labeling { return d.labeling }

// Energy returns the data+occlusion+smoothness energy of the current
// labeling, counting each occluded pixel as a +K cost.
//
// Internally, a move's accept/reject decision compares the graph's raw
// minimize() output, which embeds D(p,q) = denominator*dataPenalty-K only
// for the assignments that are active; an occluded pixel contributes
// nothing there. That raw quantity and the one returned here differ by
// exactly K*(W*H) (a constant: W*H never changes within a run, only how
// many of those pixels end up occluded), so comparing raw values move to
// move is equivalent to comparing this one, but only this one matches the
// occlusion-counts-as-+K convention a caller expects to see reported.
func (d *Driver) Energy() int {
	return d.energy + d.params.K*len(d.labeling.DLeft)
}

// Run sweeps labels in randomized order, repeatedly performing
// alpha-expansion moves until a full pass over every label leaves the
// labeling unchanged or params.MaxIter is reached, matching the original
// driver's "stop after disp_size consecutive no-op moves" convergence
// test. ctx is checked between moves so a caller can cancel a long solve.
func (d *Driver) Run(ctx context.Context, progress ProgressFunc) error {
	n := d.params.DispMax - d.params.DispMin + 1
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	d.energy = d.computeEnergy()
	log.Printf("stereo: starting expansion sweep: energy=%d labels=%d", d.energy, n)

	stale := make([]bool, n)
	remaining := n
	step := 0
	for iter := 0; iter < d.params.MaxIter && remaining > 0; iter++ {
		if iter == 0 || d.params.Randomize {
			copy(labels, rngutil.Permutation(d.rng, n))
		}

		for _, label := range labels {
			if stale[label] {
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			alpha := d.params.DispMin + label

			before := d.energy
			d.expansionMove(alpha)
			step++

			accepted := d.energy < before
			if progress != nil {
				progress(Progress{Iteration: iter, Step: step, Label: alpha, Accepted: accepted, Energy: d.energy})
			}

			if !accepted {
				stale[label] = true
				remaining--
			} else {
				for i := range stale {
					stale[i] = false
				}
				stale[label] = true
				remaining = n - 1
			}
		}
	}

	log.Printf("stereo: expansion sweep converged: energy=%d moves=%d", d.energy, step)
	return nil
}

// expansionMove builds the alpha-expansion graph over the whole image,
// minimizes it, and commits the result if it strictly lowers the energy.
func (d *Driver) expansionMove(alpha int) {
	w, h := d.labeling.SizeL.X, d.labeling.SizeL.Y
	e := energy.NewBuilder(2*w*h, 12*w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d.buildNodes(e, coord.Coord{X: x, Y: y}, alpha)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := coord.Coord{X: x, Y: y}
			for _, n := range neighbors {
				np := p.Add(n)
				if coord.InRect(np, d.labeling.SizeL) {
					d.buildSmoothness(e, p, np, alpha)
				}
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d.buildUniquenessLeft(e, coord.Coord{X: x, Y: y})
		}
	}
	for y := 0; y < d.labeling.SizeR.Y; y++ {
		for x := 0; x < d.labeling.SizeR.X; x++ {
			d.buildUniquenessRight(e, coord.Coord{X: x, Y: y}, alpha)
		}
	}

	newEnergy := e.Minimize()
	if newEnergy < d.energy {
		d.updateLabeling(e, alpha)
		d.energy = newEnergy
	}
}

