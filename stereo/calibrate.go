package stereo

import (
	"fmt"
	"math"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/cost"
)

// AutoFraction marks a numerator that should be derived automatically
// rather than taken literally; its paired denominator is ignored.
const AutoFraction = -1

// MaxDenom bounds the shared denominator K/Lambda1/Lambda2 are rounded onto.
// Keeping every numerator under a denominator this small, together with the
// Birchfield-Tomasi cutoff in package cost, keeps every per-edge max-flow
// capacity well clear of int overflow for the graph sizes this solver runs.
const MaxDenom = 16

// Fraction is a non-negative rational num/den, den always >= 1.
type Fraction struct {
	Num, Den int
}

// auto reports whether f asks for automatic derivation.
func (f Fraction) auto() bool { return f.Num == AutoFraction }

// CalibrationInput collects the raw, possibly-AUTO fraction parameters a
// command-line front end gathers before a run.
type CalibrationInput struct {
	DispMin, DispMax int
	K                Fraction // occlusion penalty; AUTO derives from the data term's noise floor
	Lambda1          Fraction // AUTO derives as 3*Lambda, or per ScenePreset if set
	Lambda2          Fraction // AUTO derives as Lambda, or per ScenePreset if set
	Lambda           Fraction // AUTO derives as K/5; used only when Lambda1 or Lambda2 is AUTO

	// ScenePreset, if a known key of ScenePresets, overrides the 3*Lambda /
	// Lambda default ratio used when Lambda1/Lambda2 are AUTO. Typically
	// supplied from an external classifier (see package scenetag) rather
	// than chosen by the caller directly.
	ScenePreset string
}

// ScenePreset scales the AUTO-derived Lambda1/Lambda2 relative to the
// calibrated base lambda for a coarse scene category.
type ScenePreset struct {
	Lambda1Num, Lambda1Den int
	Lambda2Num, Lambda2Den int
}

// ScenePresets maps a coarse scene label to a Lambda1/Lambda2 multiplier
// pair. "outdoor" scenes carry more real texture edges, so smoothness
// across a detected edge is relaxed (Lambda2 = lambda/2); "indoor" scenes
// are flatter, so smoothness away from edges is tightened (Lambda1 =
// 4*lambda); "textured" relaxes it instead (Lambda1 = 2*lambda). Presets
// not listed here keep the default 3*lambda / lambda.
var ScenePresets = map[string]ScenePreset{
	"outdoor":  {Lambda1Num: 3, Lambda1Den: 1, Lambda2Num: 1, Lambda2Den: 2},
	"indoor":   {Lambda1Num: 4, Lambda1Den: 1, Lambda2Num: 1, Lambda2Den: 1},
	"textured": {Lambda1Num: 2, Lambda1Den: 1, Lambda2Num: 1, Lambda2Den: 1},
}

// Calibrate resolves every AUTO fraction into concrete integer numerators
// sharing one common denominator, following the original KZ2 driver's
// fix_parameters: estimate K from the image pair if requested, derive a
// shared lambda when either smoothness weight is AUTO, then put every
// numerator over a common denominator before reducing by their GCD.
func Calibrate(in CalibrationInput, k *cost.Kernel, sizeL coord.Size) (Params, error) {
	if in.DispMin > in.DispMax {
		return Params{}, fmt.Errorf("stereo: Calibrate: disp-min %d exceeds disp-max %d", in.DispMin, in.DispMax)
	}
	for _, f := range []struct {
		name string
		frac Fraction
	}{{"K", in.K}, {"Lambda1", in.Lambda1}, {"Lambda2", in.Lambda2}, {"Lambda", in.Lambda}} {
		if f.frac.auto() {
			continue
		}
		if f.frac.Num < 0 || f.frac.Den <= 0 {
			return Params{}, fmt.Errorf("stereo: Calibrate: %s must be a non-negative fraction with a positive denominator, got %d/%d", f.name, f.frac.Num, f.frac.Den)
		}
	}

	kNum, kDen := in.K.Num, in.K.Den
	l1Num, l1Den := in.Lambda1.Num, in.Lambda1.Den
	l2Num, l2Den := in.Lambda2.Num, in.Lambda2.Den
	lamNum, lamDen := in.Lambda.Num, in.Lambda.Den

	if lamNum == AutoFraction && (in.Lambda1.auto() || in.Lambda2.auto()) {
		kFloat := float64(kNum) / float64(kDen)
		if in.K.auto() {
			estK, err := EstimateK(k, sizeL, in.DispMin, in.DispMax)
			if err != nil {
				return Params{}, err
			}
			kFloat = float64(estK)
		}
		lam := kFloat / 5
		denom := 1
		for lam < 3 {
			lam *= 2
			denom *= 2
		}
		lamNum, lamDen = int(lam+0.5), denom
	}

	if in.K.auto() {
		if in.Lambda.auto() && (in.Lambda1.auto() || in.Lambda2.auto()) {
			kNum, kDen = 5*lamNum, lamDen
		} else {
			estK, err := EstimateK(k, sizeL, in.DispMin, in.DispMax)
			if err != nil {
				return Params{}, err
			}
			kNum, kDen = estK, 1
		}
	}
	preset, hasPreset := ScenePresets[in.ScenePreset]
	if in.Lambda1.auto() {
		if hasPreset {
			l1Num, l1Den = preset.Lambda1Num*lamNum, preset.Lambda1Den*lamDen
		} else {
			l1Num, l1Den = 3*lamNum, lamDen
		}
	}
	if in.Lambda2.auto() {
		if hasPreset {
			l2Num, l2Den = preset.Lambda2Num*lamNum, preset.Lambda2Den*lamDen
		} else {
			l2Num, l2Den = lamNum, lamDen
		}
	}

	nums, denom := bestDenominator([]float64{
		float64(kNum) / float64(kDen),
		float64(l1Num) / float64(l1Den),
		float64(l2Num) / float64(l2Den),
	})
	kNum, l1Num, l2Num = nums[0], nums[1], nums[2]

	g := gcd(kNum, gcd(l1Num, gcd(l2Num, denom)))
	if g > 0 {
		kNum, l1Num, l2Num, denom = kNum/g, l1Num/g, l2Num/g, denom/g
	}

	return Params{
		DispMin:     in.DispMin,
		DispMax:     in.DispMax,
		K:           kNum,
		Lambda1:     l1Num,
		Lambda2:     l2Num,
		Denominator: denom,
	}, nil
}

// bestDenominator searches denominators 1..MaxDenom, returning the rounded
// numerators and the denominator d that minimizes the summed relative
// rounding error |round(v*d)/d - v| / v across values. Ties favor the
// smaller d, since the search runs in increasing order and only a strictly
// better sum replaces the incumbent.
func bestDenominator(values []float64) (nums []int, den int) {
	bestDen := 1
	bestErr := math.Inf(1)
	bestNums := make([]int, len(values))
	for d := 1; d <= MaxDenom; d++ {
		cand := make([]int, len(values))
		errSum := 0.0
		for i, v := range values {
			n := int(math.Round(v * float64(d)))
			cand[i] = n
			if v != 0 {
				errSum += math.Abs(float64(n)/float64(d)-v) / v
			}
		}
		if errSum < bestErr {
			bestErr = errSum
			bestDen = d
			bestNums = cand
		}
	}
	return bestNums, bestDen
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
