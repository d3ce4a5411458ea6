// Command kzdisparity computes a disparity map from a rectified stereo
// pair using alpha-expansion graph-cut energy minimization, writing the
// result as PNG, 32-bit float TIFF, and/or PFM.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pmonasse/disparity-with-graph-cuts/cost"
	"github.com/pmonasse/disparity-with-graph-cuts/dispmap"
	"github.com/pmonasse/disparity-with-graph-cuts/rectimg"
	"github.com/pmonasse/disparity-with-graph-cuts/rngutil"
	"github.com/pmonasse/disparity-with-graph-cuts/s3io"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

func main() {
	left := flag.String("left", "", "left rectified image path (PNG/JPEG/WEBP, or s3://bucket/key)")
	right := flag.String("right", "", "right rectified image path")
	out := flag.String("out", "disparity", "output path without extension; .png/.tiff/.pfm are appended per --formats")
	formats := flag.String("formats", "png", "comma-separated output formats: png,tiff,pfm")

	dispMin := flag.Int("disp-min", 0, "minimum disparity")
	dispMax := flag.Int("disp-max", 16, "maximum disparity")
	dataCost := flag.String("data-cost", "l1", "data term shaping: l1|l2")
	edgeThresh := flag.Int("edge-thresh", 8, "intensity gradient above which the edge-aware smoothness weight applies")

	kFrac := flag.String("k", "AUTO", "occlusion penalty, as num/den or AUTO")
	lambda1Frac := flag.String("lambda1", "AUTO", "non-edge smoothness weight, as num/den or AUTO")
	lambda2Frac := flag.String("lambda2", "AUTO", "edge smoothness weight, as num/den or AUTO")
	lambdaFrac := flag.String("lambda", "AUTO", "shared smoothness base used to derive lambda1/lambda2 when AUTO")

	maxIter := flag.Int("max-iter", 4, "maximum alpha-expansion sweeps over the full label set")
	seed := flag.Uint64("seed", 0, "PRNG seed for the label sweep order")
	randomize := flag.Bool("randomize", true, "reshuffle label order every sweep rather than only the first")
	invert := flag.Bool("invert-vis", false, "invert the PNG visualization's bright/dark mapping")
	warmStart := flag.String("warm-start", "", "seed the labeling from a previously written .pfm disparity map instead of starting fully occluded")

	flag.Parse()

	if *left == "" || *right == "" {
		fmt.Fprintln(os.Stderr, "usage: kzdisparity --left <image> --right <image> [--out disparity] ...")
		os.Exit(2)
	}

	ctx := context.Background()
	leftPath, rightPath, cleanup, err := resolveInputs(ctx, *left, *right)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	pair, err := rectimg.Load(leftPath, rightPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(1)
	}

	dc, err := parseDataCost(*dataCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(2)
	}
	kernel := &cost.Kernel{Left: pair.Left, Right: pair.Right, DataCost: dc, EdgeThresh: *edgeThresh}

	in := stereo.CalibrationInput{
		DispMin: *dispMin,
		DispMax: *dispMax,
		K:       mustFraction(*kFrac),
		Lambda1: mustFraction(*lambda1Frac),
		Lambda2: mustFraction(*lambda2Frac),
		Lambda:  mustFraction(*lambdaFrac),
	}
	params, err := stereo.Calibrate(in, kernel, pair.Left.Size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: calibrating parameters: %v\n", err)
		os.Exit(1)
	}
	params.MaxIter = *maxIter
	params.Randomize = *randomize

	rng := rngutil.NewSource(*seed)
	if *seed == 0 {
		rng = rngutil.NewSource(rand.Uint64())
	}
	driver, err := stereo.NewDriver(kernel, pair.Left.Size, pair.Right.Size, params, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(1)
	}

	if *warmStart != "" {
		d, size, err := dispmap.ReadPFM(*warmStart)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
			os.Exit(1)
		}
		if size != pair.Left.Size {
			fmt.Fprintf(os.Stderr, "kzdisparity: warm-start map is %v, left image is %v\n", size, pair.Left.Size)
			os.Exit(1)
		}
		driver.Labeling().LoadFrom(d, params.DispMin, params.DispMax)
	}

	if err := driver.Run(ctx, func(p stereo.Progress) {
		fmt.Fprintf(os.Stderr, "sweep %d step %d: label=%d accepted=%v energy=%d\n",
			p.Iteration, p.Step, p.Label, p.Accepted, p.Energy)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("final energy: %d\n", driver.Energy())

	if err := writeOutputs(driver.Labeling(), *out, *formats, params.DispMin, params.DispMax, *invert); err != nil {
		fmt.Fprintf(os.Stderr, "kzdisparity: %v\n", err)
		os.Exit(1)
	}
}

// resolveInputs downloads any s3:// path to a temp file, returning a
// cleanup func that removes whatever was downloaded.
func resolveInputs(ctx context.Context, left, right string) (leftPath, rightPath string, cleanup func(), err error) {
	if !s3io.IsURI(left) && !s3io.IsURI(right) {
		return left, right, func() {}, nil
	}

	client, err := s3io.NewClient(ctx)
	if err != nil {
		return "", "", nil, err
	}
	dir, err := os.MkdirTemp("", "kzdisparity-")
	if err != nil {
		return "", "", nil, err
	}
	cleanup = func() { os.RemoveAll(dir) }

	leftPath, err = client.Resolve(ctx, left, dir)
	if err != nil {
		cleanup()
		return "", "", nil, err
	}
	rightPath, err = client.Resolve(ctx, right, dir)
	if err != nil {
		cleanup()
		return "", "", nil, err
	}
	return leftPath, rightPath, cleanup, nil
}

func writeOutputs(l *stereo.Labeling, outBase, formats string, dispMin, dispMax int, invert bool) error {
	for _, f := range strings.Split(formats, ",") {
		switch strings.TrimSpace(strings.ToLower(f)) {
		case "png":
			if err := dispmap.WritePNG(outBase+".png", l, dispMin, dispMax, invert); err != nil {
				return fmt.Errorf("writing PNG: %w", err)
			}
		case "tiff":
			if err := dispmap.WriteTIFF32(outBase+".tiff", l); err != nil {
				return fmt.Errorf("writing TIFF: %w", err)
			}
		case "pfm":
			if err := dispmap.WritePFM(outBase+".pfm", l); err != nil {
				return fmt.Errorf("writing PFM: %w", err)
			}
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	return nil
}

// parseDataCost accepts "l1" or "l2" (case-insensitive); anything else is a
// configuration error, not a silent fallback.
func parseDataCost(s string) (cost.DataCost, error) {
	switch {
	case strings.EqualFold(s, "l1"):
		return cost.L1, nil
	case strings.EqualFold(s, "l2"):
		return cost.L2, nil
	default:
		return 0, fmt.Errorf("bad --data-cost value %q, want l1 or l2", s)
	}
}

// mustFraction parses "AUTO" or "num/den" into a stereo.Fraction, falling
// back to AUTO on any malformed input rather than aborting the run.
func mustFraction(s string) stereo.Fraction {
	if s == "" || strings.EqualFold(s, "AUTO") {
		return stereo.Fraction{Num: stereo.AutoFraction, Den: 1}
	}
	var num, den int
	if _, err := fmt.Sscanf(s, "%d/%d", &num, &den); err != nil || den == 0 {
		return stereo.Fraction{Num: stereo.AutoFraction, Den: 1}
	}
	return stereo.Fraction{Num: num, Den: den}
}
