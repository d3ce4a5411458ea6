//go:build cgo

// Package scenetag classifies the left view of a rectified pair with an
// ONNX image model before a solve. The daemon looks the top label up in
// stereo.ScenePresets to pick a smoothness preset for calibration. It is a
// side channel: a failed or skipped classification never blocks a solve,
// calibration just keeps its default smoothness ratio.
package scenetag

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// Options configures the classifier. Mirrors the subset of a general ONNX
// image-tagger's knobs this package actually exercises.
type Options struct {
	ORTSharedLibraryPath string
	InputName            string
	OutputName           string
	InputWidth           int
	InputHeight          int
	Labels               []string
	TopK                 int
}

// DefaultOptions returns settings matching a typical single-input,
// single-output image classifier exported at 224x224.
func DefaultOptions() Options {
	return Options{
		InputName:   "input",
		OutputName:  "output",
		InputWidth:  224,
		InputHeight: 224,
		TopK:        3,
	}
}

// Tag is one scored scene label.
type Tag struct {
	Label string
	Score float32
}

// Classify runs the ONNX model at modelPath on imagePath and returns its
// top opts.TopK labels by score, descending.
func Classify(modelPath, imagePath string, opts Options) ([]Tag, error) {
	if opts.InputWidth <= 0 || opts.InputHeight <= 0 {
		return nil, fmt.Errorf("scenetag: invalid input size %dx%d", opts.InputWidth, opts.InputHeight)
	}
	if opts.InputName == "" || opts.OutputName == "" {
		return nil, errors.New("scenetag: input and output tensor names are required")
	}
	if len(opts.Labels) == 0 {
		return nil, errors.New("scenetag: Labels must be provided to size the output tensor")
	}

	if opts.ORTSharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.ORTSharedLibraryPath)
	} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("scenetag: initializing onnxruntime: %w", err)
	}
	defer ort.DestroyEnvironment()

	input, err := loadImageAsTensor(imagePath, opts)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	outShape := ort.NewShape(1, int64(len(opts.Labels)))
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("scenetag: allocating output tensor: %w", err)
	}
	defer output.Destroy()

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("scenetag: creating session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("scenetag: running session: %w", err)
	}

	return topK(output.GetData(), opts.Labels, opts.TopK), nil
}

// loadImageAsTensor decodes and resizes the image to the model's input
// size and packs an NCHW RGB float32 tensor in [0,1].
func loadImageAsTensor(path string, opts Options) (ort.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenetag: opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scenetag: decoding %s: %w", path, err)
	}

	resized := resize.Resize(uint(opts.InputWidth), uint(opts.InputHeight), img, resize.Bicubic)

	w, h := opts.InputWidth, opts.InputHeight
	data := make([]float32, 3*w*h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*w + x
			data[i] = float32(uint8(r>>8)) / 255
			data[plane+i] = float32(uint8(g>>8)) / 255
			data[2*plane+i] = float32(uint8(b>>8)) / 255
		}
	}

	shape := ort.NewShape(1, 3, int64(h), int64(w))
	tensor, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, fmt.Errorf("scenetag: building input tensor: %w", err)
	}
	return tensor, nil
}

type scoredLabel struct {
	Label string
	Score float32
}

func topK(scores []float32, labels []string, k int) []Tag {
	n := len(scores)
	if n > len(labels) {
		n = len(labels)
	}
	scored := make([]scoredLabel, n)
	for i := 0; i < n; i++ {
		scored[i] = scoredLabel{Label: labels[i], Score: scores[i]}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k <= 0 || k > len(scored) {
		k = len(scored)
	}
	tags := make([]Tag, k)
	for i := 0; i < k; i++ {
		tags[i] = Tag{Label: scored[i].Label, Score: scored[i].Score}
	}
	return tags
}
