//go:build !cgo

// Package scenetag classifies the left view of a rectified pair with an
// ONNX image model before a solve. This is the stub build for binaries
// compiled without CGO, where onnxruntime isn't linkable.
package scenetag

import "errors"

// ErrCGORequired is returned by Classify when built without CGO.
var ErrCGORequired = errors.New("scenetag requires CGO support; rebuild with CGO_ENABLED=1")

// Options configures the classifier.
type Options struct {
	ORTSharedLibraryPath string
	InputName            string
	OutputName           string
	InputWidth           int
	InputHeight          int
	Labels               []string
	TopK                 int
}

// DefaultOptions returns the zero-value Options; the stub Classify ignores them.
func DefaultOptions() Options { return Options{} }

// Tag is one scored scene label.
type Tag struct {
	Label string
	Score float32
}

// Classify always fails in a non-CGO build.
func Classify(modelPath, imagePath string, opts Options) ([]Tag, error) {
	return nil, ErrCGORequired
}
