package rectimg

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
)

// Pair is a loaded, size-reconciled left/right rectified stereo pair.
type Pair struct {
	Left, Right *Image
	Color       bool
}

// Load decodes the left and right images (PNG/JPEG/WEBP), silently reduces
// them to gray when both are RGB but have r==g==b everywhere, resizes
// whichever view is taller down to the common (smaller) height, and builds
// the Birchfield-Tomasi interval images for both.
func Load(leftPath, rightPath string) (*Pair, error) {
	left, err := decodeFile(leftPath)
	if err != nil {
		return nil, fmt.Errorf("loading left image %s: %w", leftPath, err)
	}
	right, err := decodeFile(rightPath)
	if err != nil {
		return nil, fmt.Errorf("loading right image %s: %w", rightPath, err)
	}

	h := left.Bounds().Dy()
	if rh := right.Bounds().Dy(); rh < h {
		h = rh
	}
	if left.Bounds().Dy() != h {
		left = resizeHeight(left, h)
	}
	if right.Bounds().Dy() != h {
		right = resizeHeight(right, h)
	}

	color := !isGray(left) || !isGray(right)
	if !color {
		return &Pair{Left: toGray(left), Right: toGray(right)}, nil
	}
	return &Pair{Left: toColor(left), Right: toColor(right), Color: true}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// resizeHeight rescales img so that its height becomes h, keeping aspect
// ratio (width is let free; resize.Resize(0, h, ...) derives it).
func resizeHeight(img image.Image, h int) image.Image {
	return resize.Resize(0, uint(h), img, resize.Bilinear)
}

// isGray reports whether every pixel of img has r==g==b.
func isGray(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || r != bl {
				return false
			}
		}
	}
	return true
}

func toGray(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			pix[y*w+x] = int(r >> 8)
		}
	}
	return NewGray(coord.Size{X: w, Y: h}, pix)
}

func toColor(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([][3]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			pix[y*w+x] = [3]int{int(r >> 8), int(g >> 8), int(bl >> 8)}
		}
	}
	return NewColor(coord.Size{X: w, Y: h}, pix)
}
