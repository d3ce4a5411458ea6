// Package dispmap writes a computed disparity map to disk: 32-bit float
// TIFF and PFM for downstream numeric tools, and an 8-bit PNG for quick
// visual inspection.
package dispmap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

// occludedColor is the cyan marker for a pixel with no correspondent.
var occludedColor = color.RGBA{R: 0, G: 255, B: 255, A: 255}

// WritePNG renders an 8-bit grayscale visualization of labeling, cyan for
// occluded pixels, gray scaled across [dispMin, dispMax] otherwise. invert
// reverses which end of the range maps to the brighter value.
func WritePNG(path string, l *stereo.Labeling, dispMin, dispMax int, invert bool) error {
	w, h := l.SizeL.X, l.SizeL.Y
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	span := dispMax - dispMin + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := l.At(coord.Coord{X: x, Y: y})
			if d == stereo.Occluded {
				img.Set(x, y, occludedColor)
				continue
			}

			var level int
			if span <= 1 {
				level = 255
			} else {
				num := dispMax - d
				if invert {
					num = d - dispMin
				}
				level = 255 - (255-64)*num/span
			}
			g := color.Gray{Y: uint8(level)}
			img.Set(x, y, g)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dispmap: WritePNG: %w", err)
	}
	defer f.Close()
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(f, img)
}
