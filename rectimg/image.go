// Package rectimg holds the rectified left/right pixel accessors used by
// the stereo solver: raw intensities plus the Birchfield-Tomasi interval
// images (Imin/Imax) derived from each pixel's 4-neighborhood.
package rectimg

import "github.com/pmonasse/disparity-with-graph-cuts/coord"

// Image is a single rectified view (left or right), gray or color.
//
// For a gray image only the Gray/GrayMin/GrayMax slices are populated; for
// a color image only RGB/RGBMin/RGBMax are. Channels are stored in 3-wide
// groups per pixel, matching how the original C++ RGBImage packs r,g,b.
type Image struct {
	Size  coord.Size
	Color bool

	Gray, GrayMin, GrayMax []int // len Size.X*Size.Y

	RGB, RGBMin, RGBMax [][3]int // len Size.X*Size.Y
}

func (im *Image) offset(p coord.Coord) int {
	return p.Y*im.Size.X + p.X
}

// At returns the gray intensity at p. Only valid for a gray Image.
func (im *Image) At(p coord.Coord) int {
	return im.Gray[im.offset(p)]
}

// AtC returns channel ch (0,1,2) of the color intensity at p.
func (im *Image) AtC(p coord.Coord, ch int) int {
	return im.RGB[im.offset(p)][ch]
}

// MinMax returns the Birchfield-Tomasi gray interval at p.
func (im *Image) MinMax(p coord.Coord) (min, max int) {
	i := im.offset(p)
	return im.GrayMin[i], im.GrayMax[i]
}

// MinMaxC returns the Birchfield-Tomasi interval at p for channel ch.
func (im *Image) MinMaxC(p coord.Coord, ch int) (min, max int) {
	i := im.offset(p)
	return im.RGBMin[i][ch], im.RGBMax[i][ch]
}

// NewGray builds a gray Image from a row-major intensity buffer and
// precomputes its Birchfield-Tomasi interval images.
func NewGray(size coord.Size, pix []int) *Image {
	im := &Image{Size: size, Gray: pix}
	im.GrayMin = make([]int, len(pix))
	im.GrayMax = make([]int, len(pix))
	subPixelGray(im)
	return im
}

// NewColor builds a 3-channel color Image and precomputes its intervals.
func NewColor(size coord.Size, pix [][3]int) *Image {
	im := &Image{Size: size, Color: true, RGB: pix}
	im.RGBMin = make([][3]int, len(pix))
	im.RGBMax = make([][3]int, len(pix))
	subPixelColor(im)
	return im
}

// neighborAvg returns (I(p)+I(q))/2, or I(p) if q is out of the image
// (integer division, matching the original's truncation toward zero for
// non-negative intensities).
func neighborAvg(center, neighbor int, ok bool) int {
	if !ok {
		return center
	}
	return (center + neighbor) / 2
}

// subPixelGray fills GrayMin/GrayMax from Gray: each pixel's interval is the
// min/max, over the pixel and its four averaged in-image neighbors, as
// described by Birchfield & Tomasi (generalized here to 4 neighbors rather
// than the classical 2).
func subPixelGray(im *Image) {
	w, h := im.Size.X, im.Size.Y
	at := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return im.Gray[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := coord.Coord{X: x, Y: y}
			i := im.offset(p)
			v := im.Gray[i]
			lo, hi := v, v
			cands := [4]int{
				neighborAvg(v, at(x-1, y), x > 0),
				neighborAvg(v, at(x+1, y), x+1 < w),
				neighborAvg(v, at(x, y-1), y > 0),
				neighborAvg(v, at(x, y+1), y+1 < h),
			}
			for _, c := range cands {
				if c < lo {
					lo = c
				}
				if c > hi {
					hi = c
				}
			}
			im.GrayMin[i] = lo
			im.GrayMax[i] = hi
		}
	}
}

func subPixelColor(im *Image) {
	w, h := im.Size.X, im.Size.Y
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := coord.Coord{X: x, Y: y}
			i := im.offset(p)
			for ch := 0; ch < 3; ch++ {
				v := im.RGB[i][ch]
				lo, hi := v, v
				cands := [4]int{
					neighborAvg(v, valOrZero(im, x-1, y, ch), x > 0),
					neighborAvg(v, valOrZero(im, x+1, y, ch), x+1 < w),
					neighborAvg(v, valOrZero(im, x, y-1, ch), y > 0),
					neighborAvg(v, valOrZero(im, x, y+1, ch), y+1 < h),
				}
				for _, c := range cands {
					if c < lo {
						lo = c
					}
					if c > hi {
						hi = c
					}
				}
				im.RGBMin[i][ch] = lo
				im.RGBMax[i][ch] = hi
			}
		}
	}
}

func valOrZero(im *Image, x, y, ch int) int {
	if x < 0 || y < 0 || x >= im.Size.X || y >= im.Size.Y {
		return 0
	}
	return im.RGB[im.offset(coord.Coord{X: x, Y: y})][ch]
}
