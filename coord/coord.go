// Package coord implements pixel coordinates and rectangle membership for
// the rectified stereo images the solver operates on.
package coord

// Coord is a pixel coordinate in an image.
type Coord struct {
	X, Y int
}

// Add returns c+o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y}
}

// Shift returns c with its X coordinate offset by dx, e.g. c+(dx,0).
func (c Coord) Shift(dx int) Coord {
	return Coord{c.X + dx, c.Y}
}

// Size is the width/height of a rectangle rooted at (0,0).
type Size struct {
	X, Y int
}

// InRect reports whether c lies in the rectangle [0,size.X) x [0,size.Y).
func InRect(c Coord, size Size) bool {
	return 0 <= c.X && c.X < size.X && 0 <= c.Y && c.Y < size.Y
}
