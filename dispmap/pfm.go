package dispmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

// ReadPFM reads a grayscale "Pf" PFM file back into a row-major disparity
// buffer (rounded to the nearest integer), for warm-starting a run from a
// previously computed map via stereo.Labeling.LoadFrom. NaN samples become
// stereo.Occluded.
func ReadPFM(path string) (d []int, size coord.Size, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coord.Size{}, fmt.Errorf("dispmap: ReadPFM: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic string
	var w, h int
	var scale float64
	if _, err := fmt.Fscanf(r, "%s\n%d %d\n%g\n", &magic, &w, &h, &scale); err != nil {
		return nil, coord.Size{}, fmt.Errorf("dispmap: ReadPFM: parsing header: %w", err)
	}
	if magic != "Pf" {
		return nil, coord.Size{}, fmt.Errorf("dispmap: ReadPFM: unsupported PFM variant %q, want Pf", magic)
	}

	littleEndian := scale < 0
	d = make([]int, w*h)
	row := make([]byte, 4*w)
	for y := h - 1; y >= 0; y-- {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, coord.Size{}, fmt.Errorf("dispmap: ReadPFM: reading row: %w", err)
		}
		for x := 0; x < w; x++ {
			var bits uint32
			if littleEndian {
				bits = binary.LittleEndian.Uint32(row[4*x:])
			} else {
				bits = binary.BigEndian.Uint32(row[4*x:])
			}
			v := math.Float32frombits(bits)
			i := y*w + x
			if math.IsNaN(float64(v)) {
				d[i] = stereo.Occluded
				continue
			}
			d[i] = int(math.Round(float64(v)))
		}
	}
	return d, coord.Size{X: w, Y: h}, nil
}

// WritePFM writes labeling as a grayscale Portable Float Map ("Pf"
// variant): a text header followed by little-endian float32 rows stored
// bottom-to-top, per the format's convention. Occluded pixels are written
// as NaN.
func WritePFM(path string, l *stereo.Labeling) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dispmap: WritePFM: %w", err)
	}
	defer f.Close()

	w, h := l.SizeL.X, l.SizeL.Y
	buf := bufio.NewWriter(f)
	fmt.Fprintf(buf, "Pf\n%d %d\n-1.0\n", w, h)

	row := make([]byte, 4*w)
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			d := l.At(coord.Coord{X: x, Y: y})
			v := float32(d)
			if d == stereo.Occluded {
				v = float32(math.NaN())
			}
			binary.LittleEndian.PutUint32(row[4*x:], math.Float32bits(v))
		}
		if _, err := buf.Write(row); err != nil {
			return err
		}
	}
	return buf.Flush()
}
