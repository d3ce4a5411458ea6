package dispmap

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

// tiff tag ids used by the baseline single-strip float encoding below.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagXResolution     = 282
	tagYResolution     = 283
	tagResolutionUnit  = 296
	tagSampleFormat    = 339
)

const (
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// WriteTIFF32 writes labeling's disparity values as a single-strip,
// uncompressed, 32-bit IEEE-float grayscale TIFF, grounded on the tag
// layout io_tiff.c emits via libtiff. Occluded pixels are written as NaN,
// matching the original's own encoding of unmatched pixels.
func WriteTIFF32(path string, l *stereo.Labeling) error {
	w, h := l.SizeL.X, l.SizeL.Y
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dispmap: WriteTIFF32: %w", err)
	}
	defer f.Close()

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}

	const numEntries = 12
	const headerSize = 8
	const ifdSize = 2 + numEntries*12 + 4
	const resOffset = headerSize + ifdSize
	const pixelOffset = resOffset + 8 + 8 // two RATIONAL values (8 bytes each)
	pixelBytes := uint32(w * h * 4)

	entries := []entry{
		{tagImageWidth, typeLong, 1, uint32(w)},
		{tagImageLength, typeLong, 1, uint32(h)},
		{tagBitsPerSample, typeShort, 1, 32},
		{tagCompression, typeShort, 1, 1},
		{tagPhotometric, typeShort, 1, 1},
		{tagStripOffsets, typeLong, 1, uint32(pixelOffset)},
		{tagSamplesPerPixel, typeShort, 1, 1},
		{tagRowsPerStrip, typeLong, 1, uint32(h)},
		{tagStripByteCounts, typeLong, 1, pixelBytes},
		{tagXResolution, typeRational, 1, resOffset},
		{tagYResolution, typeRational, 1, resOffset + 8},
		{tagSampleFormat, typeShort, 1, 3}, // IEEE float
	}

	buf := make([]byte, 0, pixelOffset+int(pixelBytes))

	put16 := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
	put32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }

	buf = append(buf, 'I', 'I')
	put16(42)
	put32(headerSize)

	put16(uint16(len(entries)))
	for _, e := range entries {
		put16(e.tag)
		put16(e.typ)
		put32(e.count)
		put32(e.value)
	}
	put32(0) // no next IFD

	// XResolution = YResolution = 1/1
	put32(1)
	put32(1)
	put32(1)
	put32(1)

	if len(buf) != pixelOffset {
		return fmt.Errorf("dispmap: WriteTIFF32: internal layout mismatch: header is %d bytes, want %d", len(buf), pixelOffset)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := l.At(coord.Coord{X: x, Y: y})
			v := float32(d)
			if d == stereo.Occluded {
				v = float32(math.NaN())
			}
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	_, err = f.Write(buf)
	return err
}
