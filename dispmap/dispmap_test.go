package dispmap

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmonasse/disparity-with-graph-cuts/coord"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

func sampleLabeling() *stereo.Labeling {
	size := coord.Size{X: 2, Y: 2}
	l := stereo.NewLabeling(size, size)
	l.LoadFrom([]int{1, 1, 1, 1}, 0, 2) // placeholder to exercise loading
	return l
}

func TestWriteTIFF32Header(t *testing.T) {
	l := sampleLabeling()
	path := filepath.Join(t.TempDir(), "out.tiff")
	if err := WriteTIFF32(path, l); err != nil {
		t.Fatalf("WriteTIFF32: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{'I', 'I', 42, 0}) {
		t.Fatalf("unexpected TIFF magic: %v", data[:4])
	}
	wantLen := 8 + (2 + 12*12 + 4) + 16 + 2*2*4
	if len(data) != wantLen {
		t.Fatalf("len(data) = %d, want %d", len(data), wantLen)
	}
}

func TestWritePFMHeader(t *testing.T) {
	l := sampleLabeling()
	path := filepath.Join(t.TempDir(), "out.pfm")
	if err := WritePFM(path, l); err != nil {
		t.Fatalf("WritePFM: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Pf\n2 2\n-1.0\n"
	if !bytes.HasPrefix(data, []byte(want)) {
		t.Fatalf("unexpected PFM header: %q", data[:len(want)])
	}
	payload := data[len(want):]
	if len(payload) != 2*2*4 {
		t.Fatalf("payload len = %d, want %d", len(payload), 16)
	}
}

func TestReadPFMRoundTrip(t *testing.T) {
	size := coord.Size{X: 2, Y: 2}
	l := stereo.NewLabeling(size, size)
	l.LoadFrom([]int{0, 1, stereo.Occluded, -1}, -1, 1)

	path := filepath.Join(t.TempDir(), "out.pfm")
	if err := WritePFM(path, l); err != nil {
		t.Fatalf("WritePFM: %v", err)
	}

	d, gotSize, err := ReadPFM(path)
	if err != nil {
		t.Fatalf("ReadPFM: %v", err)
	}
	if gotSize != size {
		t.Fatalf("size = %v, want %v", gotSize, size)
	}
	// LoadFrom drops (1,0)'s disparity 1: its partner (2,0) lies outside the
	// 2-wide right image, so that pixel round-trips as occluded.
	want := []int{0, stereo.Occluded, stereo.Occluded, -1}
	for i, w := range want {
		if d[i] != w {
			t.Errorf("d[%d] = %d, want %d", i, d[i], w)
		}
	}
}

func TestWritePNGOccludedCyan(t *testing.T) {
	size := coord.Size{X: 1, Y: 1}
	l := stereo.NewLabeling(size, size) // stays fully occluded
	path := filepath.Join(t.TempDir(), "out.png")
	if err := WritePNG(path, l, 0, 2, false); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("expected a non-empty PNG file, err=%v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r != 0 || g != 0xffff || b != 0xffff {
		t.Errorf("occluded pixel = (%d,%d,%d), want cyan (0,65535,65535)", r, g, b)
	}
}
