// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package snapshot

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

// checker returns an opaque w×h image with a 2-texel checker pattern.
func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 40, A: 255} //nolint:gosec // G115: test sizes are small
			if (x/2+y/2)%2 == 0 {
				c.B = 200
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEqual(t *testing.T, got, want *image.NRGBA) {
	t.Helper()
	res, err := Diff(got, want, 0)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !res.Equal() {
		t.Fatalf("images differ: %v", res)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := checker(7, 5)
	for _, f := range []Format{FormatPNG, FormatBMP, FormatTIFF, FormatRaw} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, f); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(&buf, f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			mustEqual(t, got, img)
		})
	}
}

func TestRawKeepsAlpha(t *testing.T) {
	img := checker(4, 4)
	img.SetNRGBA(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 7})
	data, err := MarshalRaw(img)
	if err != nil {
		t.Fatalf("MarshalRaw: %v", err)
	}
	got, err := ReadRaw(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	mustEqual(t, got, img)
}

func TestRawSubImage(t *testing.T) {
	img := checker(8, 8)
	sub := img.SubImage(image.Rect(2, 3, 6, 5)).(*image.NRGBA)
	var buf bytes.Buffer
	if err := WriteRaw(&buf, sub); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	got, err := ReadRaw(&buf)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if got.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	mustEqual(t, got, sub)
}

func TestReadRawRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic", []byte("PNG\x00\x01\x00\x00\x00\x01\x00\x00\x00\x01\x00\x00\x00")},
		{"version", []byte("LMNR\x09\x00\x00\x00\x01\x00\x00\x00\x01\x00\x00\x00")},
		{"huge", []byte("LMNR\x01\x00\x00\x00\xff\xff\xff\x00\x01\x00\x00\x00")},
		{"too many texels", []byte("LMNR\x01\x00\x00\x00\x00\x80\x00\x00\x00\x80\x00\x00")},
		{"truncated", []byte("LMNR\x01\x00\x00\x00\x02\x00\x00\x00\x02\x00\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadRaw(bytes.NewReader(tt.data)); !errors.Is(err, ErrRawFormat) {
				t.Errorf("ReadRaw = %v, want ErrRawFormat", err)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	a := checker(6, 6)
	b := checker(6, 6)
	b.SetNRGBA(4, 1, color.NRGBA{R: a.NRGBAAt(4, 1).R + 3, G: 16, B: 200, A: 255})
	b.SetNRGBA(2, 5, color.NRGBA{A: 255})

	res, err := Diff(a, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatched != 2 || res.First != image.Pt(4, 1) {
		t.Errorf("Diff = %+v, want 2 mismatches first at (4,1)", res)
	}

	res, _ = Diff(a, b, 3)
	if res.Mismatched != 1 || res.First != image.Pt(2, 5) {
		t.Errorf("Diff with tolerance = %+v, want 1 mismatch at (2,5)", res)
	}
	if res.MaxDelta < 3 {
		t.Errorf("MaxDelta = %d", res.MaxDelta)
	}

	if _, err := Diff(a, checker(5, 6), 0); err == nil {
		t.Error("Diff of different sizes succeeded")
	}
}

func TestDiffImage(t *testing.T) {
	a := checker(3, 3)
	b := checker(3, 3)
	b.SetNRGBA(1, 1, color.NRGBA{A: 0})
	out, err := DiffImage(a, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("mismatch texel = %v", got)
	}
	if got := out.NRGBAAt(0, 0); got.A != 255 || got.R != a.NRGBAAt(0, 0).R/4 {
		t.Errorf("matching texel = %v", got)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"out.png", FormatPNG},
		{"OUT.BMP", FormatBMP},
		{"a/b.tif", FormatTIFF},
		{"golden.tiff", FormatTIFF},
		{"frame.lraw", FormatRaw},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
		}
	}
	if _, err := FormatFromPath("x.jpg"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("FormatFromPath(.jpg) = %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	img := checker(5, 3)
	for _, name := range []string{"a.png", "a.bmp", "a.tiff", "a.lraw"} {
		path := filepath.Join(dir, name)
		if err := Save(path, img); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		mustEqual(t, got, img)
	}
}

func TestFormatString(t *testing.T) {
	if FormatTIFF.String() != "TIFF" || Format(42).String() != "Unknown(42)" {
		t.Error("Format.String mismatch")
	}
}
