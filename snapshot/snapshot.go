// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package snapshot saves and compares framebuffer read-backs.
//
// Images come from lumen.Framebuffer.Image. They can be encoded as PNG,
// BMP or TIFF, stored losslessly in a compact raw format for golden
// tests, and compared texel by texel with Diff.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an image file format.
type Format uint8

// Image file formats.
const (
	FormatPNG Format = iota
	FormatBMP
	FormatTIFF
	FormatRaw
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "PNG"
	case FormatBMP:
		return "BMP"
	case FormatTIFF:
		return "TIFF"
	case FormatRaw:
		return "Raw"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ErrUnsupportedFormat is returned for unknown formats and file
// extensions.
var ErrUnsupportedFormat = errors.New("snapshot: unsupported format")

// FormatFromPath picks the format from the file extension: .png, .bmp,
// .tif/.tiff or .lraw.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".lraw":
		return FormatRaw, nil
	default:
		return 0, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img *image.NRGBA, f Format) error {
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatRaw:
		return WriteRaw(w, img)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("snapshot: encode %v: %w", f, err)
	}
	return nil
}

// Decode reads an image in format f and converts it to NRGBA.
func Decode(r io.Reader, f Format) (*image.NRGBA, error) {
	var (
		img image.Image
		err error
	)
	switch f {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatTIFF:
		img, err = tiff.Decode(r)
	case FormatRaw:
		return ReadRaw(r)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %v: %w", f, err)
	}
	return toNRGBA(img), nil
}

// Save writes img to path in the format of its extension.
func Save(path string, img *image.NRGBA) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("snapshot: create file: %w", err)
	}
	if err := Encode(file, img, f); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Load reads the image at path in the format of its extension.
func Load(path string) (*image.NRGBA, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("snapshot: open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Decode(file, f)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
