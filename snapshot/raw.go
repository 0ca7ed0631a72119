// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/pierrec/lz4"
)

// rawMagic starts every raw snapshot.
var rawMagic = [4]byte{'L', 'M', 'N', 'R'}

const rawVersion = 1

// Bounds on the images accepted by ReadRaw.
const (
	maxRawSide   = 1 << 15
	maxRawTexels = 1 << 26
)

// ErrRawFormat is returned when a raw snapshot is malformed.
var ErrRawFormat = errors.New("snapshot: malformed raw snapshot")

// rawHeader precedes the lz4 stream of texels.
type rawHeader struct {
	Magic   [4]byte
	Version uint16
	_       uint16
	Width   uint32
	Height  uint32
}

// WriteRaw writes img as a header followed by its lz4-compressed NRGBA
// texels, top row first.
func WriteRaw(w io.Writer, img *image.NRGBA) error {
	b := img.Bounds()
	h := rawHeader{
		Magic:   rawMagic,
		Version: rawVersion,
		Width:   uint32(b.Dx()), //nolint:gosec // G115: image sizes are positive
		Height:  uint32(b.Dy()), //nolint:gosec // G115: image sizes are positive
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("snapshot: write raw header: %w", err)
	}
	zw := lz4.NewWriter(w)
	rowBytes := b.Dx() * 4
	for y := range b.Dy() {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		if _, err := zw.Write(img.Pix[off : off+rowBytes]); err != nil {
			return fmt.Errorf("snapshot: compress raw texels: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("snapshot: compress raw texels: %w", err)
	}
	return nil
}

// ReadRaw reads an image written by WriteRaw.
func ReadRaw(r io.Reader) (*image.NRGBA, error) {
	var h rawHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrRawFormat, err)
	}
	if h.Magic != rawMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrRawFormat, h.Magic[:])
	}
	if h.Version != rawVersion {
		return nil, fmt.Errorf("%w: version %d", ErrRawFormat, h.Version)
	}
	if h.Width > maxRawSide || h.Height > maxRawSide || uint64(h.Width)*uint64(h.Height) > maxRawTexels {
		return nil, fmt.Errorf("%w: size %dx%d", ErrRawFormat, h.Width, h.Height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	if _, err := io.ReadFull(lz4.NewReader(r), img.Pix); err != nil {
		return nil, fmt.Errorf("%w: texels: %v", ErrRawFormat, err)
	}
	return img, nil
}

// MarshalRaw returns the raw encoding of img.
func MarshalRaw(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRaw(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
