// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// TextureFromImage uploads an already decoded image as an RGBA8 texture
// with straight alpha.
func TextureFromImage(ctx *Context, img image.Image, s Sampler) (*Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrResourceCreationFailed)
	}
	b := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return NewTexture(ctx, TextureDesc{
		Width:   b.Dx(),
		Height:  b.Dy(),
		Format:  FormatRGBA8,
		Sampler: s,
	}, rgba.Pix[:b.Dx()*b.Dy()*4])
}

// TextureFromImageScaled is TextureFromImage with the image resampled to
// width×height first.
func TextureFromImageScaled(ctx *Context, img image.Image, width, height int, s Sampler) (*Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrResourceCreationFailed)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d", ErrResourceCreationFailed, width, height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	var scaler draw.Scaler = draw.ApproxBiLinear
	if s.MagFilter == FilterNearest && s.MinFilter == FilterNearest {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return TextureFromImage(ctx, dst, s)
}

// imageFromTexels wraps tightly packed RGBA8 texels.
func imageFromTexels(pix []byte, width, height int) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}
