// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package snapshot

import (
	"fmt"
	"image"
	"image/color"
)

// Result summarizes a comparison.
type Result struct {
	// Mismatched counts texels with a channel further apart than the
	// tolerance.
	Mismatched int
	// MaxDelta is the largest channel difference seen.
	MaxDelta uint8
	// First is the first mismatched texel in row order. Valid when
	// Mismatched > 0.
	First image.Point
}

// Equal reports whether no texel mismatched.
func (r Result) Equal() bool { return r.Mismatched == 0 }

func (r Result) String() string {
	if r.Equal() {
		return fmt.Sprintf("equal (max delta %d)", r.MaxDelta)
	}
	return fmt.Sprintf("%d texels differ, first at %v, max delta %d", r.Mismatched, r.First, r.MaxDelta)
}

// Diff compares a and b texel by texel. Channels may differ by up to
// tolerance. Images of different sizes are an error.
func Diff(a, b *image.NRGBA, tolerance uint8) (Result, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return Result{}, fmt.Errorf("snapshot: size %v differs from %v", ab.Size(), bb.Size())
	}
	var res Result
	for y := range ab.Dy() {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):]
		for x := range ab.Dx() {
			bad := false
			for c := range 4 {
				d := absDiff(ra[x*4+c], rb[x*4+c])
				res.MaxDelta = max(res.MaxDelta, d)
				if d > tolerance {
					bad = true
				}
			}
			if bad {
				if res.Mismatched == 0 {
					res.First = image.Pt(x, y)
				}
				res.Mismatched++
			}
		}
	}
	return res, nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// DiffImage returns a visualization of the comparison: matching texels
// are dimmed copies of a, mismatched texels are opaque red.
func DiffImage(a, b *image.NRGBA, tolerance uint8) (*image.NRGBA, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return nil, fmt.Errorf("snapshot: size %v differs from %v", ab.Size(), bb.Size())
	}
	out := image.NewNRGBA(image.Rect(0, 0, ab.Dx(), ab.Dy()))
	red := color.NRGBA{R: 255, A: 255}
	for y := range ab.Dy() {
		for x := range ab.Dx() {
			ca := a.NRGBAAt(ab.Min.X+x, ab.Min.Y+y)
			cb := b.NRGBAAt(bb.Min.X+x, bb.Min.Y+y)
			if absDiff(ca.R, cb.R) > tolerance || absDiff(ca.G, cb.G) > tolerance ||
				absDiff(ca.B, cb.B) > tolerance || absDiff(ca.A, cb.A) > tolerance {
				out.SetNRGBA(x, y, red)
				continue
			}
			out.SetNRGBA(x, y, color.NRGBA{R: ca.R / 4, G: ca.G / 4, B: ca.B / 4, A: 255})
		}
	}
	return out, nil
}
