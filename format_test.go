// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "testing"

func TestPixelFormat(t *testing.T) {
	tests := []struct {
		f        PixelFormat
		name     string
		bytes    int
		channels int
		depth    bool
		float    bool
	}{
		{FormatRGBA8, "RGBA8", 4, 4, false, false},
		{FormatRGB8, "RGB8", 3, 3, false, false},
		{FormatR8, "R8", 1, 1, false, false},
		{FormatRGBA32F, "RGBA32F", 16, 4, false, true},
		{FormatRG32F, "RG32F", 8, 2, false, true},
		{FormatDepth32F, "Depth32F", 4, 1, true, false},
		{FormatDepth24Stencil8, "Depth24Stencil8", 4, 1, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.f.BytesPerPixel(); got != tt.bytes {
				t.Errorf("BytesPerPixel() = %d, want %d", got, tt.bytes)
			}
			if got := tt.f.Channels(); got != tt.channels {
				t.Errorf("Channels() = %d, want %d", got, tt.channels)
			}
			if got := tt.f.IsDepth(); got != tt.depth {
				t.Errorf("IsDepth() = %v, want %v", got, tt.depth)
			}
			if got := tt.f.IsFloat(); got != tt.float {
				t.Errorf("IsFloat() = %v, want %v", got, tt.float)
			}
		})
	}
	if !FormatDepth24Stencil8.HasStencil() || FormatDepth32F.HasStencil() {
		t.Error("HasStencil() wrong")
	}
	if PixelFormat(99).Valid() || PixelFormat(99).String() != "Unknown(99)" {
		t.Error("PixelFormat(99) treated as valid")
	}
}

func TestAttributeFormat(t *testing.T) {
	tests := []struct {
		f          AttributeFormat
		components int
		size       int
		float      bool
	}{
		{Float32, 1, 4, true},
		{Float32x3, 3, 12, true},
		{Sint32x2, 2, 8, false},
		{Uint32x4, 4, 16, false},
		{Unorm8x4, 4, 4, true},
		{Uint8x4, 4, 4, false},
	}
	for _, tt := range tests {
		if got := tt.f.Components(); got != tt.components {
			t.Errorf("%v.Components() = %d, want %d", tt.f, got, tt.components)
		}
		if got := tt.f.Size(); got != tt.size {
			t.Errorf("%v.Size() = %d, want %d", tt.f, got, tt.size)
		}
		if got := tt.f.IsFloat(); got != tt.float {
			t.Errorf("%v.IsFloat() = %v, want %v", tt.f, got, tt.float)
		}
	}
	if AttributeFormat(60).Size() != 0 || AttributeFormat(60).Valid() {
		t.Error("AttributeFormat(60) has a size")
	}
}

func TestRegion(t *testing.T) {
	tests := []struct {
		r      Region
		w, h   int
		within bool
		empty  bool
	}{
		{Region{Width: 4, Height: 4}, 4, 4, true, false},
		{Region{X: 1, Width: 4, Height: 4}, 4, 4, false, false},
		{Region{X: -1, Width: 1, Height: 1}, 4, 4, false, false},
		{Region{X: 4, Y: 4}, 4, 4, true, true},
		{Region{Width: 2, Height: -1}, 4, 4, false, true},
	}
	for _, tt := range tests {
		if got := tt.r.Within(tt.w, tt.h); got != tt.within {
			t.Errorf("%v.Within(%d, %d) = %v, want %v", tt.r, tt.w, tt.h, got, tt.within)
		}
		if got := tt.r.Empty(); got != tt.empty {
			t.Errorf("%v.Empty() = %v, want %v", tt.r, got, tt.empty)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Float32x2.String(), "Float32x2"},
		{IndexUint16.String(), "Uint16"},
		{UsageStream.String(), "Stream"},
		{TriangleFan.String(), "TriangleFan"},
		{FilterLinear.String(), "Linear"},
		{WrapMirroredRepeat.String(), "MirroredRepeat"},
		{Mode(9).String(), "Unknown(9)"},
		{Region{X: 1, Y: 2, Width: 3, Height: 4}.String(), "(1,2 3x4)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestClearTo(t *testing.T) {
	c := ClearTo([4]float32{0.1, 0.2, 0.3, 1})
	if !c.ClearColor || !c.ClearDepth || c.Depth != 1 || !c.ClearStencil || c.Stencil != 0 {
		t.Errorf("ClearTo() = %+v", c)
	}
	var keep ClearPolicy
	if keep.ClearColor || keep.ClearDepth || keep.ClearStencil {
		t.Error("zero ClearPolicy clears")
	}
}
