// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

// PixelFormat is the storage format of a texture or attachment.
type PixelFormat uint8

const (
	// FormatRGBA8 is four 8-bit normalized channels.
	FormatRGBA8 PixelFormat = iota
	// FormatRGB8 is three 8-bit normalized channels.
	FormatRGB8
	// FormatRG8 is two 8-bit normalized channels.
	FormatRG8
	// FormatR8 is one 8-bit normalized channel.
	FormatR8
	// FormatRGBA32F is four 32-bit float channels.
	FormatRGBA32F
	// FormatRGB32F is three 32-bit float channels.
	FormatRGB32F
	// FormatRG32F is two 32-bit float channels.
	FormatRG32F
	// FormatR32F is one 32-bit float channel.
	FormatR32F
	// FormatDepth32F is a 32-bit float depth buffer.
	FormatDepth32F
	// FormatDepth24Stencil8 is a packed depth/stencil buffer.
	FormatDepth24Stencil8

	pixelFormatCount
)

// String returns a human-readable name for the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB8:
		return "RGB8"
	case FormatRG8:
		return "RG8"
	case FormatR8:
		return "R8"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatRGB32F:
		return "RGB32F"
	case FormatRG32F:
		return "RG32F"
	case FormatR32F:
		return "R32F"
	case FormatDepth32F:
		return "Depth32F"
	case FormatDepth24Stencil8:
		return "Depth24Stencil8"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// Valid reports whether f is one of the enumerated formats.
func (f PixelFormat) Valid() bool { return f < pixelFormatCount }

// Channels returns the number of color channels, or 1 for depth formats.
func (f PixelFormat) Channels() int {
	switch f {
	case FormatRGBA8, FormatRGBA32F:
		return 4
	case FormatRGB8, FormatRGB32F:
		return 3
	case FormatRG8, FormatRG32F:
		return 2
	default:
		return 1
	}
}

// BytesPerPixel returns the size of one texel in bytes.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatDepth32F, FormatDepth24Stencil8, FormatR32F:
		return 4
	case FormatRGB8:
		return 3
	case FormatRG8:
		return 2
	case FormatR8:
		return 1
	case FormatRGBA32F:
		return 16
	case FormatRGB32F:
		return 12
	case FormatRG32F:
		return 8
	default:
		return 0
	}
}

// IsDepth reports whether f is a depth or depth/stencil format.
func (f PixelFormat) IsDepth() bool {
	return f == FormatDepth32F || f == FormatDepth24Stencil8
}

// HasStencil reports whether f carries a stencil component.
func (f PixelFormat) HasStencil() bool { return f == FormatDepth24Stencil8 }

// IsFloat reports whether color channels are stored as 32-bit floats.
func (f PixelFormat) IsFloat() bool {
	return f >= FormatRGBA32F && f <= FormatR32F
}

// AttributeFormat is the layout of one vertex attribute.
type AttributeFormat uint8

const (
	Float32 AttributeFormat = iota
	Float32x2
	Float32x3
	Float32x4
	Sint32
	Sint32x2
	Sint32x3
	Sint32x4
	Uint32
	Uint32x2
	Uint32x3
	Uint32x4
	// Unorm8x4 is four bytes read as normalized floats, typically a color.
	Unorm8x4
	// Uint8x4 is four bytes read as unsigned integers.
	Uint8x4

	attributeFormatCount
)

var attributeFormatNames = [...]string{
	"Float32", "Float32x2", "Float32x3", "Float32x4",
	"Sint32", "Sint32x2", "Sint32x3", "Sint32x4",
	"Uint32", "Uint32x2", "Uint32x3", "Uint32x4",
	"Unorm8x4", "Uint8x4",
}

func (f AttributeFormat) String() string {
	if f < attributeFormatCount {
		return attributeFormatNames[f]
	}
	return fmt.Sprintf("Unknown(%d)", f)
}

// Valid reports whether f is one of the enumerated formats.
func (f AttributeFormat) Valid() bool { return f < attributeFormatCount }

// Components returns the number of scalar components.
func (f AttributeFormat) Components() int {
	switch {
	case f == Unorm8x4 || f == Uint8x4:
		return 4
	case f < Unorm8x4:
		return int(f)%4 + 1
	default:
		return 0
	}
}

// IsFloat reports whether the attribute is read as floats by shaders.
func (f AttributeFormat) IsFloat() bool { return f <= Float32x4 || f == Unorm8x4 }

// Size returns the size of the attribute in bytes.
func (f AttributeFormat) Size() int {
	switch f {
	case Unorm8x4, Uint8x4:
		return 4
	}
	return f.Components() * 4
}

// IndexFormat is the element type of an index buffer. IndexNone marks a
// vertex buffer.
type IndexFormat uint8

const (
	IndexNone IndexFormat = iota
	IndexUint16
	IndexUint32
)

func (f IndexFormat) String() string {
	switch f {
	case IndexNone:
		return "None"
	case IndexUint16:
		return "Uint16"
	case IndexUint32:
		return "Uint32"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// Size returns the size of one index in bytes.
func (f IndexFormat) Size() int {
	switch f {
	case IndexUint16:
		return 2
	case IndexUint32:
		return 4
	default:
		return 0
	}
}

// Usage hints how often a buffer's contents change.
type Usage uint8

const (
	// UsageStatic is written once and drawn many times.
	UsageStatic Usage = iota
	// UsageDynamic is rewritten occasionally.
	UsageDynamic
	// UsageStream is rewritten every frame.
	UsageStream
)

func (u Usage) String() string {
	switch u {
	case UsageStatic:
		return "Static"
	case UsageDynamic:
		return "Dynamic"
	case UsageStream:
		return "Stream"
	default:
		return fmt.Sprintf("Unknown(%d)", u)
	}
}

// Mode is the primitive assembly mode of a tessellation.
type Mode uint8

const (
	Point Mode = iota
	Line
	LineStrip
	Triangle
	TriangleStrip
	TriangleFan

	modeCount
)

func (m Mode) String() string {
	switch m {
	case Point:
		return "Point"
	case Line:
		return "Line"
	case LineStrip:
		return "LineStrip"
	case Triangle:
		return "Triangle"
	case TriangleStrip:
		return "TriangleStrip"
	case TriangleFan:
		return "TriangleFan"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Valid reports whether m is one of the enumerated modes.
func (m Mode) Valid() bool { return m < modeCount }

// Primitives returns how many primitives n vertices (or indices) assemble
// into. Trailing vertices that do not complete a primitive are dropped.
func (m Mode) Primitives(n int) int {
	if n <= 0 {
		return 0
	}
	switch m {
	case Point:
		return n
	case Line:
		return n / 2
	case LineStrip:
		return n - 1
	case Triangle:
		return n / 3
	case TriangleStrip, TriangleFan:
		if n < 3 {
			return 0
		}
		return n - 2
	default:
		return 0
	}
}

// Filter selects texel filtering.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// Wrap selects how coordinates outside [0, 1] are resolved.
type Wrap uint8

const (
	WrapClampToEdge Wrap = iota
	WrapRepeat
	WrapMirroredRepeat
)

func (w Wrap) String() string {
	switch w {
	case WrapClampToEdge:
		return "ClampToEdge"
	case WrapRepeat:
		return "Repeat"
	case WrapMirroredRepeat:
		return "MirroredRepeat"
	default:
		return fmt.Sprintf("Unknown(%d)", w)
	}
}

// Sampler is the sampling configuration of a texture. The zero value is
// nearest filtering with clamped coordinates.
type Sampler struct {
	MinFilter Filter
	MagFilter Filter
	WrapS     Wrap
	WrapT     Wrap
}

func (s Sampler) validate() error {
	if s.MinFilter > FilterLinear || s.MagFilter > FilterLinear {
		return fmt.Errorf("%w: sampler filter %v/%v", ErrInvalidValue, s.MinFilter, s.MagFilter)
	}
	if s.WrapS > WrapMirroredRepeat || s.WrapT > WrapMirroredRepeat {
		return fmt.Errorf("%w: sampler wrap %v/%v", ErrInvalidValue, s.WrapS, s.WrapT)
	}
	return nil
}

// Region is a rectangle of texels with its origin at the top-left corner.
type Region struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether r covers no texels.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Within reports whether r lies inside a w×h surface.
func (r Region) Within(w, h int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width >= 0 && r.Height >= 0 &&
		r.X+r.Width <= w && r.Y+r.Height <= h
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
