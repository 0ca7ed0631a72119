// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Device is the low-level graphics device a Context drives.
//
// A Device is handed to lumen already initialized and current: lumen never
// creates or destroys devices. Implementations live in the backend
// sub-packages (backend/soft, backend/wgpu). Device values must be pointers
// or other comparable types, since a Device identifies its Context.
//
// Errors caused by losing the device must wrap [ErrContextLost]. Compile
// and link failures returned from CreateProgram must be *ShaderBuildError.
type Device interface {
	// Caps reports what the device supports.
	Caps() Caps

	// CreateBuffer allocates a buffer of desc.Size bytes. data is either nil
	// (zero-filled) or exactly desc.Size bytes long.
	CreateBuffer(desc *BufferDescriptor, data []byte) (DeviceBuffer, error)

	// CreateTexture allocates a texture with zeroed contents.
	CreateTexture(desc *TextureDesc) (DeviceTexture, error)

	// CreateFramebuffer groups previously created textures into a target.
	CreateFramebuffer(desc *FramebufferDescriptor) (DeviceFramebuffer, error)

	// BackBuffer returns the screen target sized to the surface.
	BackBuffer(width, height int) (DeviceFramebuffer, error)

	// CreateProgram compiles and links the shader stages of desc.
	CreateProgram(desc *ProgramDesc) (DeviceProgram, error)

	// BeginPass binds target for drawing and applies clear exactly once.
	BeginPass(target DeviceFramebuffer, clear ClearPolicy) (Pass, error)
}

// DeviceBuffer is device-side buffer storage.
type DeviceBuffer interface {
	Write(offset int, data []byte) error
	Destroy()
}

// DeviceTexture is device-side texture storage.
type DeviceTexture interface {
	Write(r Region, data []byte) error
	Destroy()
}

// DeviceFramebuffer is a render target.
type DeviceFramebuffer interface {
	// Read copies region r of color attachment index into dst, row-major,
	// tightly packed, top row first.
	Read(attachment int, r Region, dst []byte) error
	Destroy()
}

// DeviceProgram is a linked shader program.
type DeviceProgram interface {
	// Uniforms reports the uniforms the linked program actually uses.
	Uniforms() []UniformInfo
	Destroy()
}

// Pass records the commands of one pipeline execution against one target.
// It is only driven by the pipeline executor, which guarantees the call
// order: SetProgram before SetUniform/SetState, SetState before Draw, and
// exactly one End.
type Pass interface {
	SetProgram(p DeviceProgram) error
	SetUniform(location int, typ UniformType, value any) error
	SetTexture(unit int, t DeviceTexture) error
	SetState(s *RenderState) error
	Draw(call *DrawCall) error
	End() error
}

// BufferDescriptor describes a device buffer.
type BufferDescriptor struct {
	Label string
	Size  int
	Usage Usage
	Index IndexFormat
}

// FramebufferDescriptor describes a device framebuffer.
type FramebufferDescriptor struct {
	Label       string
	Width       int
	Height      int
	Color       []DeviceTexture
	Formats     []PixelFormat // formats of Color, in order
	Depth       DeviceTexture // nil when there is no depth attachment
	DepthFormat PixelFormat
}

// UniformInfo describes an active uniform of a linked program.
type UniformInfo struct {
	Name     string
	Type     UniformType
	Location int
}

// VertexStream is one vertex buffer bound for a draw.
type VertexStream struct {
	Buffer DeviceBuffer
	Stride int
}

// AttributeBinding feeds program input Location from an attribute of
// stream Stream.
type AttributeBinding struct {
	Location int
	Stream   int
	Offset   int
	Format   AttributeFormat
}

// DrawCall is one draw submitted to a Pass.
type DrawCall struct {
	Mode        Mode
	Streams     []VertexStream
	Attributes  []AttributeBinding
	Indices     DeviceBuffer // nil for non-indexed draws
	IndexFormat IndexFormat
	First       int // first vertex, or first index when indexed
	Count       int
	Instances   int
}

// ClearPolicy selects what is cleared when a target is bound. The zero
// value preserves the target contents.
type ClearPolicy struct {
	ClearColor   bool
	Color        mgl32.Vec4
	ClearDepth   bool
	Depth        float32
	ClearStencil bool
	Stencil      uint8
}

// ClearTo clears color to c, depth to 1 and stencil to 0.
func ClearTo(c mgl32.Vec4) ClearPolicy {
	return ClearPolicy{
		ClearColor:   true,
		Color:        c,
		ClearDepth:   true,
		Depth:        1,
		ClearStencil: true,
	}
}

// Caps describes what a device supports.
type Caps struct {
	Name                string
	PixelFormats        []PixelFormat
	Modes               []Mode
	MaxTextureSize      int
	MaxTextureUnits     int
	MaxColorAttachments int
	Float64Uniforms     bool
	BackBufferFormat    PixelFormat
}

// SupportsFormat reports whether f can be used for textures and attachments.
func (c Caps) SupportsFormat(f PixelFormat) bool { return slices.Contains(c.PixelFormats, f) }

// SupportsMode reports whether m can be used for tessellations.
func (c Caps) SupportsMode(m Mode) bool { return slices.Contains(c.Modes, m) }
