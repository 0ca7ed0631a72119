// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen"
)

// textureFormat maps a lumen pixel format to its WebGPU format. It reports
// false for formats WebGPU cannot store.
func textureFormat(f lumen.PixelFormat) (gputypes.TextureFormat, bool) {
	switch f {
	case lumen.FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm, true
	case lumen.FormatRG8:
		return gputypes.TextureFormatRG8Unorm, true
	case lumen.FormatR8:
		return gputypes.TextureFormatR8Unorm, true
	case lumen.FormatRGBA32F:
		return gputypes.TextureFormatRGBA32Float, true
	case lumen.FormatRG32F:
		return gputypes.TextureFormatRG32Float, true
	case lumen.FormatR32F:
		return gputypes.TextureFormatR32Float, true
	case lumen.FormatDepth32F:
		return gputypes.TextureFormatDepth32Float, true
	case lumen.FormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// supportedFormats lists the pixel formats textureFormat accepts.
var supportedFormats = []lumen.PixelFormat{
	lumen.FormatRGBA8, lumen.FormatRG8, lumen.FormatR8,
	lumen.FormatRGBA32F, lumen.FormatRG32F, lumen.FormatR32F,
	lumen.FormatDepth32F, lumen.FormatDepth24Stencil8,
}

func vertexFormat(f lumen.AttributeFormat) gputypes.VertexFormat {
	switch f {
	case lumen.Float32:
		return gputypes.VertexFormatFloat32
	case lumen.Float32x2:
		return gputypes.VertexFormatFloat32x2
	case lumen.Float32x3:
		return gputypes.VertexFormatFloat32x3
	case lumen.Float32x4:
		return gputypes.VertexFormatFloat32x4
	case lumen.Sint32:
		return gputypes.VertexFormatSint32
	case lumen.Sint32x2:
		return gputypes.VertexFormatSint32x2
	case lumen.Sint32x3:
		return gputypes.VertexFormatSint32x3
	case lumen.Sint32x4:
		return gputypes.VertexFormatSint32x4
	case lumen.Uint32:
		return gputypes.VertexFormatUint32
	case lumen.Uint32x2:
		return gputypes.VertexFormatUint32x2
	case lumen.Uint32x3:
		return gputypes.VertexFormatUint32x3
	case lumen.Uint32x4:
		return gputypes.VertexFormatUint32x4
	case lumen.Unorm8x4:
		return gputypes.VertexFormatUnorm8x4
	default:
		return gputypes.VertexFormatUint8x4
	}
}

func indexFormat(f lumen.IndexFormat) gputypes.IndexFormat {
	if f == lumen.IndexUint16 {
		return gputypes.IndexFormatUint16
	}
	return gputypes.IndexFormatUint32
}

// topology maps a primitive mode. TriangleFan has no WebGPU equivalent and
// is not in Caps.Modes.
func topology(m lumen.Mode) gputypes.PrimitiveTopology {
	switch m {
	case lumen.Point:
		return gputypes.PrimitiveTopologyPointList
	case lumen.Line:
		return gputypes.PrimitiveTopologyLineList
	case lumen.LineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case lumen.TriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

func compareFunction(c lumen.Comparison) gputypes.CompareFunction {
	switch c {
	case lumen.CompareNever:
		return gputypes.CompareFunctionNever
	case lumen.CompareEqual:
		return gputypes.CompareFunctionEqual
	case lumen.CompareNotEqual:
		return gputypes.CompareFunctionNotEqual
	case lumen.CompareLess:
		return gputypes.CompareFunctionLess
	case lumen.CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	case lumen.CompareGreater:
		return gputypes.CompareFunctionGreater
	case lumen.CompareGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

func stencilOperation(op lumen.StencilOp) hal.StencilOperation {
	switch op {
	case lumen.StencilZero:
		return hal.StencilOperationZero
	case lumen.StencilReplace:
		return hal.StencilOperationReplace
	case lumen.StencilIncrement:
		return hal.StencilOperationIncrementClamp
	case lumen.StencilDecrement:
		return hal.StencilOperationDecrementClamp
	case lumen.StencilInvert:
		return hal.StencilOperationInvert
	case lumen.StencilIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case lumen.StencilDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

func blendFactor(f lumen.Factor) gputypes.BlendFactor {
	switch f {
	case lumen.FactorZero:
		return gputypes.BlendFactorZero
	case lumen.FactorSrcColor:
		return gputypes.BlendFactorSrc
	case lumen.FactorOneMinusSrcColor:
		return gputypes.BlendFactorOneMinusSrc
	case lumen.FactorDstColor:
		return gputypes.BlendFactorDst
	case lumen.FactorOneMinusDstColor:
		return gputypes.BlendFactorOneMinusDst
	case lumen.FactorSrcAlpha:
		return gputypes.BlendFactorSrcAlpha
	case lumen.FactorOneMinusSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	case lumen.FactorDstAlpha:
		return gputypes.BlendFactorDstAlpha
	case lumen.FactorOneMinusDstAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha
	case lumen.FactorSrcAlphaSaturated:
		return gputypes.BlendFactorSrcAlphaSaturated
	default:
		return gputypes.BlendFactorOne
	}
}

func blendOperation(e lumen.Equation) gputypes.BlendOperation {
	switch e {
	case lumen.EquationSubtract:
		return gputypes.BlendOperationSubtract
	case lumen.EquationReverseSubtract:
		return gputypes.BlendOperationReverseSubtract
	case lumen.EquationMin:
		return gputypes.BlendOperationMin
	case lumen.EquationMax:
		return gputypes.BlendOperationMax
	default:
		return gputypes.BlendOperationAdd
	}
}

// blendState returns nil when blending is off, which replaces the
// destination.
func blendState(b *lumen.Blending) *gputypes.BlendState {
	if !b.Enabled {
		return nil
	}
	aeq, asrc, adst := b.Alpha()
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: blendFactor(b.Src),
			DstFactor: blendFactor(b.Dst),
			Operation: blendOperation(b.Equation),
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: blendFactor(asrc),
			DstFactor: blendFactor(adst),
			Operation: blendOperation(aeq),
		},
	}
}

func writeMask(m lumen.ColorMask) gputypes.ColorWriteMask {
	var w gputypes.ColorWriteMask
	if m&lumen.MaskRed != 0 {
		w |= gputypes.ColorWriteMaskRed
	}
	if m&lumen.MaskGreen != 0 {
		w |= gputypes.ColorWriteMaskGreen
	}
	if m&lumen.MaskBlue != 0 {
		w |= gputypes.ColorWriteMaskBlue
	}
	if m&lumen.MaskAlpha != 0 {
		w |= gputypes.ColorWriteMaskAlpha
	}
	return w
}

// primitiveState maps culling. Culling both faces has no WebGPU
// equivalent; the pass skips those draws instead.
func primitiveState(m lumen.Mode, c lumen.Culling) gputypes.PrimitiveState {
	ps := gputypes.PrimitiveState{
		Topology:  topology(m),
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeNone,
	}
	if c.Order == lumen.OrderCW {
		ps.FrontFace = gputypes.FrontFaceCW
	}
	if c.Enabled {
		switch c.Face {
		case lumen.FaceFront:
			ps.CullMode = gputypes.CullModeFront
		case lumen.FaceBack:
			ps.CullMode = gputypes.CullModeBack
		}
	}
	return ps
}

// depthStencilState returns nil for targets without a depth attachment.
func depthStencilState(format lumen.PixelFormat, s *lumen.RenderState) *hal.DepthStencilState {
	tf, ok := textureFormat(format)
	if !ok || !format.IsDepth() {
		return nil
	}
	ds := &hal.DepthStencilState{
		Format:       tf,
		DepthCompare: gputypes.CompareFunctionAlways,
		StencilFront: keepFace(),
		StencilBack:  keepFace(),
	}
	if s.Depth.Test {
		ds.DepthCompare = compareFunction(s.Depth.Compare)
		ds.DepthWriteEnabled = s.Depth.Write
	}
	if st := &s.Stencil; st.Enabled && format.HasStencil() {
		face := hal.StencilFaceState{
			Compare:     compareFunction(st.Compare),
			FailOp:      stencilOperation(st.Fail),
			DepthFailOp: stencilOperation(st.DepthFail),
			PassOp:      stencilOperation(st.Pass),
		}
		ds.StencilFront = face
		ds.StencilBack = face
		ds.StencilReadMask = uint32(st.ReadMask)
		ds.StencilWriteMask = uint32(st.WriteMask)
	}
	return ds
}

func keepFace() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

func addressMode(w lumen.Wrap) gputypes.AddressMode {
	switch w {
	case lumen.WrapRepeat:
		return gputypes.AddressModeRepeat
	case lumen.WrapMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func filterMode(f lumen.Filter) gputypes.FilterMode {
	if f == lumen.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func samplerDescriptor(label string, s lumen.Sampler) *hal.SamplerDescriptor {
	return &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: addressMode(s.WrapS),
		AddressModeV: addressMode(s.WrapT),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filterMode(s.MagFilter),
		MinFilter:    filterMode(s.MinFilter),
		MipmapFilter: gputypes.FilterModeNearest,
	}
}

func clearColor(c mgl32.Vec4) gputypes.Color {
	return gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}
