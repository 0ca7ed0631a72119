// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/lumen"
)

// pipelineKey identifies a render pipeline of one program. Everything a
// WebGPU pipeline bakes in goes into the key: the vertex layout, the
// fixed-function state and the target formats. Scissor and the stencil
// reference are dynamic and stay out.
func pipelineKey(call *lumen.DrawCall, s *lumen.RenderState, colors []lumen.PixelFormat, depth lumen.PixelFormat, hasDepth bool) uint64 {
	h := fnv.New64a()

	hashWriteUint32(h, uint32(call.Mode))
	hashWriteUint32(h, uint32(len(call.Streams))) //nolint:gosec // G115: stream count is small
	for _, st := range call.Streams {
		hashWriteUint32(h, uint32(st.Stride)) //nolint:gosec // G115: strides are small
	}
	hashWriteUint32(h, uint32(len(call.Attributes))) //nolint:gosec // G115: attribute count is small
	for _, a := range call.Attributes {
		hashWriteUint32(h, uint32(a.Location)) //nolint:gosec // G115: locations are small
		hashWriteUint32(h, uint32(a.Stream))   //nolint:gosec // G115: stream indices are small
		hashWriteUint32(h, uint32(a.Offset))   //nolint:gosec // G115: offsets are within a stride
		hashWriteUint32(h, uint32(a.Format))
	}

	b := &s.Blending
	hashWriteBool(h, b.Enabled)
	if b.Enabled {
		aeq, asrc, adst := b.Alpha()
		hashWriteBytes(h, uint8(b.Equation), uint8(b.Src), uint8(b.Dst), uint8(aeq), uint8(asrc), uint8(adst))
	}
	hashWriteBool(h, s.Depth.Test)
	if s.Depth.Test {
		hashWriteBytes(h, uint8(s.Depth.Compare))
		hashWriteBool(h, s.Depth.Write)
	}
	st := &s.Stencil
	hashWriteBool(h, st.Enabled)
	if st.Enabled {
		hashWriteBytes(h, uint8(st.Compare), st.ReadMask, st.WriteMask, uint8(st.Fail), uint8(st.DepthFail), uint8(st.Pass))
	}
	hashWriteBool(h, s.Culling.Enabled)
	hashWriteBytes(h, uint8(s.Culling.Order), uint8(s.Culling.Face), uint8(s.ColorWrite))

	hashWriteUint32(h, uint32(len(colors))) //nolint:gosec // G115: attachment count is small
	for _, f := range colors {
		hashWriteBytes(h, uint8(f))
	}
	hashWriteBool(h, hasDepth)
	if hasDepth {
		hashWriteBytes(h, uint8(depth))
	}
	return h.Sum64()
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteBytes(h hash.Hash64, vs ...uint8) {
	_, _ = h.Write(vs)
}

func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
