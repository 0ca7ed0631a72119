// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
)

func TestBlockLayout(t *testing.T) {
	decls := []lumen.UniformDecl{
		{Name: "t", Type: lumen.TypeFloat},
		{Name: "color", Type: lumen.TypeVec4},
		{Name: "dir", Type: lumen.TypeVec3},
		{Name: "k", Type: lumen.TypeFloat},
		{Name: "m", Type: lumen.TypeMat3},
		{Name: "tex", Type: lumen.TypeSampler2D},
		{Name: "uv", Type: lumen.TypeVec2},
		{Name: "mask", Type: lumen.TypeSampler2D},
	}
	slots, size, err := blockLayout(decls)
	if err != nil {
		t.Fatalf("blockLayout: %v", err)
	}
	want := []struct {
		offset, sampler int
	}{
		{0, -1},
		{16, -1},
		{32, -1},
		{44, -1},
		{48, -1},
		{-1, 0},
		{96, -1},
		{-1, 1},
	}
	for i, w := range want {
		if slots[i].offset != w.offset || slots[i].sampler != w.sampler {
			t.Errorf("slot %d (%s) = offset %d sampler %d, want %d %d",
				i, slots[i].name, slots[i].offset, slots[i].sampler, w.offset, w.sampler)
		}
	}
	if size != 112 {
		t.Errorf("size = %d, want 112", size)
	}
}

func TestBlockLayoutEmpty(t *testing.T) {
	slots, size, err := blockLayout([]lumen.UniformDecl{{Name: "tex", Type: lumen.TypeSampler2D}})
	if err != nil {
		t.Fatalf("blockLayout: %v", err)
	}
	if size != 0 || len(slots) != 1 {
		t.Errorf("size = %d, slots = %d; want 0, 1", size, len(slots))
	}
}

func TestBlockLayoutRejectsDoubles(t *testing.T) {
	for _, typ := range []lumen.UniformType{lumen.TypeDouble, lumen.TypeDVec3, lumen.TypeDMat4} {
		if _, _, err := blockLayout([]lumen.UniformDecl{{Name: "d", Type: typ}}); err == nil {
			t.Errorf("blockLayout(%v) succeeded", typ)
		}
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, align, want int }{
		{0, 16, 0},
		{1, 4, 4},
		{4, 4, 4},
		{17, 16, 32},
		{250, 256, 256},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestPackMat3PadsColumns(t *testing.T) {
	dst := make([]byte, 48)
	m := mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if err := pack(dst, m); err != nil {
		t.Fatalf("pack: %v", err)
	}
	want := []float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}
	for i, w := range want {
		if got := floatAt(dst, i); got != w {
			t.Errorf("word %d = %v, want %v", i, got, w)
		}
	}
}

func TestPackScalars(t *testing.T) {
	dst := make([]byte, 16)

	if err := pack(dst, true); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(dst); got != 1 {
		t.Errorf("bool true packed as %d", got)
	}

	if err := pack(dst, int32(-2)); err != nil {
		t.Fatal(err)
	}
	if got := int32(binary.LittleEndian.Uint32(dst)); got != -2 { //nolint:gosec // G115: reinterpreting bits
		t.Errorf("int32 packed as %d", got)
	}

	if err := pack(dst, mgl32.Vec4{0.5, 1, 2, 4}); err != nil {
		t.Fatal(err)
	}
	for i, w := range []float32{0.5, 1, 2, 4} {
		if got := floatAt(dst, i); got != w {
			t.Errorf("vec4[%d] = %v, want %v", i, got, w)
		}
	}

	if err := pack(dst, [3]uint32{7, 8, 9}); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(dst[8:]); got != 9 {
		t.Errorf("uvec3.z packed as %d", got)
	}
}

func TestPackRejectsUnknownValues(t *testing.T) {
	if err := pack(make([]byte, 8), float64(1)); err == nil {
		t.Error("pack(float64) succeeded")
	}
}

func TestPipelineKey(t *testing.T) {
	call := &lumen.DrawCall{
		Mode:       lumen.Triangle,
		Streams:    []lumen.VertexStream{{Stride: 8}},
		Attributes: []lumen.AttributeBinding{{Location: 0, Format: lumen.Float32x2}},
		Count:      3,
	}
	state := lumen.DefaultRenderState()
	colors := []lumen.PixelFormat{lumen.FormatRGBA8}
	base := pipelineKey(call, &state, colors, 0, false)

	same := *call
	same.First, same.Count = 3, 6
	if got := pipelineKey(&same, &state, colors, 0, false); got != base {
		t.Error("draw range changed the key")
	}

	scissored := state
	scissored.Scissor = lumen.Scissor{Enabled: true, Region: lumen.Region{Width: 4, Height: 4}}
	scissored.Stencil.Reference = 9
	if got := pipelineKey(call, &scissored, colors, 0, false); got != base {
		t.Error("dynamic state changed the key")
	}

	variants := map[string]uint64{}
	strip := *call
	strip.Mode = lumen.TriangleStrip
	variants["mode"] = pipelineKey(&strip, &state, colors, 0, false)

	blended := state
	blended.Blending = lumen.Blending{Enabled: true, Src: lumen.FactorSrcAlpha, Dst: lumen.FactorOneMinusSrcAlpha}
	variants["blend"] = pipelineKey(call, &blended, colors, 0, false)

	depth := state
	depth.Depth = lumen.DepthState{Test: true, Compare: lumen.CompareLess, Write: true}
	variants["depth"] = pipelineKey(call, &depth, colors, lumen.FormatDepth32F, true)

	variants["format"] = pipelineKey(call, &state, []lumen.PixelFormat{lumen.FormatRGBA32F}, 0, false)

	wide := *call
	wide.Streams = []lumen.VertexStream{{Stride: 16}}
	variants["stride"] = pipelineKey(&wide, &state, colors, 0, false)

	seen := map[uint64]string{base: "base"}
	for name, k := range variants {
		if prev, ok := seen[k]; ok {
			t.Errorf("%s has the same key as %s", name, prev)
		}
		seen[k] = name
	}
}
