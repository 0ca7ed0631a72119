// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
)

// slot is where one uniform lives: a byte range of the uniform block, or
// a texture/sampler binding pair for sampler2D.
type slot struct {
	name    string
	typ     lumen.UniformType
	offset  int // in the uniform block; -1 for samplers
	sampler int // index among sampler uniforms; -1 otherwise
}

// wgslLayout returns the size and alignment of t in the uniform address
// space.
func wgslLayout(t lumen.UniformType) (size, align int) {
	switch t {
	case lumen.TypeInt, lumen.TypeUint, lumen.TypeFloat, lumen.TypeBool:
		return 4, 4
	case lumen.TypeInt2, lumen.TypeUint2, lumen.TypeVec2:
		return 8, 8
	case lumen.TypeInt3, lumen.TypeUint3, lumen.TypeVec3:
		return 12, 16
	case lumen.TypeInt4, lumen.TypeUint4, lumen.TypeVec4:
		return 16, 16
	case lumen.TypeMat2:
		return 16, 8
	case lumen.TypeMat3:
		return 48, 16
	case lumen.TypeMat4:
		return 64, 16
	default:
		return 0, 0
	}
}

// blockLayout assigns slots to decls in order and returns the uniform
// block size, rounded up to 16 bytes. Double precision types have no
// layout and fail.
func blockLayout(decls []lumen.UniformDecl) ([]slot, int, error) {
	slots := make([]slot, 0, len(decls))
	size, samplers := 0, 0
	for _, d := range decls {
		s := slot{name: d.Name, typ: d.Type, offset: -1, sampler: -1}
		if d.Type == lumen.TypeSampler2D {
			s.sampler = samplers
			samplers++
			slots = append(slots, s)
			continue
		}
		n, align := wgslLayout(d.Type)
		if n == 0 {
			return nil, 0, fmt.Errorf("uniform %q: type %v has no WGSL uniform layout", d.Name, d.Type)
		}
		size = alignUp(size, align)
		s.offset = size
		size += n
		slots = append(slots, s)
	}
	return slots, alignUp(size, 16), nil
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// pack encodes value into dst using the uniform address space layout.
func pack(dst []byte, value any) error {
	switch v := value.(type) {
	case int32:
		putInts(dst, v)
	case [2]int32:
		putInts(dst, v[:]...)
	case [3]int32:
		putInts(dst, v[:]...)
	case [4]int32:
		putInts(dst, v[:]...)
	case uint32:
		putUints(dst, v)
	case [2]uint32:
		putUints(dst, v[:]...)
	case [3]uint32:
		putUints(dst, v[:]...)
	case [4]uint32:
		putUints(dst, v[:]...)
	case bool:
		var b uint32
		if v {
			b = 1
		}
		putUints(dst, b)
	case float32:
		putFloats(dst, v)
	case mgl32.Vec2:
		putFloats(dst, v[:]...)
	case mgl32.Vec3:
		putFloats(dst, v[:]...)
	case mgl32.Vec4:
		putFloats(dst, v[:]...)
	case mgl32.Mat2:
		putFloats(dst, v[:]...)
	case mgl32.Mat3:
		// Each column is padded to a vec4.
		for c := range 3 {
			putFloats(dst[c*16:], v[c*3:c*3+3]...)
		}
	case mgl32.Mat4:
		putFloats(dst, v[:]...)
	default:
		return fmt.Errorf("wgpu: cannot pack uniform value of type %T", value)
	}
	return nil
}

func putFloats(dst []byte, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func putInts(dst []byte, vs ...int32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(v)) //nolint:gosec // G115: reinterpreting bits
	}
}

func putUints(dst []byte, vs ...uint32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], v)
	}
}
