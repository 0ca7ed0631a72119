// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
)

// Coordinate conventions follow WebGPU: normalized device coordinates have
// y up and depth in [0, 1]; texel (0, 0) is the top-left corner of the
// target.

// shaded is a vertex after the vertex stage.
type shaded struct {
	clip mgl32.Vec4
	vary []float32
}

// screenVertex is a vertex in target space. vary is divided by w for
// perspective-correct interpolation.
type screenVertex struct {
	x, y, z, invW float32
	vary          []float32
}

func (p *pass) draw(call *lumen.DrawCall) error {
	prog := p.prog
	byLocation := make(map[int]lumen.AttributeBinding, len(call.Attributes))
	for _, a := range call.Attributes {
		byLocation[a.Location] = a
	}
	uniforms := &Uniforms{prog: prog, textures: p.textures}
	instances := max(call.Instances, 1)

	verts := make([]shaded, call.Count)
	for inst := range instances {
		for k := range call.Count {
			idx, err := p.index(call, call.First+k)
			if err != nil {
				return err
			}
			v := Vertex{
				VertexIndex:   idx,
				InstanceIndex: inst,
				Inputs:        make([]mgl32.Vec4, len(prog.inputs)),
				Uniforms:      uniforms,
				Position:      mgl32.Vec4{0, 0, 0, 1},
				Varyings:      make([]float32, prog.vertex.Varyings),
			}
			for loc := range v.Inputs {
				v.Inputs[loc] = mgl32.Vec4{0, 0, 0, 1}
				b, ok := byLocation[loc]
				if !ok {
					continue
				}
				in, err := fetch(call, b, idx)
				if err != nil {
					return err
				}
				v.Inputs[loc] = in
			}
			prog.vertex.Main(&v)
			verts[k] = shaded{clip: v.Position, vary: v.Varyings}
		}
		p.dev.stats.Primitives += uint64(p.assemble(call.Mode, verts)) //nolint:gosec // G115: count is non-negative
	}
	return nil
}

func (p *pass) index(call *lumen.DrawCall, k int) (int, error) {
	if call.Indices == nil {
		return k, nil
	}
	buf, ok := call.Indices.(*buffer)
	if !ok {
		return 0, fmt.Errorf("soft: index buffer is %T, not a soft buffer", call.Indices)
	}
	size := call.IndexFormat.Size()
	off := k * size
	if size == 0 || off+size > len(buf.data) {
		return 0, fmt.Errorf("%w: index %d outside index buffer", lumen.ErrOutOfBounds, k)
	}
	if size == 2 {
		return int(binary.LittleEndian.Uint16(buf.data[off:])), nil
	}
	return int(binary.LittleEndian.Uint32(buf.data[off:])), nil
}

// fetch reads attribute b of vertex idx.
func fetch(call *lumen.DrawCall, b lumen.AttributeBinding, idx int) (mgl32.Vec4, error) {
	stream := call.Streams[b.Stream]
	buf, ok := stream.Buffer.(*buffer)
	if !ok {
		return mgl32.Vec4{}, fmt.Errorf("soft: vertex buffer is %T, not a soft buffer", stream.Buffer)
	}
	off := idx*stream.Stride + b.Offset
	if off < 0 || off+b.Format.Size() > len(buf.data) {
		return mgl32.Vec4{}, fmt.Errorf("%w: vertex %d outside vertex buffer", lumen.ErrOutOfBounds, idx)
	}
	return decodeAttribute(b.Format, buf.data[off:]), nil
}

func decodeAttribute(f lumen.AttributeFormat, src []byte) mgl32.Vec4 {
	v := mgl32.Vec4{0, 0, 0, 1}
	switch {
	case f == lumen.Unorm8x4:
		for i := range 4 {
			v[i] = float32(src[i]) / 255
		}
	case f == lumen.Uint8x4:
		for i := range 4 {
			v[i] = float32(src[i])
		}
	case f <= lumen.Float32x4:
		for i := range f.Components() {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		}
	case f <= lumen.Sint32x4:
		for i := range f.Components() {
			v[i] = float32(int32(binary.LittleEndian.Uint32(src[i*4:]))) //nolint:gosec // G115: reinterpreting bits
		}
	default:
		for i := range f.Components() {
			v[i] = float32(binary.LittleEndian.Uint32(src[i*4:]))
		}
	}
	return v
}

// assemble splits verts into primitives and rasterizes them. It returns
// the number of primitives assembled.
func (p *pass) assemble(mode lumen.Mode, verts []shaded) int {
	n := len(verts)
	switch mode {
	case lumen.Point:
		for i := range n {
			p.point(verts[i])
		}
	case lumen.Line:
		for i := 0; i+1 < n; i += 2 {
			p.line(verts[i], verts[i+1])
		}
	case lumen.LineStrip:
		for i := 0; i+1 < n; i++ {
			p.line(verts[i], verts[i+1])
		}
	case lumen.Triangle:
		for i := 0; i+2 < n; i += 3 {
			p.triangle(verts[i], verts[i+1], verts[i+2])
		}
	case lumen.TriangleStrip:
		for i := 0; i+2 < n; i++ {
			if i%2 == 0 {
				p.triangle(verts[i], verts[i+1], verts[i+2])
			} else {
				p.triangle(verts[i+1], verts[i], verts[i+2])
			}
		}
	case lumen.TriangleFan:
		for i := 1; i+1 < n; i++ {
			p.triangle(verts[0], verts[i], verts[i+1])
		}
	}
	return mode.Primitives(n)
}

// project maps a clip-space vertex to target space. It reports false for
// vertices at or behind the eye.
func (p *pass) project(v shaded) (screenVertex, bool) {
	w := v.clip[3]
	if w <= 0 {
		return screenVertex{}, false
	}
	invW := 1 / w
	sv := screenVertex{
		x:    (v.clip[0]*invW + 1) / 2 * float32(p.fb.w),
		y:    (1 - v.clip[1]*invW) / 2 * float32(p.fb.h),
		z:    v.clip[2] * invW,
		invW: invW,
		vary: make([]float32, len(v.vary)),
	}
	for i, a := range v.vary {
		sv.vary[i] = a * invW
	}
	return sv, true
}

func (p *pass) point(v shaded) {
	sv, ok := p.project(v)
	if !ok {
		return
	}
	x := int(math.Floor(float64(sv.x)))
	y := int(math.Floor(float64(sv.y)))
	p.fragment(x, y, sv.z, sv.invW, v.vary, true)
}

// line draws a one pixel wide line with a DDA walk. The last pixel is
// left out so strips do not draw shared vertices twice.
func (p *pass) line(v0, v1 shaded) {
	a, ok0 := p.project(v0)
	b, ok1 := p.project(v1)
	if !ok0 || !ok1 {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(float64(max(abs32(dx), abs32(dy)))))
	if steps == 0 {
		steps = 1
	}
	vary := make([]float32, len(a.vary))
	for i := range steps {
		t := float32(i) / float32(steps)
		x := int(math.Floor(float64(a.x + dx*t)))
		y := int(math.Floor(float64(a.y + dy*t)))
		z := a.z + (b.z-a.z)*t
		invW := a.invW + (b.invW-a.invW)*t
		for j := range vary {
			vary[j] = (a.vary[j] + (b.vary[j]-a.vary[j])*t) / invW
		}
		p.fragment(x, y, z, invW, vary, true)
	}
}

// edge is twice the signed area of (a, b, c) in target space.
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// topLeft reports whether edge a->b is a top or left edge of a triangle
// with positive area.
func topLeft(a, b *screenVertex) bool {
	return (a.y == b.y && b.x > a.x) || b.y < a.y
}

func (p *pass) triangle(v0, v1, v2 shaded) {
	a, ok0 := p.project(v0)
	b, ok1 := p.project(v1)
	c, ok2 := p.project(v2)
	if !ok0 || !ok1 || !ok2 {
		return
	}
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return
	}

	// Target y points down, so counter-clockwise in NDC is negative area.
	ccw := area < 0
	cull := p.state.Culling
	front := ccw == (cull.Order == lumen.OrderCCW)
	if cull.Enabled {
		switch cull.Face {
		case lumen.FaceFrontAndBack:
			return
		case lumen.FaceFront:
			if front {
				return
			}
		case lumen.FaceBack:
			if !front {
				return
			}
		}
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}

	minX := max(0, int(math.Floor(float64(min(a.x, b.x, c.x)))))
	maxX := min(p.fb.w-1, int(math.Ceil(float64(max(a.x, b.x, c.x)))))
	minY := max(0, int(math.Floor(float64(min(a.y, b.y, c.y)))))
	maxY := min(p.fb.h-1, int(math.Ceil(float64(max(a.y, b.y, c.y)))))

	biasA, biasB, biasC := topLeft(&b, &c), topLeft(&c, &a), topLeft(&a, &b)
	vary := make([]float32, len(a.vary))
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py)
			w1 := edge(c.x, c.y, a.x, a.y, px, py)
			w2 := edge(a.x, a.y, b.x, b.y, px, py)
			if !inside(w0, biasA) || !inside(w1, biasB) || !inside(w2, biasC) {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			z := l0*a.z + l1*b.z + l2*c.z
			invW := l0*a.invW + l1*b.invW + l2*c.invW
			for j := range vary {
				vary[j] = (l0*a.vary[j] + l1*b.vary[j] + l2*c.vary[j]) / invW
			}
			p.fragment(x, y, z, invW, vary, front)
		}
	}
}

func inside(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
