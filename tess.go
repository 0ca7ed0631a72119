// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

// TessDesc describes a tessellation.
//
// Vertices holds one interleaved buffer or several buffers with one
// attribute each; all of them must have the same length and attribute
// names must not repeat. With no vertex buffers the tessellation is
// attributeless and draws VertexCount vertices, leaving the shader to
// derive everything from the vertex index.
type TessDesc struct {
	Label       string
	Mode        Mode
	Vertices    []*Buffer
	Indices     *Buffer // optional index buffer
	VertexCount int     // attributeless tessellations only
	Instances   int     // 0 means 1
}

// Tess is geometry ready to draw: vertex buffers, optional indices and a
// primitive mode. A Tess references its buffers; it does not own them.
type Tess struct {
	resource
	label     string
	mode      Mode
	vertices  []*Buffer
	indices   *Buffer
	vertexLen int
	instances int
}

// NewTess creates a tessellation over existing buffers.
func NewTess(ctx *Context, desc TessDesc) (*Tess, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	if !desc.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode %v", ErrInvalidValue, desc.Mode)
	}
	if !ctx.caps.SupportsMode(desc.Mode) {
		return nil, fmt.Errorf("%w: mode %v", ErrUnsupported, desc.Mode)
	}
	if desc.Instances < 0 {
		return nil, fmt.Errorf("%w: instance count %d", ErrInvalidValue, desc.Instances)
	}
	if desc.Instances == 0 {
		desc.Instances = 1
	}

	vertexLen := desc.VertexCount
	names := make(map[string]bool)
	for i, b := range desc.Vertices {
		if b == nil {
			return nil, fmt.Errorf("%w: vertex buffer %d is nil", ErrInvalidValue, i)
		}
		if err := b.check(ctx); err != nil {
			return nil, err
		}
		if b.index != IndexNone {
			return nil, fmt.Errorf("%w: vertex buffer %d is an index buffer", ErrLayoutMismatch, i)
		}
		if i == 0 {
			if desc.VertexCount != 0 && desc.VertexCount != b.length {
				return nil, fmt.Errorf("%w: vertex count %d, buffers hold %d",
					ErrLayoutMismatch, desc.VertexCount, b.length)
			}
			vertexLen = b.length
		} else if b.length != vertexLen {
			return nil, fmt.Errorf("%w: vertex buffer %d has %d elements, buffer 0 has %d",
				ErrLayoutMismatch, i, b.length, vertexLen)
		}
		for _, a := range b.layout.Attributes {
			if names[a.Name] {
				return nil, fmt.Errorf("%w: attribute %q appears in more than one buffer", ErrLayoutMismatch, a.Name)
			}
			names[a.Name] = true
		}
	}
	if len(desc.Vertices) == 0 && vertexLen <= 0 {
		return nil, fmt.Errorf("%w: attributeless tessellation needs a vertex count", ErrResourceCreationFailed)
	}
	if ix := desc.Indices; ix != nil {
		if err := ix.check(ctx); err != nil {
			return nil, err
		}
		if ix.index == IndexNone {
			return nil, fmt.Errorf("%w: index buffer %q has a vertex layout", ErrLayoutMismatch, ix.label)
		}
	}

	t := &Tess{
		label:     desc.Label,
		mode:      desc.Mode,
		vertices:  append([]*Buffer(nil), desc.Vertices...),
		indices:   desc.Indices,
		vertexLen: vertexLen,
		instances: desc.Instances,
	}
	t.ctx = ctx
	t.h = ctx.table.alloc(kindTess, desc.Label, nil)
	ctx.logger().Debug("lumen: tess created", "label", desc.Label, "mode", desc.Mode,
		"vertices", vertexLen, "indexed", desc.Indices != nil)
	return t, nil
}

// Len returns the number of elements drawn: indices when indexed,
// vertices otherwise.
func (t *Tess) Len() int {
	if t.indices != nil {
		return t.indices.length
	}
	return t.vertexLen
}

// Mode returns the primitive mode.
func (t *Tess) Mode() Mode { return t.mode }

// Instances returns the instance count.
func (t *Tess) Instances() int { return t.instances }

// Label returns the debug label.
func (t *Tess) Label() string { return t.label }

// Slice returns a view of elements [start, end). It never copies.
func (t *Tess) Slice(start, end int) (TessSlice, error) {
	if err := t.check(t.ctx); err != nil {
		return TessSlice{}, err
	}
	if start < 0 || start > end || end > t.Len() {
		return TessSlice{}, fmt.Errorf("%w: slice [%d, %d) of tess length %d", ErrOutOfBounds, start, end, t.Len())
	}
	return TessSlice{tess: t, start: start, end: end}, nil
}

// Release frees the tessellation. Its buffers are left alone.
func (t *Tess) Release() { t.releaseResource() }

func (t *Tess) drawRange() (*Tess, int, int) {
	if t == nil {
		return nil, 0, 0
	}
	return t, 0, t.Len()
}

// TessSlice is a non-owning view [Start, End) of a Tess.
type TessSlice struct {
	tess       *Tess
	start, end int
}

// Tess returns the viewed tessellation.
func (s TessSlice) Tess() *Tess { return s.tess }

// Start returns the first element of the view.
func (s TessSlice) Start() int { return s.start }

// End returns the element after the last one in the view.
func (s TessSlice) End() int { return s.end }

// Len returns End - Start.
func (s TessSlice) Len() int { return s.end - s.start }

func (s TessSlice) drawRange() (*Tess, int, int) { return s.tess, s.start, s.end }

// Renderable is geometry a pipeline can draw: a *Tess or a TessSlice.
type Renderable interface {
	drawRange() (t *Tess, start, end int)
}
