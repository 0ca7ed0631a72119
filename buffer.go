// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"fmt"
	"unsafe"
)

// Attribute is one named field of a vertex element.
type Attribute struct {
	Name   string
	Format AttributeFormat
	Offset int
}

// Layout is the element layout of a vertex buffer.
type Layout struct {
	Stride     int
	Attributes []Attribute
}

// Interleaved packs inputs tightly, in order, into one element.
func Interleaved(inputs ...VertexInput) Layout {
	var l Layout
	for _, in := range inputs {
		l.Attributes = append(l.Attributes, Attribute{Name: in.Name, Format: in.Format, Offset: l.Stride})
		l.Stride += in.Format.Size()
	}
	return l
}

// Attribute returns the attribute called name.
func (l Layout) Attribute(name string) (Attribute, bool) {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Inputs returns the attributes as program inputs, in order.
func (l Layout) Inputs() []VertexInput {
	in := make([]VertexInput, len(l.Attributes))
	for i, a := range l.Attributes {
		in[i] = VertexInput{Name: a.Name, Format: a.Format}
	}
	return in
}

func (l Layout) validate() error {
	if l.Stride <= 0 {
		return fmt.Errorf("%w: layout stride %d", ErrResourceCreationFailed, l.Stride)
	}
	seen := make(map[string]bool, len(l.Attributes))
	for _, a := range l.Attributes {
		if !a.Format.Valid() {
			return fmt.Errorf("%w: attribute %q format %v", ErrResourceCreationFailed, a.Name, a.Format)
		}
		if a.Name == "" || seen[a.Name] {
			return fmt.Errorf("%w: attribute name %q is empty or repeated", ErrLayoutMismatch, a.Name)
		}
		seen[a.Name] = true
		if a.Offset < 0 || a.Offset+a.Format.Size() > l.Stride {
			return fmt.Errorf("%w: attribute %q at offset %d overruns stride %d",
				ErrLayoutMismatch, a.Name, a.Offset, l.Stride)
		}
	}
	return nil
}

// BufferDesc describes a buffer. Set Index to create an index buffer, in
// which case Layout is ignored.
type BufferDesc struct {
	Label  string
	Layout Layout
	Index  IndexFormat
	Len    int // element count, fixed for the buffer's lifetime
	Usage  Usage
}

// Buffer is a fixed-length array of elements in device memory.
type Buffer struct {
	resource
	label  string
	layout Layout
	index  IndexFormat
	stride int
	length int
	usage  Usage
	dev    DeviceBuffer
}

// NewBuffer creates a buffer. data is either nil, for zero-filled storage,
// or exactly Len elements.
func NewBuffer(ctx *Context, desc BufferDesc, data []byte) (*Buffer, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()
	return newBuffer(ctx, desc, data)
}

func newBuffer(ctx *Context, desc BufferDesc, data []byte) (*Buffer, error) {
	stride := desc.Layout.Stride
	switch desc.Index {
	case IndexNone:
		if err := desc.Layout.validate(); err != nil {
			return nil, err
		}
	case IndexUint16, IndexUint32:
		stride = desc.Index.Size()
		desc.Layout = Layout{}
	default:
		return nil, fmt.Errorf("%w: index format %v", ErrResourceCreationFailed, desc.Index)
	}
	if desc.Usage > UsageStream {
		return nil, fmt.Errorf("%w: usage %v", ErrResourceCreationFailed, desc.Usage)
	}
	if desc.Len <= 0 {
		return nil, fmt.Errorf("%w: buffer length %d", ErrResourceCreationFailed, desc.Len)
	}
	size := desc.Len * stride
	if data != nil && len(data) != size {
		return nil, fmt.Errorf("%w: %d bytes for %d elements of stride %d",
			ErrLayoutMismatch, len(data), desc.Len, stride)
	}

	db, err := ctx.dev.CreateBuffer(&BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: desc.Usage,
		Index: desc.Index,
	}, data)
	if err != nil {
		return nil, ctx.createErr("buffer", err)
	}

	b := &Buffer{
		label:  desc.Label,
		layout: desc.Layout,
		index:  desc.Index,
		stride: stride,
		length: desc.Len,
		usage:  desc.Usage,
		dev:    db,
	}
	b.ctx = ctx
	b.h = ctx.table.alloc(kindBuffer, desc.Label, db.Destroy)
	ctx.logger().Debug("lumen: buffer created", "label", desc.Label, "len", desc.Len, "stride", stride)
	return b, nil
}

// NewBufferFrom creates a vertex buffer holding elems. The size of T must
// equal layout.Stride.
func NewBufferFrom[T any](ctx *Context, layout Layout, usage Usage, elems []T) (*Buffer, error) {
	b, err := elementBytes(elems, layout.Stride)
	if err != nil {
		return nil, err
	}
	return NewBuffer(ctx, BufferDesc{Layout: layout, Len: len(elems), Usage: usage}, b)
}

// NewIndexBuffer creates a 32-bit index buffer.
func NewIndexBuffer(ctx *Context, usage Usage, indices []uint32) (*Buffer, error) {
	b, _ := elementBytes(indices, 4)
	return NewBuffer(ctx, BufferDesc{Index: IndexUint32, Len: len(indices), Usage: usage}, b)
}

// NewIndexBuffer16 creates a 16-bit index buffer.
func NewIndexBuffer16(ctx *Context, usage Usage, indices []uint16) (*Buffer, error) {
	b, _ := elementBytes(indices, 2)
	return NewBuffer(ctx, BufferDesc{Index: IndexUint16, Len: len(indices), Usage: usage}, b)
}

// elementBytes views elems as raw bytes after checking the element size.
func elementBytes[T any](elems []T, stride int) ([]byte, error) {
	var zero T
	if size := int(unsafe.Sizeof(zero)); size != stride {
		return nil, fmt.Errorf("%w: element type %T is %d bytes, layout stride is %d",
			ErrLayoutMismatch, zero, size, stride)
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(elems))), len(elems)*stride), nil
}

// Len returns the number of elements.
func (b *Buffer) Len() int { return b.length }

// Stride returns the size of one element in bytes.
func (b *Buffer) Stride() int { return b.stride }

// Layout returns the element layout. It is empty for index buffers.
func (b *Buffer) Layout() Layout { return b.layout }

// IndexFormat returns the index format, or IndexNone for vertex buffers.
func (b *Buffer) IndexFormat() IndexFormat { return b.index }

// Usage returns the usage hint.
func (b *Buffer) Usage() Usage { return b.usage }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Update overwrites elements starting at element first. data must hold a
// whole number of elements that fit in the buffer.
func (b *Buffer) Update(first int, data []byte) error {
	c := b.ctx
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	return b.update(first, b.length, data)
}

// update writes data at element first, where limit is the exclusive
// element bound the write must stay under.
func (b *Buffer) update(first, limit int, data []byte) error {
	if err := b.check(b.ctx); err != nil {
		return err
	}
	if len(data)%b.stride != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of stride %d", ErrLayoutMismatch, len(data), b.stride)
	}
	n := len(data) / b.stride
	if first < 0 || first+n > limit {
		return fmt.Errorf("%w: update [%d, %d) exceeds length %d", ErrOutOfBounds, first, first+n, limit)
	}
	if n == 0 {
		return nil
	}
	return b.ctx.deviceErr(b.dev.Write(first*b.stride, data))
}

// UpdateFrom overwrites elements of b starting at first with elems.
func UpdateFrom[T any](b *Buffer, first int, elems []T) error {
	data, err := elementBytes(elems, b.stride)
	if err != nil {
		return err
	}
	return b.Update(first, data)
}

// Slice returns a view of elements [start, end). It never copies.
func (b *Buffer) Slice(start, end int) (BufferSlice, error) {
	if err := b.check(b.ctx); err != nil {
		return BufferSlice{}, err
	}
	if start < 0 || start > end || end > b.length {
		return BufferSlice{}, fmt.Errorf("%w: slice [%d, %d) of buffer length %d", ErrOutOfBounds, start, end, b.length)
	}
	return BufferSlice{buf: b, start: start, end: end}, nil
}

// Release frees the buffer. If the running pipeline borrows it, the
// storage is freed when that pipeline ends. Release is idempotent.
func (b *Buffer) Release() { b.releaseResource() }

// BufferSlice is a non-owning view [Start, End) of a Buffer. It must not be
// used after its buffer is released; doing so fails with
// [ErrResourceReleased].
type BufferSlice struct {
	buf        *Buffer
	start, end int
}

// Buffer returns the viewed buffer.
func (s BufferSlice) Buffer() *Buffer { return s.buf }

// Start returns the first element of the view.
func (s BufferSlice) Start() int { return s.start }

// End returns the element after the last one in the view.
func (s BufferSlice) End() int { return s.end }

// Len returns End - Start.
func (s BufferSlice) Len() int { return s.end - s.start }

// Valid reports whether the viewed buffer is still alive.
func (s BufferSlice) Valid() bool {
	return s.buf != nil && s.buf.alive()
}

// Update overwrites elements of the view starting at view element first.
func (s BufferSlice) Update(first int, data []byte) error {
	if s.buf == nil {
		return ErrResourceReleased
	}
	c := s.buf.ctx
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	if first < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrOutOfBounds, first)
	}
	return s.buf.update(s.start+first, s.end, data)
}
