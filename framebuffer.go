// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"fmt"
	"image"
)

// Attachment is one framebuffer attachment: either a format, for which
// the framebuffer creates a texture of its own size, or an existing
// texture whose ownership moves to the framebuffer.
type Attachment struct {
	Format  PixelFormat
	Sampler Sampler
	Texture *Texture
}

// FramebufferDesc describes an offscreen render target. A framebuffer
// without color attachments is a depth-only target.
type FramebufferDesc struct {
	Label  string
	Width  int
	Height int
	Color  []Attachment
	Depth  *Attachment
}

// Framebuffer is a render target: the screen back buffer or a set of
// textures sharing one size.
type Framebuffer struct {
	resource
	label  string
	width  int
	height int
	color  []*Texture
	depth  *Texture
	dev    DeviceFramebuffer
	screen bool
	format PixelFormat // back buffer color format
}

// NewFramebuffer creates an offscreen target. Attached textures whose size
// differs from Width×Height fail with [ErrTargetMismatch] before anything
// is allocated.
func NewFramebuffer(ctx *Context, desc FramebufferDesc) (*Framebuffer, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: framebuffer size %dx%d", ErrResourceCreationFailed, desc.Width, desc.Height)
	}
	if len(desc.Color) == 0 && desc.Depth == nil {
		return nil, fmt.Errorf("%w: framebuffer has no attachments", ErrResourceCreationFailed)
	}
	if n := ctx.caps.MaxColorAttachments; len(desc.Color) > n {
		return nil, fmt.Errorf("%w: %d color attachments, device allows %d", ErrUnsupported, len(desc.Color), n)
	}

	// Validate everything before allocating anything.
	seen := make(map[*Texture]bool, len(desc.Color)+1)
	claim := func(a Attachment) error {
		if a.Texture == nil {
			return nil
		}
		if seen[a.Texture] {
			return fmt.Errorf("%w: texture %q is attached twice", ErrResourceCreationFailed, a.Texture.desc.Label)
		}
		seen[a.Texture] = true
		return nil
	}
	for i, a := range desc.Color {
		if err := ctx.checkAttachment(&desc, a, false); err != nil {
			return nil, fmt.Errorf("color attachment %d: %w", i, err)
		}
		if err := claim(a); err != nil {
			return nil, fmt.Errorf("color attachment %d: %w", i, err)
		}
	}
	if desc.Depth != nil {
		if err := ctx.checkAttachment(&desc, *desc.Depth, true); err != nil {
			return nil, fmt.Errorf("depth attachment: %w", err)
		}
		if err := claim(*desc.Depth); err != nil {
			return nil, fmt.Errorf("depth attachment: %w", err)
		}
	}

	var created []*Texture
	cleanup := func() {
		for _, t := range created {
			t.releaseResource()
		}
	}
	attach := func(a Attachment, name string) (*Texture, error) {
		if a.Texture != nil {
			return a.Texture, nil
		}
		t, err := newTexture(ctx, TextureDesc{
			Label:   desc.Label + "." + name,
			Width:   desc.Width,
			Height:  desc.Height,
			Format:  a.Format,
			Sampler: a.Sampler,
		}, nil)
		if err != nil {
			return nil, err
		}
		created = append(created, t)
		return t, nil
	}

	fb := &Framebuffer{label: desc.Label, width: desc.Width, height: desc.Height}
	dd := FramebufferDescriptor{Label: desc.Label, Width: desc.Width, Height: desc.Height}
	for i, a := range desc.Color {
		t, err := attach(a, fmt.Sprintf("color%d", i))
		if err != nil {
			cleanup()
			return nil, err
		}
		fb.color = append(fb.color, t)
		dd.Color = append(dd.Color, t.dev)
		dd.Formats = append(dd.Formats, t.desc.Format)
	}
	if desc.Depth != nil {
		t, err := attach(*desc.Depth, "depth")
		if err != nil {
			cleanup()
			return nil, err
		}
		fb.depth = t
		dd.Depth = t.dev
		dd.DepthFormat = t.desc.Format
	}

	dfb, err := ctx.dev.CreateFramebuffer(&dd)
	if err != nil {
		cleanup()
		return nil, ctx.createErr("framebuffer", err)
	}
	fb.dev = dfb
	fb.ctx = ctx
	fb.h = ctx.table.alloc(kindFramebuffer, desc.Label, dfb.Destroy)
	for _, t := range fb.attachments() {
		t.owner = fb
	}
	ctx.logger().Debug("lumen: framebuffer created", "label", desc.Label,
		"width", desc.Width, "height", desc.Height, "color", len(fb.color), "depth", fb.depth != nil)
	return fb, nil
}

func (c *Context) checkAttachment(desc *FramebufferDesc, a Attachment, depth bool) error {
	format := a.Format
	if t := a.Texture; t != nil {
		if err := t.check(c); err != nil {
			return err
		}
		if t.owner != nil {
			return fmt.Errorf("%w: texture %q is already attached", ErrResourceCreationFailed, t.desc.Label)
		}
		if t.desc.Width != desc.Width || t.desc.Height != desc.Height {
			return fmt.Errorf("%w: texture is %dx%d, framebuffer is %dx%d",
				ErrTargetMismatch, t.desc.Width, t.desc.Height, desc.Width, desc.Height)
		}
		format = t.desc.Format
	} else if !format.Valid() || !c.caps.SupportsFormat(format) {
		return fmt.Errorf("%w: pixel format %v", ErrUnsupported, format)
	}
	if format.IsDepth() != depth {
		return fmt.Errorf("%w: format %v in the wrong attachment slot", ErrResourceCreationFailed, format)
	}
	return nil
}

// BackBuffer returns the screen target for a surface of the given size.
// The windowing layer owns the surface; lumen only draws into it.
func (c *Context) BackBuffer(width, height int) (*Framebuffer, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: back buffer size %dx%d", ErrResourceCreationFailed, width, height)
	}
	dfb, err := c.dev.BackBuffer(width, height)
	if err != nil {
		return nil, c.createErr("back buffer", err)
	}
	fb := &Framebuffer{
		label:  "backbuffer",
		width:  width,
		height: height,
		dev:    dfb,
		screen: true,
		format: c.caps.BackBufferFormat,
	}
	fb.ctx = c
	fb.h = c.table.alloc(kindFramebuffer, fb.label, dfb.Destroy)
	return fb, nil
}

func (fb *Framebuffer) attachments() []*Texture {
	ts := append([]*Texture(nil), fb.color...)
	if fb.depth != nil {
		ts = append(ts, fb.depth)
	}
	return ts
}

func (fb *Framebuffer) attached(t *Texture) bool {
	return t != nil && t.owner == fb
}

// Size returns the target dimensions.
func (fb *Framebuffer) Size() (width, height int) { return fb.width, fb.height }

// IsBackBuffer reports whether fb is the screen target.
func (fb *Framebuffer) IsBackBuffer() bool { return fb.screen }

// ColorCount returns the number of color attachments.
func (fb *Framebuffer) ColorCount() int {
	if fb.screen {
		return 1
	}
	return len(fb.color)
}

// Color returns color attachment i, or nil. The texture can be bound as a
// shader input by pipelines that do not target fb.
func (fb *Framebuffer) Color(i int) *Texture {
	if i < 0 || i >= len(fb.color) {
		return nil
	}
	return fb.color[i]
}

// Depth returns the depth attachment, or nil.
func (fb *Framebuffer) Depth() *Texture { return fb.depth }

func (fb *Framebuffer) colorFormat(i int) (PixelFormat, bool) {
	if fb.screen {
		return fb.format, i == 0
	}
	if i < 0 || i >= len(fb.color) {
		return 0, false
	}
	return fb.color[i].desc.Format, true
}

// ReadPixels copies region r of color attachment i into dst. dst must be
// exactly r.Width*r.Height*BytesPerPixel bytes; rows are tightly packed,
// top row first. ReadPixels is for inspection and export, not per-frame
// use, and fails with [ErrContextBusy] while a pipeline runs.
func (fb *Framebuffer) ReadPixels(i int, r Region, dst []byte) error {
	c := fb.ctx
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	if err := fb.check(c); err != nil {
		return err
	}
	format, ok := fb.colorFormat(i)
	if !ok {
		return fmt.Errorf("%w: color attachment %d of %d", ErrOutOfBounds, i, fb.ColorCount())
	}
	if r.Empty() || !r.Within(fb.width, fb.height) {
		return fmt.Errorf("%w: region %v outside %dx%d target", ErrOutOfBounds, r, fb.width, fb.height)
	}
	if err := checkTexelBytes(format, r, len(dst)); err != nil {
		return err
	}
	return c.deviceErr(fb.dev.Read(i, r, dst))
}

// Image reads back color attachment i as an image. The attachment must be
// RGBA8.
func (fb *Framebuffer) Image(i int) (*image.NRGBA, error) {
	format, ok := fb.colorFormat(i)
	if !ok {
		return nil, fmt.Errorf("%w: color attachment %d of %d", ErrOutOfBounds, i, fb.ColorCount())
	}
	if format != FormatRGBA8 {
		return nil, fmt.Errorf("%w: attachment format %v is not RGBA8", ErrLayoutMismatch, format)
	}
	pix := make([]byte, fb.width*fb.height*4)
	if err := fb.ReadPixels(i, Region{Width: fb.width, Height: fb.height}, pix); err != nil {
		return nil, err
	}
	return imageFromTexels(pix, fb.width, fb.height), nil
}

// Release frees the framebuffer and every attached texture, including
// textures handed over in the descriptor.
func (fb *Framebuffer) Release() {
	if !fb.alive() {
		return
	}
	fb.releaseResource()
	for _, t := range fb.attachments() {
		t.releaseResource()
	}
}
