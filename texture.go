// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label     string
	Width     int
	Height    int
	Format    PixelFormat
	Sampler   Sampler
	MipLevels int // 0 means 1
}

// Texture is a 2D image in device memory.
type Texture struct {
	resource
	desc  TextureDesc
	dev   DeviceTexture
	owner *Framebuffer // set once attached; the framebuffer then releases it
}

// NewTexture creates a texture. data is either nil, for zeroed contents,
// or exactly Width*Height*BytesPerPixel bytes.
func NewTexture(ctx *Context, desc TextureDesc, data []byte) (*Texture, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()
	return newTexture(ctx, desc, data)
}

func (c *Context) validateTexture(desc *TextureDesc) error {
	if !desc.Format.Valid() || !c.caps.SupportsFormat(desc.Format) {
		return fmt.Errorf("%w: pixel format %v", ErrUnsupported, desc.Format)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("%w: texture size %dx%d", ErrResourceCreationFailed, desc.Width, desc.Height)
	}
	if limit := c.caps.MaxTextureSize; limit > 0 && (desc.Width > limit || desc.Height > limit) {
		return fmt.Errorf("%w: texture size %dx%d exceeds %d", ErrUnsupported, desc.Width, desc.Height, limit)
	}
	if desc.MipLevels < 0 {
		return fmt.Errorf("%w: mip levels %d", ErrResourceCreationFailed, desc.MipLevels)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if err := desc.Sampler.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrResourceCreationFailed, err)
	}
	return nil
}

func newTexture(ctx *Context, desc TextureDesc, data []byte) (*Texture, error) {
	if err := ctx.validateTexture(&desc); err != nil {
		return nil, err
	}
	full := Region{Width: desc.Width, Height: desc.Height}
	if data != nil {
		if err := checkTexelBytes(desc.Format, full, len(data)); err != nil {
			return nil, err
		}
	}

	dt, err := ctx.dev.CreateTexture(&desc)
	if err != nil {
		return nil, ctx.createErr("texture", err)
	}
	if data != nil {
		if err := dt.Write(full, data); err != nil {
			dt.Destroy()
			return nil, ctx.createErr("texture", err)
		}
	}

	t := &Texture{desc: desc, dev: dt}
	t.ctx = ctx
	t.h = ctx.table.alloc(kindTexture, desc.Label, dt.Destroy)
	ctx.logger().Debug("lumen: texture created", "label", desc.Label,
		"width", desc.Width, "height", desc.Height, "format", desc.Format)
	return t, nil
}

func checkTexelBytes(f PixelFormat, r Region, n int) error {
	if want := r.Width * r.Height * f.BytesPerPixel(); n != want {
		return fmt.Errorf("%w: %d bytes for %dx%d %v texels, want %d",
			ErrLayoutMismatch, n, r.Width, r.Height, f, want)
	}
	return nil
}

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int) { return t.desc.Width, t.desc.Height }

// Format returns the pixel format.
func (t *Texture) Format() PixelFormat { return t.desc.Format }

// Sampler returns the sampling configuration.
func (t *Texture) Sampler() Sampler { return t.desc.Sampler }

// Label returns the debug label.
func (t *Texture) Label() string { return t.desc.Label }

// Upload replaces the whole image. data must be exactly
// Width*Height*BytesPerPixel bytes.
func (t *Texture) Upload(data []byte) error {
	return t.UploadRegion(Region{Width: t.desc.Width, Height: t.desc.Height}, data)
}

// UploadRegion replaces the texels of r.
func (t *Texture) UploadRegion(r Region, data []byte) error {
	c := t.ctx
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	if err := t.check(c); err != nil {
		return err
	}
	if !r.Within(t.desc.Width, t.desc.Height) {
		return fmt.Errorf("%w: region %v outside %dx%d texture", ErrOutOfBounds, r, t.desc.Width, t.desc.Height)
	}
	if err := checkTexelBytes(t.desc.Format, r, len(data)); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	return c.deviceErr(t.dev.Write(r, data))
}

// Release frees the texture. A texture attached to a framebuffer is owned
// by it and is released with it; Release on such a texture does nothing.
func (t *Texture) Release() {
	if t.owner != nil {
		t.ctx.logger().Warn("lumen: release of attached texture ignored", "label", t.desc.Label)
		return
	}
	t.releaseResource()
}
