// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen"
)

var (
	_ lumen.DeviceBuffer      = (*buffer)(nil)
	_ lumen.DeviceTexture     = (*texture)(nil)
	_ lumen.DeviceFramebuffer = (*framebuffer)(nil)
)

// copyRowAlignment is the row pitch alignment of texture to buffer copies.
const copyRowAlignment = 256

var errSurfaceRead = errors.New("wgpu: the surface back buffer cannot be read")

// buffer is a vertex or index buffer. A CPU copy of the contents lets
// unaligned writes be widened to the 4-byte granularity of WriteBuffer.
type buffer struct {
	dev    *Device
	buf    hal.Buffer
	shadow []byte
}

// CreateBuffer implements lumen.Device.
func (d *Device) CreateBuffer(desc *lumen.BufferDescriptor, data []byte) (lumen.DeviceBuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	size := alignUp(max(desc.Size, 4), 4)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(size), //nolint:gosec // G115: size is positive
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	b := &buffer{dev: d, buf: buf, shadow: make([]byte, size)}
	if data != nil {
		copy(b.shadow, data)
		if err := d.queue.WriteBuffer(buf, 0, b.shadow); err != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("wgpu: upload buffer %q: %w", desc.Label, err)
		}
	}
	return b, nil
}

// Write updates data at offset, uploading the enclosing 4-byte aligned
// range.
func (b *buffer) Write(offset int, data []byte) error {
	if err := b.dev.alive(); err != nil {
		return err
	}
	copy(b.shadow[offset:], data)
	lo, hi := alignedRange(offset, len(data), len(b.shadow))
	return b.dev.queue.WriteBuffer(b.buf, uint64(lo), b.shadow[lo:hi]) //nolint:gosec // G115: offset is non-negative
}

// alignedRange widens [offset, offset+n) to 4-byte boundaries within size.
func alignedRange(offset, n, size int) (lo, hi int) {
	lo = offset &^ 3
	hi = min(alignUp(offset+n, 4), size)
	return lo, hi
}

func (b *buffer) Destroy() {
	if b.buf != nil {
		b.dev.device.DestroyBuffer(b.buf)
		b.buf = nil
	}
	b.shadow = nil
}

// texture is a 2D texture with its default view and sampler.
type texture struct {
	dev     *Device
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler // nil for depth formats
	w, h    int
	format  lumen.PixelFormat
}

// CreateTexture implements lumen.Device.
func (d *Device) CreateTexture(desc *lumen.TextureDesc) (lumen.DeviceTexture, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return d.newTexture(desc.Label, desc.Width, desc.Height, desc.Format, desc.Sampler)
}

func (d *Device) newTexture(label string, w, h int, f lumen.PixelFormat, s lumen.Sampler) (*texture, error) {
	tf, ok := textureFormat(f)
	if !ok {
		return nil, fmt.Errorf("%w: texture format %v", lumen.ErrUnsupported, f)
	}
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	if !f.IsDepth() {
		usage |= gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(w), //nolint:gosec // G115: validated by lumen
			Height:             uint32(h), //nolint:gosec // G115: validated by lumen
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        tf,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	t := &texture{dev: d, tex: tex, w: w, h: h, format: f}

	t.view, err = d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        tf,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.Destroy()
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", label, err)
	}
	if !f.IsDepth() {
		t.sampler, err = d.device.CreateSampler(samplerDescriptor(label+"_sampler", s))
		if err != nil {
			t.Destroy()
			return nil, fmt.Errorf("wgpu: create sampler %q: %w", label, err)
		}
	}
	return t, nil
}

// Write uploads texels of r. Depth formats are not copy destinations in
// WebGPU; clear them through a pass instead.
func (t *texture) Write(r lumen.Region, data []byte) error {
	if err := t.dev.alive(); err != nil {
		return err
	}
	if t.format.IsDepth() {
		return fmt.Errorf("%w: writing texels of %v", lumen.ErrUnsupported, t.format)
	}
	return t.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(r.X), Y: uint32(r.Y)}, //nolint:gosec // G115: region is within the texture
		},
		data,
		&hal.ImageDataLayout{
			BytesPerRow:  uint32(r.Width * t.format.BytesPerPixel()), //nolint:gosec // G115: region is within the texture
			RowsPerImage: uint32(r.Height),                           //nolint:gosec // G115: region is within the texture
		},
		&hal.Extent3D{Width: uint32(r.Width), Height: uint32(r.Height), DepthOrArrayLayers: 1}, //nolint:gosec // G115: region is within the texture
	)
}

func (t *texture) Destroy() {
	d := t.dev.device
	if t.sampler != nil {
		d.DestroySampler(t.sampler)
		t.sampler = nil
	}
	if t.view != nil {
		d.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		d.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// framebuffer is a set of attachments. The textures belong to their lumen
// handles, except for the offscreen back buffer.
type framebuffer struct {
	dev         *Device
	w, h        int
	color       []*texture // empty for the surface back buffer
	views       []hal.TextureView
	formats     []lumen.PixelFormat
	depth       *texture
	depthFormat lumen.PixelFormat
	screen      bool
	ownsColor   bool
}

// CreateFramebuffer implements lumen.Device.
func (d *Device) CreateFramebuffer(desc *lumen.FramebufferDescriptor) (lumen.DeviceFramebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	fb := &framebuffer{dev: d, w: desc.Width, h: desc.Height, formats: desc.Formats}
	for i, ct := range desc.Color {
		t, ok := ct.(*texture)
		if !ok {
			return nil, fmt.Errorf("wgpu: color attachment %d is %T, not a wgpu texture", i, ct)
		}
		fb.color = append(fb.color, t)
		fb.views = append(fb.views, t.view)
	}
	if desc.Depth != nil {
		t, ok := desc.Depth.(*texture)
		if !ok {
			return nil, fmt.Errorf("wgpu: depth attachment is %T, not a wgpu texture", desc.Depth)
		}
		fb.depth = t
		fb.depthFormat = desc.DepthFormat
	}
	return fb, nil
}

// Read copies a region of a color attachment to dst through a staging
// buffer.
func (fb *framebuffer) Read(attachment int, r lumen.Region, dst []byte) error {
	d := fb.dev
	if err := d.alive(); err != nil {
		return err
	}
	if attachment < 0 || attachment >= len(fb.views) {
		return fmt.Errorf("wgpu: no color attachment %d", attachment)
	}
	if attachment >= len(fb.color) {
		return errSurfaceRead
	}
	t := fb.color[attachment]

	bpp := t.format.BytesPerPixel()
	rowBytes := r.Width * bpp
	pitch := alignUp(rowBytes, copyRowAlignment)
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  uint64(pitch * r.Height), //nolint:gosec // G115: region is within the target
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.newEncoder("readback")
	if err != nil {
		return err
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			BytesPerRow:  uint32(pitch),    //nolint:gosec // G115: region is within the target
			RowsPerImage: uint32(r.Height), //nolint:gosec // G115: region is within the target
		},
		TextureBase: hal.ImageCopyTexture{
			Texture: t.tex,
			Origin:  hal.Origin3D{X: uint32(r.X), Y: uint32(r.Y)}, //nolint:gosec // G115: region is within the target
		},
		Size: hal.Extent3D{Width: uint32(r.Width), Height: uint32(r.Height), DepthOrArrayLayers: 1}, //nolint:gosec // G115: region is within the target
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	if err := d.submit(encoder); err != nil {
		return err
	}

	padded := make([]byte, pitch*r.Height)
	if err := d.queue.ReadBuffer(staging, 0, padded); err != nil {
		return fmt.Errorf("wgpu: read staging buffer: %w", err)
	}
	unpadRows(dst, padded, rowBytes, pitch, r.Height)
	return nil
}

// unpadRows copies rows of rowBytes from src, laid out every pitch bytes,
// into dst tightly packed.
func unpadRows(dst, src []byte, rowBytes, pitch, rows int) {
	for y := range rows {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*pitch:y*pitch+rowBytes])
	}
}

// Destroy releases nothing for user framebuffers; their attachments are
// destroyed through their own handles. The offscreen back buffer owns its
// color texture.
func (fb *framebuffer) Destroy() {
	if fb.screen {
		if fb.ownsColor && fb.dev.screen != fb {
			fb.destroyColor()
		}
		return
	}
	fb.color, fb.views, fb.depth = nil, nil, nil
}

func (fb *framebuffer) destroyColor() {
	for _, t := range fb.color {
		if t != nil {
			t.Destroy()
		}
	}
	fb.color, fb.views = nil, nil
	fb.ownsColor = false
}
