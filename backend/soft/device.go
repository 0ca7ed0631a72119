// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/lumen"
	"github.com/gogpu/lumen/backend"
)

func init() {
	backend.Register(backend.Soft, func() (lumen.Device, error) {
		return New(Config{}), nil
	})
}

// Config configures a software device. Zero fields take defaults.
type Config struct {
	Name                string // default "soft"
	MaxTextureSize      int    // default 4096
	MaxTextureUnits     int    // default 8
	MaxColorAttachments int    // default 4
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "soft"
	}
	if c.MaxTextureSize <= 0 {
		c.MaxTextureSize = 4096
	}
	if c.MaxTextureUnits <= 0 {
		c.MaxTextureUnits = 8
	}
	if c.MaxColorAttachments <= 0 {
		c.MaxColorAttachments = 4
	}
	return c
}

// Stats counts the work done by a device.
type Stats struct {
	Passes     uint64
	Draws      uint64
	Primitives uint64
	Fragments  uint64 // fragments that reached the color write
}

// Device is a CPU implementation of lumen.Device.
type Device struct {
	cfg    Config
	lost   atomic.Bool
	logger atomic.Pointer[slog.Logger]
	screen *framebuffer
	stats  Stats
}

var errLost = fmt.Errorf("%w: soft device lost", lumen.ErrContextLost)

// New creates a software device.
func New(cfg Config) *Device {
	d := &Device{cfg: cfg.withDefaults()}
	d.logger.Store(lumen.Logger())
	return d
}

// SetLogger sets the device logger. lumen calls it when the device is
// handed to a Context.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = lumen.Logger()
	}
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger { return d.logger.Load() }

// Lose simulates a device reset. Every later call fails with an error
// wrapping lumen.ErrContextLost.
func (d *Device) Lose() {
	if d.lost.CompareAndSwap(false, true) {
		d.log().Warn("soft: device lost")
	}
}

func (d *Device) alive() error {
	if d.lost.Load() {
		return errLost
	}
	return nil
}

// Stats returns the work counters.
func (d *Device) Stats() Stats { return d.stats }

// Screen returns a copy of the back buffer, or nil before the first call
// to BackBuffer.
func (d *Device) Screen() *image.NRGBA {
	if d.screen == nil {
		return nil
	}
	t := d.screen.color[0]
	img := image.NewNRGBA(image.Rect(0, 0, t.w, t.h))
	copy(img.Pix, t.data)
	return img
}

// Caps implements lumen.Device.
func (d *Device) Caps() lumen.Caps {
	return lumen.Caps{
		Name: d.cfg.Name,
		PixelFormats: []lumen.PixelFormat{
			lumen.FormatRGBA8, lumen.FormatRGB8, lumen.FormatRG8, lumen.FormatR8,
			lumen.FormatRGBA32F, lumen.FormatRGB32F, lumen.FormatRG32F, lumen.FormatR32F,
			lumen.FormatDepth32F, lumen.FormatDepth24Stencil8,
		},
		Modes: []lumen.Mode{
			lumen.Point, lumen.Line, lumen.LineStrip,
			lumen.Triangle, lumen.TriangleStrip, lumen.TriangleFan,
		},
		MaxTextureSize:      d.cfg.MaxTextureSize,
		MaxTextureUnits:     d.cfg.MaxTextureUnits,
		MaxColorAttachments: d.cfg.MaxColorAttachments,
		Float64Uniforms:     true,
		BackBufferFormat:    lumen.FormatRGBA8,
	}
}

// CreateBuffer implements lumen.Device.
func (d *Device) CreateBuffer(desc *lumen.BufferDescriptor, data []byte) (lumen.DeviceBuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	b := &buffer{dev: d, data: make([]byte, desc.Size)}
	copy(b.data, data)
	return b, nil
}

// CreateTexture implements lumen.Device.
func (d *Device) CreateTexture(desc *lumen.TextureDesc) (lumen.DeviceTexture, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return newTexture(d, desc.Width, desc.Height, desc.Format, desc.Sampler), nil
}

// CreateFramebuffer implements lumen.Device.
func (d *Device) CreateFramebuffer(desc *lumen.FramebufferDescriptor) (lumen.DeviceFramebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	fb := &framebuffer{dev: d, w: desc.Width, h: desc.Height}
	for i, ct := range desc.Color {
		t, ok := ct.(*texture)
		if !ok {
			return nil, fmt.Errorf("soft: color attachment %d is %T, not a soft texture", i, ct)
		}
		fb.color = append(fb.color, t)
	}
	if desc.Depth != nil {
		t, ok := desc.Depth.(*texture)
		if !ok {
			return nil, fmt.Errorf("soft: depth attachment is %T, not a soft texture", desc.Depth)
		}
		fb.depth = t
	}
	return fb, nil
}

// BackBuffer implements lumen.Device. The screen image is kept across
// calls of the same size.
func (d *Device) BackBuffer(width, height int) (lumen.DeviceFramebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if s := d.screen; s == nil || s.w != width || s.h != height {
		t := newTexture(d, width, height, lumen.FormatRGBA8, lumen.Sampler{})
		d.screen = &framebuffer{dev: d, w: width, h: height, color: []*texture{t}, screen: true}
	}
	return d.screen, nil
}

// BeginPass implements lumen.Device.
func (d *Device) BeginPass(target lumen.DeviceFramebuffer, clear lumen.ClearPolicy) (lumen.Pass, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	fb, ok := target.(*framebuffer)
	if !ok {
		return nil, fmt.Errorf("soft: target is %T, not a soft framebuffer", target)
	}
	fb.clear(clear)
	d.stats.Passes++
	return &pass{dev: d, fb: fb, state: lumen.DefaultRenderState()}, nil
}
