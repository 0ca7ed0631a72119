// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/lumen"
	"github.com/gogpu/lumen/backend"
)

func init() {
	backend.Register(backend.WGPU, func() (lumen.Device, error) {
		return Open(Config{})
	})
}

// Config configures a GPU device. Zero fields take defaults.
type Config struct {
	// Backend selects the graphics API for Open. Default Vulkan.
	Backend gputypes.Backend
	// Timeout bounds every wait for the GPU. Default 5s.
	Timeout time.Duration
	// MaxTextureSize is reported in Caps. Default 8192.
	MaxTextureSize int
	// MaxTextureUnits bounds the sampler uniforms of a program. Default 8.
	MaxTextureUnits int
}

func (c Config) withDefaults() Config {
	if c.Backend == 0 {
		c.Backend = gputypes.BackendVulkan
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxTextureSize <= 0 {
		c.MaxTextureSize = 8192
	}
	if c.MaxTextureUnits <= 0 {
		c.MaxTextureUnits = 8
	}
	return c
}

// Stats counts the work done by a device.
type Stats struct {
	Passes           uint64
	Draws            uint64
	PipelinesCreated uint64
	PipelineHits     uint64
	Submits          uint64
}

var (
	// ErrNoAdapter is returned by Open when the backend finds no GPU.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrNotHalProvider is returned by FromProvider when the provider does
	// not expose HAL objects.
	ErrNotHalProvider = errors.New("wgpu: provider does not expose a hal device and queue")

	errLost = fmt.Errorf("%w: wgpu device lost", lumen.ErrContextLost)
)

// Device is a lumen.Device backed by a hal.Device.
type Device struct {
	cfg      Config
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // set when Open created the device
	owned    bool

	lost   atomic.Bool
	logger atomic.Pointer[slog.Logger]
	stats  Stats

	nextProgram uint64
	blank       *texture // bound to sampler uniforms without a texture

	surface  hal.TextureView
	surfaceW int
	surfaceH int
	screen   *framebuffer
}

// New wraps an open hal device and queue. The caller keeps ownership of
// both; Close does not destroy them.
func New(device hal.Device, queue hal.Queue, cfg Config) *Device {
	d := &Device{cfg: cfg.withDefaults(), device: device, queue: queue}
	d.logger.Store(lumen.Logger())
	return d
}

// halProvider is implemented by gpucontext providers that expose the
// underlying HAL objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider wraps the device of a windowing host.
func FromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHalProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHalProvider, hp.HalQueue())
	}
	return New(device, queue, cfg), nil
}

// Open creates a standalone device on the first discrete or integrated
// GPU of cfg.Backend. Close destroys it.
func Open(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	api, ok := hal.GetBackend(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("wgpu: backend %v is not available", cfg.Backend)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	d := New(openDev.Device, openDev.Queue, cfg)
	d.instance = instance
	d.owned = true
	d.log().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// Close releases the resources the device keeps for itself, and the hal
// device when Open created it. Close the lumen.Context first.
func (d *Device) Close() {
	d.dropScreen()
	if d.blank != nil {
		d.blank.Destroy()
		d.blank = nil
	}
	if d.owned {
		d.device.Destroy()
		d.instance.Destroy()
		d.owned = false
	}
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

// Lose marks the device lost. Hosts call it from their device-lost
// callback; every later call fails with an error wrapping
// lumen.ErrContextLost.
func (d *Device) Lose() {
	if d.lost.CompareAndSwap(false, true) {
		d.log().Warn("wgpu: device lost")
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

// Caps implements lumen.Device.
func (d *Device) Caps() lumen.Caps {
	return lumen.Caps{
		Name:         "wgpu",
		PixelFormats: append([]lumen.PixelFormat(nil), supportedFormats...),
		Modes: []lumen.Mode{
			lumen.Point, lumen.Line, lumen.LineStrip,
			lumen.Triangle, lumen.TriangleStrip,
		},
		MaxTextureSize:      d.cfg.MaxTextureSize,
		MaxTextureUnits:     d.cfg.MaxTextureUnits,
		MaxColorAttachments: 4,
		Float64Uniforms:     false,
		BackBufferFormat:    lumen.FormatRGBA8,
	}
}

// SetSurfaceTarget makes view the color attachment of the back buffer.
// The host calls it every frame with the acquired surface texture view;
// the view stays owned by the host. A nil view returns to an offscreen
// back buffer.
func (d *Device) SetSurfaceTarget(view hal.TextureView, width, height int) {
	d.surface = view
	d.surfaceW, d.surfaceH = width, height
	d.dropScreen()
}

// BackBuffer implements lumen.Device. Without a surface target the back
// buffer is an offscreen RGBA8 texture that can be read back.
func (d *Device) BackBuffer(width, height int) (lumen.DeviceFramebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if s := d.screen; s != nil && s.w == width && s.h == height {
		return s, nil
	}
	d.dropScreen()

	fb := &framebuffer{dev: d, w: width, h: height, screen: true, formats: []lumen.PixelFormat{lumen.FormatRGBA8}}
	if d.surface != nil {
		if width != d.surfaceW || height != d.surfaceH {
			return nil, fmt.Errorf("%w: back buffer %dx%d, surface is %dx%d",
				lumen.ErrTargetMismatch, width, height, d.surfaceW, d.surfaceH)
		}
		fb.views = []hal.TextureView{d.surface}
	} else {
		t, err := d.newTexture("back_buffer", width, height, lumen.FormatRGBA8, lumen.Sampler{})
		if err != nil {
			return nil, err
		}
		fb.color = []*texture{t}
		fb.views = []hal.TextureView{t.view}
		fb.ownsColor = true
	}
	d.screen = fb
	return fb, nil
}

func (d *Device) dropScreen() {
	if d.screen != nil && d.screen.ownsColor {
		d.screen.destroyColor()
	}
	d.screen = nil
}

// blankTexture returns a 1x1 transparent texture for unbound samplers.
func (d *Device) blankTexture() (*texture, error) {
	if d.blank != nil {
		return d.blank, nil
	}
	t, err := d.newTexture("blank", 1, 1, lumen.FormatRGBA8, lumen.Sampler{})
	if err != nil {
		return nil, err
	}
	d.blank = t
	return t, nil
}

// submit ends encoding, submits and waits for the GPU. A GPU that does
// not finish within the timeout is treated as lost.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	d.stats.Submits++
	ok, err := d.device.Wait(fence, 1, d.cfg.Timeout)
	if err != nil || !ok {
		d.Lose()
		return fmt.Errorf("%w: wait for GPU: ok=%v err=%v", errLost, ok, err)
	}
	return nil
}

// newEncoder creates a command encoder and begins encoding.
func (d *Device) newEncoder(label string) (hal.CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return encoder, nil
}
