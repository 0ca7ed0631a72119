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

var (
	_ lumen.Device            = (*Device)(nil)
	_ lumen.DeviceBuffer      = (*buffer)(nil)
	_ lumen.DeviceTexture     = (*texture)(nil)
	_ lumen.DeviceFramebuffer = (*framebuffer)(nil)
)

type buffer struct {
	dev  *Device
	data []byte
}

func (b *buffer) Write(offset int, data []byte) error {
	if err := b.dev.alive(); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *buffer) Destroy() { b.data = nil }

// texture stores color texels in their packed format. Depth formats keep
// depth and stencil in separate planes.
type texture struct {
	dev     *Device
	w, h    int
	format  lumen.PixelFormat
	sampler lumen.Sampler
	data    []byte    // color texels
	depth   []float32 // depth plane
	stencil []uint8   // stencil plane, Depth24Stencil8 only
}

func newTexture(d *Device, w, h int, f lumen.PixelFormat, s lumen.Sampler) *texture {
	t := &texture{dev: d, w: w, h: h, format: f, sampler: s}
	switch {
	case f.IsDepth():
		t.depth = make([]float32, w*h)
		if f.HasStencil() {
			t.stencil = make([]uint8, w*h)
		}
	default:
		t.data = make([]byte, w*h*f.BytesPerPixel())
	}
	return t
}

// Write uploads texels of r. Depth32F takes little-endian float32 texels;
// Depth24Stencil8 takes little-endian uint32 texels with depth in the low
// 24 bits and stencil in the high 8.
func (t *texture) Write(r lumen.Region, data []byte) error {
	if err := t.dev.alive(); err != nil {
		return err
	}
	bpp := t.format.BytesPerPixel()
	for y := range r.Height {
		row := data[y*r.Width*bpp : (y+1)*r.Width*bpp]
		base := (r.Y+y)*t.w + r.X
		switch t.format {
		case lumen.FormatDepth32F:
			for x := range r.Width {
				t.depth[base+x] = math.Float32frombits(binary.LittleEndian.Uint32(row[x*4:]))
			}
		case lumen.FormatDepth24Stencil8:
			for x := range r.Width {
				v := binary.LittleEndian.Uint32(row[x*4:])
				t.depth[base+x] = float32(v&0xffffff) / 0xffffff
				t.stencil[base+x] = uint8(v >> 24)
			}
		default:
			copy(t.data[base*bpp:], row)
		}
	}
	return nil
}

func (t *texture) Destroy() {
	t.data, t.depth, t.stencil = nil, nil, nil
}

// load decodes texel (x, y). Missing channels read as 0, alpha as 1.
func (t *texture) load(x, y int) mgl32.Vec4 {
	i := y*t.w + x
	if t.format.IsDepth() {
		d := t.depth[i]
		return mgl32.Vec4{d, d, d, 1}
	}
	return decodeTexel(t.format, t.data[i*t.format.BytesPerPixel():])
}

// store encodes c into texel (x, y), writing only the channels in mask.
func (t *texture) store(x, y int, c mgl32.Vec4, mask lumen.ColorMask) {
	i := y*t.w + x
	px := t.data[i*t.format.BytesPerPixel():]
	if mask != lumen.MaskAll {
		old := decodeTexel(t.format, px)
		for ch := range 4 {
			if mask&(1<<ch) == 0 {
				c[ch] = old[ch]
			}
		}
	}
	encodeTexel(t.format, px, c)
}

func decodeTexel(f lumen.PixelFormat, px []byte) mgl32.Vec4 {
	c := mgl32.Vec4{0, 0, 0, 1}
	n := f.Channels()
	if f.IsFloat() {
		for ch := range n {
			c[ch] = math.Float32frombits(binary.LittleEndian.Uint32(px[ch*4:]))
		}
		return c
	}
	for ch := range n {
		c[ch] = float32(px[ch]) / 255
	}
	return c
}

func encodeTexel(f lumen.PixelFormat, px []byte, c mgl32.Vec4) {
	n := f.Channels()
	if f.IsFloat() {
		for ch := range n {
			binary.LittleEndian.PutUint32(px[ch*4:], math.Float32bits(c[ch]))
		}
		return
	}
	for ch := range n {
		px[ch] = unorm8(c[ch])
	}
}

func unorm8(v float32) uint8 {
	v = mgl32.Clamp(v, 0, 1)
	return uint8(v*255 + 0.5)
}

// sample filters the texture at normalized coordinates uv. The texel
// origin is the top-left corner.
func (t *texture) sample(uv mgl32.Vec2) mgl32.Vec4 {
	s := t.sampler
	u := float64(uv[0]) * float64(t.w)
	v := float64(uv[1]) * float64(t.h)
	if s.MagFilter == lumen.FilterNearest {
		x := wrap(int(math.Floor(u)), t.w, s.WrapS)
		y := wrap(int(math.Floor(v)), t.h, s.WrapT)
		return t.load(x, y)
	}
	u -= 0.5
	v -= 0.5
	x0, y0 := math.Floor(u), math.Floor(v)
	fx, fy := float32(u-x0), float32(v-y0)
	xa, xb := wrap(int(x0), t.w, s.WrapS), wrap(int(x0)+1, t.w, s.WrapS)
	ya, yb := wrap(int(y0), t.h, s.WrapT), wrap(int(y0)+1, t.h, s.WrapT)
	top := lerp(t.load(xa, ya), t.load(xb, ya), fx)
	bottom := lerp(t.load(xa, yb), t.load(xb, yb), fx)
	return lerp(top, bottom, fy)
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func wrap(i, n int, mode lumen.Wrap) int {
	switch mode {
	case lumen.WrapRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case lumen.WrapMirroredRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return max(0, min(i, n-1))
	}
}

type framebuffer struct {
	dev    *Device
	w, h   int
	color  []*texture
	depth  *texture
	screen bool
}

func (fb *framebuffer) clear(c lumen.ClearPolicy) {
	if c.ClearColor {
		for _, t := range fb.color {
			px := make([]byte, t.format.BytesPerPixel())
			encodeTexel(t.format, px, c.Color)
			for i := 0; i < len(t.data); i += len(px) {
				copy(t.data[i:], px)
			}
		}
	}
	if d := fb.depth; d != nil {
		if c.ClearDepth {
			v := mgl32.Clamp(c.Depth, 0, 1)
			for i := range d.depth {
				d.depth[i] = v
			}
		}
		if c.ClearStencil && d.stencil != nil {
			for i := range d.stencil {
				d.stencil[i] = c.Stencil
			}
		}
	}
}

func (fb *framebuffer) Read(attachment int, r lumen.Region, dst []byte) error {
	if err := fb.dev.alive(); err != nil {
		return err
	}
	if attachment < 0 || attachment >= len(fb.color) {
		return fmt.Errorf("soft: no color attachment %d", attachment)
	}
	t := fb.color[attachment]
	bpp := t.format.BytesPerPixel()
	rowBytes := r.Width * bpp
	for y := range r.Height {
		src := ((r.Y+y)*t.w + r.X) * bpp
		copy(dst[y*rowBytes:(y+1)*rowBytes], t.data[src:src+rowBytes])
	}
	return nil
}

// Destroy drops the attachment list. The textures are destroyed through
// their own handles; the back buffer survives for Device.Screen.
func (fb *framebuffer) Destroy() {
	if fb.screen {
		return
	}
	fb.color, fb.depth = nil, nil
}
