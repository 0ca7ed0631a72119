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

var errNoProgram = errors.New("wgpu: no program bound")

// pass records one render pass. Commands are submitted by End. Uniform
// buffers and bind groups created for the draws live until the submit
// completes.
type pass struct {
	dev      *Device
	fb       *framebuffer
	encoder  hal.CommandEncoder
	rp       hal.RenderPassEncoder
	prog     *program
	textures []*texture
	state    lumen.RenderState
	ended    bool

	// uniforms is the current uniform bind group of each program used in
	// the pass.
	uniforms   map[*program]hal.BindGroup
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

var _ lumen.Pass = (*pass)(nil)

// BeginPass implements lumen.Device.
func (d *Device) BeginPass(target lumen.DeviceFramebuffer, clear lumen.ClearPolicy) (lumen.Pass, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	fb, ok := target.(*framebuffer)
	if !ok {
		return nil, fmt.Errorf("wgpu: target is %T, not a wgpu framebuffer", target)
	}
	if len(fb.views) == 0 {
		return nil, fmt.Errorf("wgpu: target has no color attachment")
	}

	encoder, err := d.newEncoder("lumen_pass")
	if err != nil {
		return nil, err
	}
	d.stats.Passes++
	p := &pass{
		dev:      d,
		fb:       fb,
		encoder:  encoder,
		state:    lumen.DefaultRenderState(),
		uniforms: make(map[*program]hal.BindGroup),
	}
	p.rp = encoder.BeginRenderPass(renderPassDescriptor(fb, clear))
	return p, nil
}

// renderPassDescriptor applies clear through the load operations of the
// attachments.
func renderPassDescriptor(fb *framebuffer, clear lumen.ClearPolicy) *hal.RenderPassDescriptor {
	colorLoad := gputypes.LoadOpLoad
	if clear.ClearColor {
		colorLoad = gputypes.LoadOpClear
	}
	desc := &hal.RenderPassDescriptor{Label: "lumen_pass"}
	for _, v := range fb.views {
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     colorLoad,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor(clear.Color),
		})
	}
	if fb.depth != nil {
		ds := &hal.RenderPassDepthStencilAttachment{
			View:            fb.depth.view,
			DepthLoadOp:     gputypes.LoadOpLoad,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: min(max(clear.Depth, 0), 1),
		}
		if clear.ClearDepth {
			ds.DepthLoadOp = gputypes.LoadOpClear
		}
		if fb.depthFormat.HasStencil() {
			ds.StencilLoadOp = gputypes.LoadOpLoad
			ds.StencilStoreOp = gputypes.StoreOpStore
			ds.StencilClearValue = uint32(clear.Stencil)
			if clear.ClearStencil {
				ds.StencilLoadOp = gputypes.LoadOpClear
			}
		}
		desc.DepthStencilAttachment = ds
	}
	return desc
}

func (p *pass) SetProgram(dp lumen.DeviceProgram) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	prog, ok := dp.(*program)
	if !ok {
		return fmt.Errorf("wgpu: program is %T, not a wgpu program", dp)
	}
	p.prog = prog
	return nil
}

func (p *pass) SetUniform(location int, _ lumen.UniformType, value any) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	if p.prog == nil {
		return errNoProgram
	}
	return p.prog.set(location, value)
}

func (p *pass) SetTexture(unit int, dt lumen.DeviceTexture) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	t, ok := dt.(*texture)
	if !ok {
		return fmt.Errorf("wgpu: texture is %T, not a wgpu texture", dt)
	}
	for len(p.textures) <= unit {
		p.textures = append(p.textures, nil)
	}
	p.textures[unit] = t
	return nil
}

func (p *pass) SetState(s *lumen.RenderState) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	p.state = *s
	return nil
}

func (p *pass) Draw(call *lumen.DrawCall) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	if p.prog == nil {
		return errNoProgram
	}
	s := &p.state
	if s.Culling.Enabled && s.Culling.Face == lumen.FaceFrontAndBack && isTriangles(call.Mode) {
		return nil
	}

	rp, err := p.prog.pipeline(call, s, p.fb)
	if err != nil {
		return err
	}
	uniforms, err := p.uniformGroup()
	if err != nil {
		return err
	}
	p.rp.SetPipeline(rp)
	p.rp.SetBindGroup(0, uniforms, nil)
	if p.prog.samplers > 0 {
		textures, err := p.textureGroup()
		if err != nil {
			return err
		}
		p.rp.SetBindGroup(1, textures, nil)
	}

	x, y, w, h := scissorRect(s.Scissor, p.fb.w, p.fb.h)
	if w == 0 || h == 0 {
		return nil
	}
	p.rp.SetScissorRect(x, y, w, h)
	if s.Stencil.Enabled {
		p.rp.SetStencilReference(uint32(s.Stencil.Reference))
	}

	for i, st := range call.Streams {
		vb, ok := st.Buffer.(*buffer)
		if !ok {
			return fmt.Errorf("wgpu: vertex stream %d is %T, not a wgpu buffer", i, st.Buffer)
		}
		p.rp.SetVertexBuffer(uint32(i), vb.buf, 0) //nolint:gosec // G115: stream count is small
	}
	instances := uint32(max(call.Instances, 1)) //nolint:gosec // G115: instance count is validated by lumen
	count := uint32(call.Count)                 //nolint:gosec // G115: count is validated by lumen
	first := uint32(call.First)                 //nolint:gosec // G115: first is validated by lumen
	if call.Indices != nil {
		ib, ok := call.Indices.(*buffer)
		if !ok {
			return fmt.Errorf("wgpu: index buffer is %T, not a wgpu buffer", call.Indices)
		}
		p.rp.SetIndexBuffer(ib.buf, indexFormat(call.IndexFormat), 0)
		p.rp.DrawIndexed(count, instances, first, 0, 0)
	} else {
		p.rp.Draw(count, instances, first, 0)
	}
	p.dev.stats.Draws++
	return nil
}

func isTriangles(m lumen.Mode) bool {
	return m == lumen.Triangle || m == lumen.TriangleStrip || m == lumen.TriangleFan
}

// scissorRect returns the scissor rectangle clipped to a w×h target, or
// the whole target when scissoring is off.
func scissorRect(s lumen.Scissor, w, h int) (x, y, sw, sh uint32) {
	if !s.Enabled {
		return 0, 0, uint32(w), uint32(h) //nolint:gosec // G115: target sizes are positive
	}
	r := s.Region
	x0, y0 := min(max(r.X, 0), w), min(max(r.Y, 0), h)
	x1, y1 := min(max(r.X+r.Width, x0), w), min(max(r.Y+r.Height, y0), h)
	return uint32(x0), uint32(y0), uint32(x1 - x0), uint32(y1 - y0) //nolint:gosec // G115: clamped to the target
}

// uniformGroup returns the uniform bind group of the bound program. A new
// buffer is uploaded whenever the block changed since the last draw, so
// every draw sees the values set before it.
func (p *pass) uniformGroup() (hal.BindGroup, error) {
	prog := p.prog
	if bg, ok := p.uniforms[prog]; ok && !prog.dirty {
		return bg, nil
	}
	d := p.dev.device
	desc := &hal.BindGroupDescriptor{
		Label:  prog.label + "_uniforms",
		Layout: prog.uniformLayout,
	}
	if size := uint64(len(prog.block)); size > 0 {
		buf, err := d.CreateBuffer(&hal.BufferDescriptor{
			Label: prog.label + "_uniform_buffer",
			Size:  size,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create uniform buffer: %w", err)
		}
		p.buffers = append(p.buffers, buf)
		if err := p.dev.queue.WriteBuffer(buf, 0, prog.block); err != nil {
			return nil, fmt.Errorf("wgpu: upload uniforms: %w", err)
		}
		desc.Entries = []gputypes.BindGroupEntry{{
			Binding:  0,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		}}
	}
	bg, err := d.CreateBindGroup(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create uniform bind group: %w", err)
	}
	p.bindGroups = append(p.bindGroups, bg)
	p.uniforms[prog] = bg
	prog.dirty = false
	return bg, nil
}

// textureGroup binds the texture of each sampler's unit. Units with no
// texture sample a blank texture.
func (p *pass) textureGroup() (hal.BindGroup, error) {
	prog := p.prog
	entries := make([]gputypes.BindGroupEntry, 0, 2*prog.samplers)
	for k, unit := range prog.units {
		var t *texture
		if int(unit) < len(p.textures) && unit >= 0 {
			t = p.textures[unit]
		}
		if t == nil || t.sampler == nil {
			blank, err := p.dev.blankTexture()
			if err != nil {
				return nil, err
			}
			t = blank
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  uint32(2 * k), //nolint:gosec // G115: sampler count is small
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  uint32(2*k + 1), //nolint:gosec // G115: sampler count is small
				Resource: gputypes.SamplerBinding{Sampler: t.sampler.NativeHandle()},
			})
	}
	bg, err := p.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   prog.label + "_textures",
		Layout:  prog.textureLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture bind group: %w", err)
	}
	p.bindGroups = append(p.bindGroups, bg)
	return bg, nil
}

// End ends the render pass, submits it and waits for completion. The
// transient uniform buffers and bind groups are released either way.
func (p *pass) End() error {
	if p.ended {
		return nil
	}
	p.ended = true
	defer p.release()

	p.rp.End()
	if err := p.dev.alive(); err != nil {
		p.encoder.DiscardEncoding()
		return err
	}
	return p.dev.submit(p.encoder)
}

func (p *pass) release() {
	d := p.dev.device
	for _, bg := range p.bindGroups {
		d.DestroyBindGroup(bg)
	}
	for _, buf := range p.buffers {
		d.DestroyBuffer(buf)
	}
	p.bindGroups, p.buffers = nil, nil
	p.uniforms = nil
	p.prog = nil
	p.textures = nil
}
