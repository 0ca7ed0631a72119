// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

var errFakeLost = fmt.Errorf("fake: %w", ErrContextLost)

// fakeDevice records what the executor asks of it.
type fakeDevice struct {
	caps     Caps
	lost     bool
	inactive map[string]bool // declared uniforms the linked program drops
	linkErr  error
	failNext error // returned by the next create call

	logger    *slog.Logger
	calls     []string
	draws     []DrawCall
	uniforms  []fakeUniformSet
	destroyed map[string]int
	passes    int
}

type fakeUniformSet struct {
	location int
	typ      UniformType
	value    any
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		caps: Caps{
			Name: "fake",
			PixelFormats: []PixelFormat{
				FormatRGBA8, FormatRGB8, FormatRG8, FormatR8,
				FormatRGBA32F, FormatRGB32F, FormatRG32F, FormatR32F,
				FormatDepth32F, FormatDepth24Stencil8,
			},
			Modes:               []Mode{Point, Line, LineStrip, Triangle, TriangleStrip, TriangleFan},
			MaxTextureSize:      1024,
			MaxTextureUnits:     2,
			MaxColorAttachments: 2,
			Float64Uniforms:     true,
			BackBufferFormat:    FormatRGBA8,
		},
		destroyed: make(map[string]int),
	}
}

// newTestContext returns a context on a fresh fake device.
func newTestContext(t *testing.T, opts ...Option) (*Context, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	ctx, err := NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, dev
}

func (d *fakeDevice) SetLogger(l *slog.Logger) { d.logger = l }

func (d *fakeDevice) record(call string) error {
	if d.lost {
		return errFakeLost
	}
	d.calls = append(d.calls, call)
	return nil
}

func (d *fakeDevice) create(call string) error {
	if err := d.record(call); err != nil {
		return err
	}
	if err := d.failNext; err != nil {
		d.failNext = nil
		return err
	}
	return nil
}

func (d *fakeDevice) count(call string) int {
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDevice) Caps() Caps { return d.caps }

func (d *fakeDevice) CreateBuffer(desc *BufferDescriptor, data []byte) (DeviceBuffer, error) {
	if err := d.create("CreateBuffer"); err != nil {
		return nil, err
	}
	b := &fakeBuffer{dev: d, data: make([]byte, desc.Size)}
	copy(b.data, data)
	return b, nil
}

func (d *fakeDevice) CreateTexture(desc *TextureDesc) (DeviceTexture, error) {
	if err := d.create("CreateTexture"); err != nil {
		return nil, err
	}
	return &fakeTexture{dev: d, desc: *desc}, nil
}

func (d *fakeDevice) CreateFramebuffer(desc *FramebufferDescriptor) (DeviceFramebuffer, error) {
	if err := d.create("CreateFramebuffer"); err != nil {
		return nil, err
	}
	return &fakeFramebuffer{dev: d, width: desc.Width}, nil
}

func (d *fakeDevice) BackBuffer(width, _ int) (DeviceFramebuffer, error) {
	if err := d.create("BackBuffer"); err != nil {
		return nil, err
	}
	return &fakeFramebuffer{dev: d, width: width, screen: true}, nil
}

func (d *fakeDevice) CreateProgram(desc *ProgramDesc) (DeviceProgram, error) {
	if err := d.create("CreateProgram"); err != nil {
		return nil, err
	}
	if d.linkErr != nil {
		return nil, d.linkErr
	}
	p := &fakeProgram{dev: d}
	for i, u := range desc.Uniforms {
		if d.inactive[u.Name] {
			continue
		}
		p.uniforms = append(p.uniforms, UniformInfo{Name: u.Name, Type: u.Type, Location: 100 + i})
	}
	return p, nil
}

func (d *fakeDevice) BeginPass(target DeviceFramebuffer, _ ClearPolicy) (Pass, error) {
	if err := d.record("BeginPass"); err != nil {
		return nil, err
	}
	d.passes++
	return &fakePass{dev: d}, nil
}

type fakeBuffer struct {
	dev  *fakeDevice
	data []byte
}

func (b *fakeBuffer) Write(offset int, data []byte) error {
	if err := b.dev.record("BufferWrite"); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *fakeBuffer) Destroy() { b.dev.destroyed["buffer"]++ }

type fakeTexture struct {
	dev  *fakeDevice
	desc TextureDesc
}

func (t *fakeTexture) Write(Region, []byte) error { return t.dev.record("TextureWrite") }

func (t *fakeTexture) Destroy() { t.dev.destroyed["texture"]++ }

type fakeFramebuffer struct {
	dev    *fakeDevice
	width  int
	screen bool
}

// Read fills dst with the attachment index.
func (f *fakeFramebuffer) Read(attachment int, _ Region, dst []byte) error {
	if err := f.dev.record("Read"); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = byte(attachment)
	}
	return nil
}

func (f *fakeFramebuffer) Destroy() { f.dev.destroyed["framebuffer"]++ }

type fakeProgram struct {
	dev      *fakeDevice
	uniforms []UniformInfo
}

func (p *fakeProgram) Uniforms() []UniformInfo { return p.uniforms }

func (p *fakeProgram) Destroy() { p.dev.destroyed["program"]++ }

type fakePass struct {
	dev   *fakeDevice
	ended bool
}

func (p *fakePass) SetProgram(DeviceProgram) error { return p.dev.record("SetProgram") }

func (p *fakePass) SetUniform(location int, typ UniformType, value any) error {
	if err := p.dev.record("SetUniform"); err != nil {
		return err
	}
	p.dev.uniforms = append(p.dev.uniforms, fakeUniformSet{location, typ, value})
	return nil
}

func (p *fakePass) SetTexture(int, DeviceTexture) error { return p.dev.record("SetTexture") }

func (p *fakePass) SetState(*RenderState) error { return p.dev.record("SetState") }

func (p *fakePass) Draw(call *DrawCall) error {
	if err := p.dev.record("Draw"); err != nil {
		return err
	}
	p.dev.draws = append(p.dev.draws, *call)
	return nil
}

func (p *fakePass) End() error {
	if p.ended {
		return errors.New("fake: pass ended twice")
	}
	p.ended = true
	return p.dev.record("End")
}

// fixture is a ready-to-draw scene on a fake device.
type fixture struct {
	ctx    *Context
	dev    *fakeDevice
	target *Framebuffer
	prog   *Program
	vbuf   *Buffer
	tess   *Tess
}

var testInputs = []VertexInput{
	{Name: "position", Format: Float32x2},
	{Name: "color", Format: Float32x4},
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx, dev := newTestContext(t, opts...)
	target, err := NewFramebuffer(ctx, FramebufferDesc{
		Label: "target", Width: 4, Height: 4,
		Color: []Attachment{{Format: FormatRGBA8}},
		Depth: &Attachment{Format: FormatDepth32F},
	})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	prog, err := NewProgram(ctx, ProgramDesc{
		Label:  "prog",
		Inputs: testInputs,
		Uniforms: []UniformDecl{
			{Name: "time", Type: TypeFloat},
			{Name: "tint", Type: TypeVec4},
			{Name: "tex", Type: TypeSampler2D},
		},
	})
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	vbuf, err := NewBuffer(ctx, BufferDesc{Label: "verts", Layout: Interleaved(testInputs...), Len: 6}, nil)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	tess, err := NewTess(ctx, TessDesc{Label: "tris", Mode: Triangle, Vertices: []*Buffer{vbuf}})
	if err != nil {
		t.Fatalf("NewTess() error = %v", err)
	}
	return &fixture{ctx: ctx, dev: dev, target: target, prog: prog, vbuf: vbuf, tess: tess}
}

// begin starts a pipeline and moves it to RenderStateBound.
func (f *fixture) begin(t *testing.T) (*Pipeline, *ProgramInterface) {
	t.Helper()
	p, err := f.ctx.Begin(f.target, ClearPolicy{})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	pi, err := p.UseProgram(f.prog)
	if err != nil {
		t.Fatalf("UseProgram() error = %v", err)
	}
	if err := p.SetRenderState(DefaultRenderState()); err != nil {
		t.Fatalf("SetRenderState() error = %v", err)
	}
	return p, pi
}

// assertIdle checks the invariants that hold whenever no pipeline runs.
func assertIdle(t *testing.T, ctx *Context) {
	t.Helper()
	if s := ctx.State(); s != Idle {
		t.Errorf("State() = %v, want Idle", s)
	}
	if s := ctx.Stats(); s.Borrowed != 0 || s.PendingRelease != 0 {
		t.Errorf("Stats() borrowed = %d, pending = %d, want 0, 0", s.Borrowed, s.PendingRelease)
	}
	if ctx.busy.Load() {
		t.Error("context still busy")
	}
}
