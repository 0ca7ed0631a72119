// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/lumen"
)

// newNoopDevice wraps a noop hal device.
func newNoopDevice(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	d := New(openDev.Device, openDev.Queue, Config{})
	t.Cleanup(func() {
		d.Close()
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return d
}

const testShader = `
struct Uniforms {
    tint: vec4<f32>,
    scale: f32,
    ghost: f32,
}
@group(0) @binding(0) var<uniform> u: Uniforms;
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var samp: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos * u.scale, 0.0, 1.0);
    out.uv = pos * 0.5 + vec2<f32>(0.5, 0.5);
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, input.uv) * u.tint;
}
`

func testProgramDesc() *lumen.ProgramDesc {
	return &lumen.ProgramDesc{
		Label:    "textured",
		Vertex:   lumen.ShaderSource{WGSL: testShader},
		Fragment: lumen.ShaderSource{WGSL: testShader},
		Inputs:   []lumen.VertexInput{{Name: "pos", Format: lumen.Float32x2}},
		Uniforms: []lumen.UniformDecl{
			{Name: "tint", Type: lumen.TypeVec4},
			{Name: "scale", Type: lumen.TypeFloat},
			{Name: "ghost", Type: lumen.TypeFloat},
			{Name: "tex", Type: lumen.TypeSampler2D},
		},
	}
}

// newTestProgram links the test program, skipping when the shader
// compiler rejects it.
func newTestProgram(t *testing.T, d *Device) *program {
	t.Helper()
	dp, err := d.CreateProgram(testProgramDesc())
	if err != nil {
		var sbe *lumen.ShaderBuildError
		if errors.As(err, &sbe) && sbe.Stage != "link" {
			t.Skipf("shader compiler unavailable: %v", err)
		}
		t.Fatalf("CreateProgram: %v", err)
	}
	t.Cleanup(dp.Destroy)
	return dp.(*program)
}

func TestCapsLeaveOutUnsupportedFeatures(t *testing.T) {
	caps := New(nil, nil, Config{}).Caps()
	if caps.SupportsMode(lumen.TriangleFan) {
		t.Error("TriangleFan reported as supported")
	}
	if caps.SupportsFormat(lumen.FormatRGB8) || caps.SupportsFormat(lumen.FormatRGB32F) {
		t.Error("three-channel formats reported as supported")
	}
	if caps.Float64Uniforms {
		t.Error("Float64Uniforms reported as supported")
	}
	for _, f := range caps.PixelFormats {
		if _, ok := textureFormat(f); !ok {
			t.Errorf("format %v in caps has no texture format", f)
		}
	}
	if caps.MaxTextureUnits != 8 || caps.MaxTextureSize != 8192 {
		t.Errorf("defaults = %d units, %d size", caps.MaxTextureUnits, caps.MaxTextureSize)
	}
}

func TestDepthStencilState(t *testing.T) {
	s := lumen.DefaultRenderState()
	if ds := depthStencilState(lumen.FormatRGBA8, &s); ds != nil {
		t.Error("color format produced a depth state")
	}

	ds := depthStencilState(lumen.FormatDepth32F, &s)
	if ds == nil || !ds.DepthWriteEnabled || ds.DepthCompare != gputypes.CompareFunctionLess {
		t.Fatalf("default depth state = %+v", ds)
	}

	s.Depth.Test = false
	s.Stencil = lumen.StencilState{
		Enabled:   true,
		Compare:   lumen.CompareEqual,
		ReadMask:  0x0f,
		WriteMask: 0xf0,
		Pass:      lumen.StencilIncrement,
	}
	ds = depthStencilState(lumen.FormatDepth24Stencil8, &s)
	if ds.DepthWriteEnabled || ds.DepthCompare != gputypes.CompareFunctionAlways {
		t.Error("depth test off still tests or writes depth")
	}
	if ds.StencilFront.Compare != gputypes.CompareFunctionEqual ||
		ds.StencilFront.PassOp != hal.StencilOperationIncrementClamp ||
		ds.StencilBack.PassOp != hal.StencilOperationIncrementClamp {
		t.Errorf("stencil faces = %+v / %+v", ds.StencilFront, ds.StencilBack)
	}
	if ds.StencilReadMask != 0x0f || ds.StencilWriteMask != 0xf0 {
		t.Errorf("stencil masks = %#x %#x", ds.StencilReadMask, ds.StencilWriteMask)
	}

	// Depth32F has no stencil to test.
	ds = depthStencilState(lumen.FormatDepth32F, &s)
	if ds.StencilFront.Compare != gputypes.CompareFunctionAlways {
		t.Error("stencil state applied to a format without stencil")
	}
}

func TestBlendState(t *testing.T) {
	if blendState(&lumen.Blending{}) != nil {
		t.Error("disabled blending produced a blend state")
	}
	b := &lumen.Blending{
		Enabled:  true,
		Equation: lumen.EquationAdd,
		Src:      lumen.FactorSrcAlpha,
		Dst:      lumen.FactorOneMinusSrcAlpha,
	}
	bs := blendState(b)
	if bs.Color.SrcFactor != gputypes.BlendFactorSrcAlpha || bs.Color.DstFactor != gputypes.BlendFactorOneMinusSrcAlpha {
		t.Errorf("color = %+v", bs.Color)
	}
	if bs.Alpha != bs.Color {
		t.Errorf("alpha = %+v, want the color component", bs.Alpha)
	}
}

func TestPrimitiveState(t *testing.T) {
	ps := primitiveState(lumen.TriangleStrip, lumen.Culling{Enabled: true, Order: lumen.OrderCW, Face: lumen.FaceFront})
	if ps.Topology != gputypes.PrimitiveTopologyTriangleStrip || ps.FrontFace != gputypes.FrontFaceCW || ps.CullMode != gputypes.CullModeFront {
		t.Errorf("primitive state = %+v", ps)
	}
	ps = primitiveState(lumen.Line, lumen.Culling{Face: lumen.FaceBack})
	if ps.CullMode != gputypes.CullModeNone {
		t.Error("disabled culling culls")
	}
}

func TestWriteMask(t *testing.T) {
	if writeMask(lumen.MaskAll) != gputypes.ColorWriteMaskRed|gputypes.ColorWriteMaskGreen|gputypes.ColorWriteMaskBlue|gputypes.ColorWriteMaskAlpha {
		t.Error("MaskAll does not write every channel")
	}
	if writeMask(lumen.MaskNone) != 0 {
		t.Error("MaskNone writes")
	}
}

func TestScissorRect(t *testing.T) {
	tests := []struct {
		name       string
		s          lumen.Scissor
		x, y, w, h uint32
	}{
		{"off", lumen.Scissor{}, 0, 0, 64, 32},
		{"inside", lumen.Scissor{Enabled: true, Region: lumen.Region{X: 4, Y: 2, Width: 8, Height: 6}}, 4, 2, 8, 6},
		{"clipped", lumen.Scissor{Enabled: true, Region: lumen.Region{X: -4, Y: 30, Width: 10, Height: 10}}, 0, 30, 6, 2},
		{"outside", lumen.Scissor{Enabled: true, Region: lumen.Region{X: 70, Y: 0, Width: 4, Height: 4}}, 64, 0, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, w, h := scissorRect(tt.s, 64, 32)
			if x != tt.x || y != tt.y || w != tt.w || h != tt.h {
				t.Errorf("scissorRect = %d,%d %dx%d, want %d,%d %dx%d", x, y, w, h, tt.x, tt.y, tt.w, tt.h)
			}
		})
	}
}

func TestAlignedRange(t *testing.T) {
	tests := []struct{ offset, n, size, lo, hi int }{
		{0, 4, 16, 0, 4},
		{1, 2, 16, 0, 4},
		{6, 5, 16, 4, 12},
		{14, 2, 16, 12, 16},
	}
	for _, tt := range tests {
		lo, hi := alignedRange(tt.offset, tt.n, tt.size)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("alignedRange(%d, %d, %d) = %d, %d; want %d, %d", tt.offset, tt.n, tt.size, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestUnpadRows(t *testing.T) {
	src := make([]byte, 3*8)
	for y := range 3 {
		for x := range 5 {
			src[y*8+x] = byte(y*10 + x)
		}
		src[y*8+5] = 0xee // padding
	}
	dst := make([]byte, 15)
	unpadRows(dst, src, 5, 8, 3)
	for y := range 3 {
		for x := range 5 {
			if got := dst[y*5+x]; got != byte(y*10+x) {
				t.Fatalf("dst[%d][%d] = %d", y, x, got)
			}
		}
	}
}

func TestReadsMember(t *testing.T) {
	src := "let a = u.scale * u . tint; let b = u.scaled;"
	for name, want := range map[string]bool{"scale": true, "tint": true, "scaled": true, "ghost": false, "sca": false} {
		if got := readsMember(src, name); got != want {
			t.Errorf("readsMember(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestResources(t *testing.T) {
	d := newNoopDevice(t)

	db, err := d.CreateBuffer(&lumen.BufferDescriptor{Label: "verts", Size: 10}, make([]byte, 10))
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	defer db.Destroy()
	b := db.(*buffer)
	if len(b.shadow) != 12 {
		t.Errorf("buffer size = %d, want 12", len(b.shadow))
	}
	if err := b.Write(5, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if b.shadow[5] != 1 || b.shadow[7] != 3 {
		t.Errorf("shadow = %v", b.shadow)
	}

	color, err := d.CreateTexture(&lumen.TextureDesc{Label: "color", Width: 4, Height: 4, Format: lumen.FormatRGBA8})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	defer color.Destroy()
	if err := color.Write(lumen.Region{X: 1, Y: 1, Width: 2, Height: 2}, make([]byte, 16)); err != nil {
		t.Errorf("texture Write: %v", err)
	}

	depth, err := d.CreateTexture(&lumen.TextureDesc{Label: "depth", Width: 4, Height: 4, Format: lumen.FormatDepth24Stencil8})
	if err != nil {
		t.Fatalf("CreateTexture(depth): %v", err)
	}
	defer depth.Destroy()
	if depth.(*texture).sampler != nil {
		t.Error("depth texture has a sampler")
	}
	if err := depth.Write(lumen.Region{Width: 1, Height: 1}, make([]byte, 4)); !errors.Is(err, lumen.ErrUnsupported) {
		t.Errorf("depth Write = %v, want ErrUnsupported", err)
	}

	if _, err := d.CreateTexture(&lumen.TextureDesc{Width: 4, Height: 4, Format: lumen.FormatRGB8}); !errors.Is(err, lumen.ErrUnsupported) {
		t.Errorf("RGB8 texture = %v, want ErrUnsupported", err)
	}

	fb, err := d.CreateFramebuffer(&lumen.FramebufferDescriptor{
		Width: 4, Height: 4,
		Color:       []lumen.DeviceTexture{color},
		Formats:     []lumen.PixelFormat{lumen.FormatRGBA8},
		Depth:       depth,
		DepthFormat: lumen.FormatDepth24Stencil8,
	})
	if err != nil {
		t.Fatalf("CreateFramebuffer: %v", err)
	}
	if err := fb.Read(1, lumen.Region{Width: 1, Height: 1}, make([]byte, 4)); err == nil {
		t.Error("Read of a missing attachment succeeded")
	}
	fb.Destroy()
}

func TestBackBuffer(t *testing.T) {
	d := newNoopDevice(t)

	a, err := d.BackBuffer(8, 8)
	if err != nil {
		t.Fatalf("BackBuffer: %v", err)
	}
	b, _ := d.BackBuffer(8, 8)
	if a != b {
		t.Error("same size returned a new back buffer")
	}
	c, _ := d.BackBuffer(16, 8)
	if c == a {
		t.Error("resize kept the old back buffer")
	}
	// Destroying the current back buffer keeps it usable.
	c.Destroy()
	if len(c.(*framebuffer).views) != 1 {
		t.Error("current back buffer lost its color view")
	}

	// A surface view cannot be read back.
	surface, err := d.newTexture("surface", 16, 8, lumen.FormatRGBA8, lumen.Sampler{})
	if err != nil {
		t.Fatal(err)
	}
	defer surface.Destroy()
	d.SetSurfaceTarget(surface.view, 16, 8)
	s, err := d.BackBuffer(16, 8)
	if err != nil {
		t.Fatalf("BackBuffer(surface): %v", err)
	}
	if err := s.Read(0, lumen.Region{Width: 1, Height: 1}, make([]byte, 4)); !errors.Is(err, errSurfaceRead) {
		t.Errorf("surface Read = %v", err)
	}
	if _, err := d.BackBuffer(4, 4); !errors.Is(err, lumen.ErrTargetMismatch) {
		t.Errorf("mismatched surface size = %v, want ErrTargetMismatch", err)
	}
	d.SetSurfaceTarget(nil, 0, 0)
}

func TestProgramInterface(t *testing.T) {
	d := newNoopDevice(t)
	p := newTestProgram(t, d)

	got := map[string]int{}
	for _, u := range p.Uniforms() {
		got[u.Name] = u.Location
	}
	want := map[string]int{"tint": 0, "scale": 1, "tex": 3}
	if len(got) != len(want) {
		t.Errorf("active uniforms = %v, want %v", got, want)
	}
	for name, loc := range want {
		if got[name] != loc {
			t.Errorf("uniform %q at %d, want %d", name, got[name], loc)
		}
	}
	if p.samplers != 1 || p.textureLayout == nil || p.layout == nil {
		t.Errorf("samplers = %d, texture layout %v, layout %v", p.samplers, p.textureLayout, p.layout)
	}
	if len(p.block) != 32 {
		t.Errorf("block = %d bytes, want 32", len(p.block))
	}
	if p.fragment != p.vertex {
		t.Error("shared source compiled twice")
	}

	if err := p.set(1, float32(2)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if floatAt(p.block, 4) != 2 {
		t.Error("scale not packed at offset 16")
	}
	if err := p.set(3, int32(2)); err != nil || p.units[0] != 2 {
		t.Errorf("sampler unit = %d, err %v", p.units[0], err)
	}
	if err := p.set(3, float32(1)); err == nil {
		t.Error("sampler accepted a float")
	}
	if err := p.set(9, float32(1)); err == nil {
		t.Error("out of range location accepted")
	}
}

func TestProgramRejectsDoubles(t *testing.T) {
	d := newNoopDevice(t)
	desc := testProgramDesc()
	desc.Uniforms = append(desc.Uniforms, lumen.UniformDecl{Name: "d", Type: lumen.TypeDouble})
	_, err := d.CreateProgram(desc)
	var sbe *lumen.ShaderBuildError
	if !errors.As(err, &sbe) || sbe.Stage != "link" {
		t.Fatalf("CreateProgram = %v, want a link ShaderBuildError", err)
	}
	if !errors.Is(err, lumen.ErrShaderBuildFailed) {
		t.Error("error does not match ErrShaderBuildFailed")
	}
}

func TestProgramMissingSource(t *testing.T) {
	d := newNoopDevice(t)
	_, err := d.CreateProgram(&lumen.ProgramDesc{Label: "empty"})
	var sbe *lumen.ShaderBuildError
	if !errors.As(err, &sbe) || sbe.Stage != "vertex" {
		t.Fatalf("CreateProgram = %v, want a vertex ShaderBuildError", err)
	}
}

// discard abandons a pass without submitting it.
func discard(p *pass) {
	p.rp.End()
	p.encoder.DiscardEncoding()
	p.release()
}

func TestPassDrawCachesPipelines(t *testing.T) {
	d := newNoopDevice(t)
	prog := newTestProgram(t, d)

	target, err := d.BackBuffer(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	vb, err := d.CreateBuffer(&lumen.BufferDescriptor{Size: 24}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer vb.Destroy()
	tex, err := d.CreateTexture(&lumen.TextureDesc{Width: 2, Height: 2, Format: lumen.FormatRGBA8})
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Destroy()

	lp, err := d.BeginPass(target, lumen.ClearTo(mgl32.Vec4{0, 0, 0, 1}))
	if err != nil {
		t.Fatalf("BeginPass: %v", err)
	}
	p := lp.(*pass)
	defer discard(p)

	call := &lumen.DrawCall{
		Mode:       lumen.Triangle,
		Streams:    []lumen.VertexStream{{Buffer: vb, Stride: 8}},
		Attributes: []lumen.AttributeBinding{{Location: 0, Format: lumen.Float32x2}},
		Count:      3,
	}
	state := lumen.DefaultRenderState()

	if err := p.SetProgram(prog); err != nil {
		t.Fatal(err)
	}
	if err := p.SetTexture(0, tex); err != nil {
		t.Fatal(err)
	}
	if err := p.SetUniform(0, lumen.TypeVec4, mgl32.Vec4{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetState(&state); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := p.Draw(call); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}

	state.Blending.Enabled = true
	if err := p.SetState(&state); err != nil {
		t.Fatal(err)
	}
	if err := p.SetUniform(1, lumen.TypeFloat, float32(0.5)); err != nil {
		t.Fatal(err)
	}
	if err := p.Draw(call); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	st := d.Stats()
	if st.Draws != 3 || st.PipelinesCreated != 2 || st.PipelineHits != 1 {
		t.Errorf("stats = %+v, want 3 draws, 2 pipelines, 1 hit", st)
	}
	// Two uniform uploads: the first draw and the one after SetUniform.
	if len(p.buffers) != 2 {
		t.Errorf("uniform buffers = %d, want 2", len(p.buffers))
	}
}

func TestPassSkipsFullyCulledTriangles(t *testing.T) {
	d := newNoopDevice(t)
	prog := newTestProgram(t, d)
	target, err := d.BackBuffer(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	lp, err := d.BeginPass(target, lumen.ClearPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	p := lp.(*pass)
	defer discard(p)

	state := lumen.DefaultRenderState()
	state.Culling = lumen.Culling{Enabled: true, Face: lumen.FaceFrontAndBack}
	_ = p.SetProgram(prog)
	_ = p.SetState(&state)
	if err := p.Draw(&lumen.DrawCall{Mode: lumen.Triangle, Count: 3}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if st := d.Stats(); st.Draws != 0 || st.PipelinesCreated != 0 {
		t.Errorf("culled draw recorded: %+v", st)
	}
}

func TestPassWithoutProgram(t *testing.T) {
	d := newNoopDevice(t)
	target, err := d.BackBuffer(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	lp, err := d.BeginPass(target, lumen.ClearPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	p := lp.(*pass)
	defer discard(p)
	if err := p.Draw(&lumen.DrawCall{Mode: lumen.Triangle, Count: 3}); !errors.Is(err, errNoProgram) {
		t.Errorf("Draw = %v, want errNoProgram", err)
	}
}

func TestRenderPassDescriptor(t *testing.T) {
	d := newNoopDevice(t)
	color, err := d.CreateTexture(&lumen.TextureDesc{Width: 2, Height: 2, Format: lumen.FormatRGBA8})
	if err != nil {
		t.Fatal(err)
	}
	defer color.Destroy()
	depth, err := d.CreateTexture(&lumen.TextureDesc{Width: 2, Height: 2, Format: lumen.FormatDepth32F})
	if err != nil {
		t.Fatal(err)
	}
	defer depth.Destroy()
	dfb, err := d.CreateFramebuffer(&lumen.FramebufferDescriptor{
		Width: 2, Height: 2,
		Color:       []lumen.DeviceTexture{color},
		Formats:     []lumen.PixelFormat{lumen.FormatRGBA8},
		Depth:       depth,
		DepthFormat: lumen.FormatDepth32F,
	})
	if err != nil {
		t.Fatal(err)
	}
	fb := dfb.(*framebuffer)

	desc := renderPassDescriptor(fb, lumen.ClearPolicy{})
	if desc.ColorAttachments[0].LoadOp != gputypes.LoadOpLoad || desc.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpLoad {
		t.Error("zero clear policy clears")
	}

	desc = renderPassDescriptor(fb, lumen.ClearPolicy{ClearColor: true, Color: mgl32.Vec4{1, 0, 0, 1}, ClearDepth: true, Depth: 0.25})
	ca := desc.ColorAttachments[0]
	if ca.LoadOp != gputypes.LoadOpClear || ca.ClearValue.R != 1 || ca.ClearValue.A != 1 {
		t.Errorf("color attachment = %+v", ca)
	}
	if ds := desc.DepthStencilAttachment; ds.DepthLoadOp != gputypes.LoadOpClear || ds.DepthClearValue != 0.25 {
		t.Errorf("depth attachment = %+v", ds)
	}
	if desc.DepthStencilAttachment.StencilLoadOp == gputypes.LoadOpClear {
		t.Error("stencil cleared on a format without stencil")
	}
}

func TestLostDevice(t *testing.T) {
	d := newNoopDevice(t)
	d.Lose()
	if _, err := d.CreateBuffer(&lumen.BufferDescriptor{Size: 4}, nil); !errors.Is(err, lumen.ErrContextLost) {
		t.Errorf("CreateBuffer after Lose = %v, want ErrContextLost", err)
	}
	if _, err := d.CreateProgram(testProgramDesc()); !errors.Is(err, lumen.ErrContextLost) {
		t.Errorf("CreateProgram after Lose = %v, want ErrContextLost", err)
	}
}
