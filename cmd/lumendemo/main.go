// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command lumendemo renders a small scene offscreen and saves the
// read-back, optionally comparing it against a golden image.
package main

import (
	"flag"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
	"github.com/gogpu/lumen/backend"
	"github.com/gogpu/lumen/backend/soft"
	_ "github.com/gogpu/lumen/backend/wgpu"
	"github.com/gogpu/lumen/snapshot"
)

func main() {
	var (
		width     = flag.Int("width", 256, "image width")
		height    = flag.Int("height", 256, "image height")
		output    = flag.String("output", "lumendemo.png", "output file (.png, .bmp, .tiff or .lraw)")
		name      = flag.String("backend", "", "backend name; empty picks the best available")
		golden    = flag.String("golden", "", "golden image to compare the output against")
		tolerance = flag.Int("tolerance", 2, "per-channel tolerance of the golden comparison")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		lumen.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	dev, used, err := openDevice(*name)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	if c, ok := dev.(interface{ Close() }); ok {
		defer c.Close()
	}

	ctx, err := lumen.NewContext(dev, lumen.WithLabel("lumendemo"))
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	img, err := render(ctx, *width, *height)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	if err := snapshot.Save(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Rendered with %s, saved to %s (%dx%d)\n", used, *output, *width, *height)

	if *golden == "" {
		return
	}
	want, err := snapshot.Load(*golden)
	if err != nil {
		log.Fatalf("Failed to load golden: %v", err)
	}
	tol := uint8(min(max(*tolerance, 0), 255)) //nolint:gosec // G115: clamped to a byte
	res, err := snapshot.Diff(img, want, tol)
	if err != nil {
		log.Fatalf("Failed to compare: %v", err)
	}
	if !res.Equal() {
		diffPath := strings.TrimSuffix(*output, filepath.Ext(*output)) + ".diff.png"
		if diff, err := snapshot.DiffImage(img, want, tol); err == nil {
			_ = snapshot.Save(diffPath, diff)
		}
		log.Fatalf("Output differs from %s: %v (see %s)", *golden, res, diffPath)
	}
	log.Printf("Output matches %s: %v\n", *golden, res)
}

func openDevice(name string) (lumen.Device, string, error) {
	if name == "" {
		return backend.Default()
	}
	dev, err := backend.Open(name)
	return dev, name, err
}

type vertex struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec4
}

var layout = lumen.Interleaved(
	lumen.VertexInput{Name: "position", Format: lumen.Float32x3},
	lumen.VertexInput{Name: "color", Format: lumen.Float32x4},
)

// shader carries the scene program for every backend: WGSL for wgpu and
// Go functions for soft.
const shader = `
struct Uniforms {
    tint: vec4<f32>,
}
@group(0) @binding(0) var<uniform> u: Uniforms;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 1.0);
    out.color = color * u.tint;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return input.color;
}
`

func programDesc() lumen.ProgramDesc {
	tint := lumen.UniformDecl{Name: "tint", Type: lumen.TypeVec4}
	return lumen.ProgramDesc{
		Label: "scene",
		Vertex: lumen.ShaderSource{WGSL: shader, Native: soft.VertexShader{
			Uniforms: []lumen.UniformDecl{tint},
			Varyings: 4,
			Main: func(v *soft.Vertex) {
				p := v.Inputs[0]
				v.Position = mgl32.Vec4{p[0], p[1], p[2], 1}
				c := v.Inputs[1]
				t := soft.Get[mgl32.Vec4](v.Uniforms, "tint")
				for i := range 4 {
					v.Varyings[i] = c[i] * t[i]
				}
			},
		}},
		Fragment: lumen.ShaderSource{WGSL: shader, Native: soft.FragmentShader{
			Varyings: 4,
			Main: func(f *soft.Fragment) {
				f.Colors[0] = mgl32.Vec4{f.Varyings[0], f.Varyings[1], f.Varyings[2], f.Varyings[3]}
			},
		}},
		Inputs:   layout.Inputs(),
		Uniforms: []lumen.UniformDecl{tint},
	}
}

// render draws an opaque triangle and a translucent quad over it.
func render(ctx *lumen.Context, w, h int) (*image.NRGBA, error) {
	prog, err := lumen.NewProgram(ctx, programDesc())
	if err != nil {
		return nil, err
	}
	tint, err := lumen.Resolve[mgl32.Vec4](prog.Interface(), "tint")
	if err != nil {
		return nil, err
	}

	tri, err := newTess(ctx, lumen.Triangle, []vertex{
		{mgl32.Vec3{-0.8, -0.8, 0}, mgl32.Vec4{1, 0, 0, 1}},
		{mgl32.Vec3{0.8, -0.8, 0}, mgl32.Vec4{0, 1, 0, 1}},
		{mgl32.Vec3{0, 0.8, 0}, mgl32.Vec4{0, 0, 1, 1}},
	})
	if err != nil {
		return nil, err
	}
	quad, err := newTess(ctx, lumen.TriangleStrip, []vertex{
		{mgl32.Vec3{-0.5, -0.5, 0}, mgl32.Vec4{1, 1, 1, 1}},
		{mgl32.Vec3{0.5, -0.5, 0}, mgl32.Vec4{1, 1, 1, 1}},
		{mgl32.Vec3{-0.5, 0.5, 0}, mgl32.Vec4{1, 1, 1, 1}},
		{mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec4{1, 1, 1, 1}},
	})
	if err != nil {
		return nil, err
	}

	fb, err := lumen.NewFramebuffer(ctx, lumen.FramebufferDesc{
		Label:  "scene",
		Width:  w,
		Height: h,
		Color:  []lumen.Attachment{{Format: lumen.FormatRGBA8}},
	})
	if err != nil {
		return nil, err
	}

	opaque := lumen.DefaultRenderState()
	blending := lumen.AlphaBlending()
	blended, err := lumen.Derive(opaque, lumen.Overrides{Blending: &blending})
	if err != nil {
		return nil, err
	}

	err = ctx.Pipeline(fb, lumen.ClearTo(mgl32.Vec4{0.1, 0.1, 0.15, 1}), func(_ *lumen.Pipeline, sg lumen.ShadingGate) error {
		return sg.Shade(prog, func(pi *lumen.ProgramInterface, rg lumen.RenderGate) error {
			if err := tint.Set(pi, mgl32.Vec4{1, 1, 1, 1}); err != nil {
				return err
			}
			if err := rg.Render(opaque, func(tg lumen.TessGate) error { return tg.Render(tri) }); err != nil {
				return err
			}
			if err := tint.Set(pi, mgl32.Vec4{1, 0.9, 0.3, 0.5}); err != nil {
				return err
			}
			return rg.Render(blended, func(tg lumen.TessGate) error { return tg.Render(quad) })
		})
	})
	if err != nil {
		return nil, err
	}
	return fb.Image(0)
}

func newTess(ctx *lumen.Context, mode lumen.Mode, verts []vertex) (*lumen.Tess, error) {
	buf, err := lumen.NewBufferFrom(ctx, layout, lumen.UsageStatic, verts)
	if err != nil {
		return nil, err
	}
	return lumen.NewTess(ctx, lumen.TessDesc{Mode: mode, Vertices: []*lumen.Buffer{buf}})
}
