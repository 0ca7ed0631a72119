// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
)

// VertexShader is the vertex stage of a software program. Set it as the
// Native field of ProgramDesc.Vertex.
type VertexShader struct {
	// Uniforms lists the uniforms Main reads. Uniforms declared by the
	// program but used by neither stage resolve as inactive.
	Uniforms []lumen.UniformDecl
	// Varyings is the number of floats Main writes to Vertex.Varyings.
	Varyings int
	Main     func(v *Vertex)
}

// FragmentShader is the fragment stage of a software program. Set it as
// the Native field of ProgramDesc.Fragment.
type FragmentShader struct {
	Uniforms []lumen.UniformDecl
	// Varyings is the number of interpolated floats Main reads. It must
	// not exceed what the vertex stage writes.
	Varyings int
	Main     func(f *Fragment)
}

// Vertex is the state of one vertex shader invocation.
type Vertex struct {
	VertexIndex   int
	InstanceIndex int
	// Inputs holds the program inputs by location, widened to four
	// components with (0, 0, 0, 1) defaults. Integer inputs are converted
	// to float.
	Inputs   []mgl32.Vec4
	Uniforms *Uniforms

	// Outputs.
	Position mgl32.Vec4 // clip space
	Varyings []float32
}

// Fragment is the state of one fragment shader invocation.
type Fragment struct {
	// FragCoord is the pixel center in target coordinates, the fragment
	// depth and 1/w.
	FragCoord   mgl32.Vec4
	FrontFacing bool
	Varyings    []float32
	Uniforms    *Uniforms

	// Outputs: one color per attachment. Discard drops the fragment.
	Colors  []mgl32.Vec4
	Discard bool
}

// Uniforms gives shaders access to the current uniform values.
type Uniforms struct {
	prog     *program
	textures []*texture
}

// Get returns the value of the uniform name, or the zero value when it
// is unset or of another type.
func Get[T any](u *Uniforms, name string) T {
	var zero T
	loc, ok := u.prog.locations[name]
	if !ok {
		return zero
	}
	v, ok := u.prog.values[loc].(T)
	if !ok {
		return zero
	}
	return v
}

// Sample samples the texture bound to the sampler uniform name. An
// unbound sampler reads as transparent black.
func (u *Uniforms) Sample(name string, uv mgl32.Vec2) mgl32.Vec4 {
	unit, ok := u.unit(name)
	if !ok {
		return mgl32.Vec4{}
	}
	return u.textures[unit].sample(uv)
}

// TextureSize returns the size of the texture bound to name.
func (u *Uniforms) TextureSize(name string) (width, height int) {
	unit, ok := u.unit(name)
	if !ok {
		return 0, 0
	}
	t := u.textures[unit]
	return t.w, t.h
}

func (u *Uniforms) unit(name string) (int, bool) {
	loc, ok := u.prog.locations[name]
	if !ok || u.prog.types[loc] != lumen.TypeSampler2D {
		return 0, false
	}
	unit, ok := u.prog.values[loc].(int32)
	if !ok || int(unit) >= len(u.textures) || u.textures[unit] == nil {
		return 0, false
	}
	return int(unit), true
}

// program is a linked software program. Uniform values persist across
// passes, as with a GL program object.
type program struct {
	vertex    VertexShader
	fragment  FragmentShader
	inputs    []lumen.VertexInput
	active    []lumen.UniformInfo
	locations map[string]int
	types     []lumen.UniformType
	values    []any
}

var _ lumen.DeviceProgram = (*program)(nil)

// CreateProgram implements lumen.Device.
func (d *Device) CreateProgram(desc *lumen.ProgramDesc) (lumen.DeviceProgram, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	buildErr := func(stage, format string, args ...any) error {
		return &lumen.ShaderBuildError{Program: desc.Label, Stage: stage, Log: fmt.Sprintf(format, args...)}
	}

	vs, ok := desc.Vertex.Native.(VertexShader)
	if !ok {
		return nil, buildErr("vertex", "source is %T, want soft.VertexShader", desc.Vertex.Native)
	}
	if vs.Main == nil {
		return nil, buildErr("vertex", "no entry point")
	}
	fs, ok := desc.Fragment.Native.(FragmentShader)
	if !ok {
		return nil, buildErr("fragment", "source is %T, want soft.FragmentShader", desc.Fragment.Native)
	}
	if fs.Main == nil {
		return nil, buildErr("fragment", "no entry point")
	}
	if fs.Varyings > vs.Varyings {
		return nil, buildErr("link", "fragment stage reads %d varyings, vertex stage writes %d", fs.Varyings, vs.Varyings)
	}

	p := &program{
		vertex:    vs,
		fragment:  fs,
		inputs:    append([]lumen.VertexInput(nil), desc.Inputs...),
		locations: make(map[string]int),
	}
	for _, stage := range [][]lumen.UniformDecl{vs.Uniforms, fs.Uniforms} {
		for _, u := range stage {
			if loc, seen := p.locations[u.Name]; seen {
				if p.types[loc] != u.Type {
					return nil, buildErr("link", "uniform %q is %v in one stage and %v in the other",
						u.Name, p.types[loc], u.Type)
				}
				continue
			}
			loc := len(p.types)
			p.locations[u.Name] = loc
			p.types = append(p.types, u.Type)
			p.active = append(p.active, lumen.UniformInfo{Name: u.Name, Type: u.Type, Location: loc})
		}
	}
	p.values = make([]any, len(p.types))
	d.log().Debug("soft: program linked", "label", desc.Label, "uniforms", len(p.active))
	return p, nil
}

func (p *program) Uniforms() []lumen.UniformInfo {
	return append([]lumen.UniformInfo(nil), p.active...)
}

func (p *program) Destroy() { p.values = nil }
