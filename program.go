// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

// ShaderSource is one shader stage. Backends read the field they
// understand: WGSL or SPIRV for backend/wgpu, Native for backend/soft.
type ShaderSource struct {
	WGSL  string
	SPIRV []uint32
	Entry string // entry point; backends pick a default when empty
	// Native carries a backend specific shader value, such as a Go
	// function for the software device.
	Native any
}

// VertexInput is a vertex attribute a program consumes. The input at index
// i of ProgramDesc.Inputs is shader location i.
type VertexInput struct {
	Name   string
	Format AttributeFormat
}

// ProgramDesc describes a shader program.
type ProgramDesc struct {
	Label    string
	Vertex   ShaderSource
	Fragment ShaderSource
	Inputs   []VertexInput
	Uniforms []UniformDecl
}

// Program is a linked shader program and its uniform interface.
type Program struct {
	resource
	label string
	desc  ProgramDesc
	dev   DeviceProgram
	iface *UniformInterface
	gen   uint64
}

// NewProgram compiles and links desc. A compile or link failure returns a
// *ShaderBuildError and no Program.
func NewProgram(ctx *Context, desc ProgramDesc) (*Program, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	p := &Program{label: desc.Label}
	p.ctx = ctx
	dp, iface, err := p.link(&desc, 1)
	if err != nil {
		return nil, err
	}
	p.desc = cloneProgramDesc(desc)
	p.dev = dp
	p.iface = iface
	p.gen = 1
	p.h = ctx.table.alloc(kindProgram, desc.Label, func() { p.dev.Destroy() })
	ctx.logger().Debug("lumen: program linked", "label", desc.Label,
		"inputs", len(desc.Inputs), "uniforms", len(desc.Uniforms))
	return p, nil
}

// link builds a device program for desc and resolves its interface.
func (p *Program) link(desc *ProgramDesc, gen uint64) (DeviceProgram, *UniformInterface, error) {
	c := p.ctx
	if err := c.validateProgram(desc); err != nil {
		return nil, nil, err
	}
	dp, err := c.dev.CreateProgram(desc)
	if err != nil {
		return nil, nil, c.createErr("program", err)
	}
	iface, inactive, err := resolveInterface(p, gen, desc.Uniforms, dp.Uniforms(), c.opts.strictUniforms)
	if err != nil {
		dp.Destroy()
		return nil, nil, err
	}
	for _, name := range inactive {
		c.logger().Warn("lumen: uniform is not used by the program", "program", desc.Label, "uniform", name)
	}
	return dp, iface, nil
}

func (c *Context) validateProgram(desc *ProgramDesc) error {
	seen := make(map[string]bool, len(desc.Inputs))
	for _, in := range desc.Inputs {
		if in.Name == "" || seen[in.Name] {
			return fmt.Errorf("%w: vertex input name %q is empty or repeated", ErrInvalidValue, in.Name)
		}
		if !in.Format.Valid() {
			return fmt.Errorf("%w: vertex input %q format %v", ErrInvalidValue, in.Name, in.Format)
		}
		seen[in.Name] = true
	}
	clear(seen)
	samplers := 0
	for _, u := range desc.Uniforms {
		if u.Name == "" || seen[u.Name] {
			return fmt.Errorf("%w: uniform name %q is empty or repeated", ErrInvalidValue, u.Name)
		}
		if !u.Type.Valid() {
			return fmt.Errorf("%w: uniform %q type %v", ErrInvalidValue, u.Name, u.Type)
		}
		seen[u.Name] = true
		if u.Type.IsDouble() && !c.caps.Float64Uniforms {
			return fmt.Errorf("%w: double precision uniform %q", ErrUnsupported, u.Name)
		}
		if u.Type == TypeSampler2D {
			samplers++
		}
	}
	if samplers > c.caps.MaxTextureUnits {
		return fmt.Errorf("%w: %d sampler uniforms, device has %d texture units",
			ErrUnsupported, samplers, c.caps.MaxTextureUnits)
	}
	return nil
}

func cloneProgramDesc(d ProgramDesc) ProgramDesc {
	d.Inputs = append([]VertexInput(nil), d.Inputs...)
	d.Uniforms = append([]UniformDecl(nil), d.Uniforms...)
	return d
}

// Interface returns the uniform interface of the current generation.
func (p *Program) Interface() *UniformInterface { return p.iface }

// Inputs returns the declared vertex inputs.
func (p *Program) Inputs() []VertexInput {
	return append([]VertexInput(nil), p.desc.Inputs...)
}

// Generation counts successful links, starting at 1.
func (p *Program) Generation() uint64 { return p.gen }

// Label returns the debug label.
func (p *Program) Label() string { return p.label }

// Rebuild relinks the program from desc. On success the new stages
// replace the old ones and a fresh interface is resolved; handles of the
// previous interface fail with [ErrStaleUniform] from then on. On failure
// the program keeps working as before.
func (p *Program) Rebuild(desc ProgramDesc) error {
	c := p.ctx
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	if err := p.check(c); err != nil {
		return err
	}
	dp, iface, err := p.link(&desc, p.gen+1)
	if err != nil {
		c.logger().Warn("lumen: program rebuild failed, keeping previous build", "label", p.label, "error", err)
		return err
	}
	p.dev.Destroy()
	p.dev = dp
	p.iface = iface
	p.desc = cloneProgramDesc(desc)
	p.gen++
	c.logger().Debug("lumen: program rebuilt", "label", p.label, "generation", p.gen)
	return nil
}

// Release frees the program.
func (p *Program) Release() { p.releaseResource() }
