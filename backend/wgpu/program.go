// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"
	"regexp"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen"
)

const (
	defaultVertexEntry   = "vs_main"
	defaultFragmentEntry = "fs_main"
)

// program is a linked WGSL or SPIR-V program. The uniform block contents
// persist across passes, as with a GL program object.
type program struct {
	dev      *Device
	id       uint64
	label    string
	vertex   hal.ShaderModule
	fragment hal.ShaderModule // same as vertex when both stages share a source
	vsEntry  string
	fsEntry  string
	inputs   int

	slots    []slot
	active   []lumen.UniformInfo
	block    []byte
	dirty    bool
	units    []int32 // texture unit of each sampler uniform
	samplers int

	uniformLayout hal.BindGroupLayout
	textureLayout hal.BindGroupLayout // nil without sampler uniforms
	layout        hal.PipelineLayout

	pipelines map[uint64]hal.RenderPipeline
}

var _ lumen.DeviceProgram = (*program)(nil)

// CreateProgram implements lumen.Device.
func (d *Device) CreateProgram(desc *lumen.ProgramDesc) (lumen.DeviceProgram, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	buildErr := func(stage string, err error) error {
		return &lumen.ShaderBuildError{Program: desc.Label, Stage: stage, Log: err.Error()}
	}

	slots, size, err := blockLayout(desc.Uniforms)
	if err != nil {
		return nil, buildErr("link", err)
	}

	d.nextProgram++
	p := &program{
		dev:       d,
		id:        d.nextProgram,
		label:     desc.Label,
		vsEntry:   entryPoint(desc.Vertex.Entry, defaultVertexEntry),
		fsEntry:   entryPoint(desc.Fragment.Entry, defaultFragmentEntry),
		inputs:    len(desc.Inputs),
		slots:     slots,
		block:     make([]byte, size),
		dirty:     true,
		pipelines: make(map[uint64]hal.RenderPipeline),
	}

	p.vertex, err = d.shaderModule(desc.Label+"_vs", &desc.Vertex)
	if err != nil {
		return nil, buildErr("vertex", err)
	}
	if sameSource(&desc.Vertex, &desc.Fragment) {
		p.fragment = p.vertex
	} else if p.fragment, err = d.shaderModule(desc.Label+"_fs", &desc.Fragment); err != nil {
		p.Destroy()
		return nil, buildErr("fragment", err)
	}

	sources := desc.Vertex.WGSL + "\n" + desc.Fragment.WGSL
	spirv := desc.Vertex.WGSL == "" || desc.Fragment.WGSL == ""
	for i, s := range slots {
		if s.sampler >= 0 {
			p.samplers++
		}
		if s.sampler >= 0 || spirv || readsMember(sources, s.name) {
			p.active = append(p.active, lumen.UniformInfo{Name: s.name, Type: s.typ, Location: i})
		}
	}
	p.units = make([]int32, p.samplers)

	if err := p.createLayouts(); err != nil {
		p.Destroy()
		return nil, buildErr("link", err)
	}
	d.log().Debug("wgpu: program linked", "label", desc.Label,
		"uniforms", len(p.active), "block", size, "samplers", p.samplers)
	return p, nil
}

func entryPoint(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

func sameSource(a, b *lumen.ShaderSource) bool {
	return a.WGSL != "" && a.WGSL == b.WGSL && a.SPIRV == nil && b.SPIRV == nil
}

// readsMember reports whether src accesses a struct member called name.
func readsMember(src, name string) bool {
	re := regexp.MustCompile(`\.\s*` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(src)
}

// shaderModule compiles one stage. WGSL goes through naga; SPIR-V is
// passed through.
func (d *Device) shaderModule(label string, src *lumen.ShaderSource) (hal.ShaderModule, error) {
	code := src.SPIRV
	if code == nil {
		if src.WGSL == "" {
			return nil, fmt.Errorf("no WGSL or SPIR-V source")
		}
		var err error
		if code, err = compileWGSL(src.WGSL); err != nil {
			return nil, err
		}
	}
	return d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
}

// compileWGSL compiles WGSL to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

func (p *program) createLayouts() error {
	d := p.dev.device
	var entries []gputypes.BindGroupLayoutEntry
	if len(p.block) > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	var err error
	p.uniformLayout, err = d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.label + "_uniform_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create uniform layout: %w", err)
	}
	layouts := []hal.BindGroupLayout{p.uniformLayout}

	if p.samplers > 0 {
		texEntries := make([]gputypes.BindGroupLayoutEntry, 0, 2*p.samplers)
		for k := range p.samplers {
			texEntries = append(texEntries,
				gputypes.BindGroupLayoutEntry{
					Binding:    uint32(2 * k), //nolint:gosec // G115: sampler count is below MaxTextureUnits
					Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2D,
					},
				},
				gputypes.BindGroupLayoutEntry{
					Binding:    uint32(2*k + 1), //nolint:gosec // G115: sampler count is below MaxTextureUnits
					Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				})
		}
		p.textureLayout, err = d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   p.label + "_texture_layout",
			Entries: texEntries,
		})
		if err != nil {
			return fmt.Errorf("create texture layout: %w", err)
		}
		layouts = append(layouts, p.textureLayout)
	}

	p.layout, err = d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_pipe_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	return nil
}

func (p *program) Uniforms() []lumen.UniformInfo {
	return append([]lumen.UniformInfo(nil), p.active...)
}

// set stores a uniform value. Sampler values are texture units.
func (p *program) set(location int, value any) error {
	if location < 0 || location >= len(p.slots) {
		return fmt.Errorf("wgpu: uniform location %d out of range", location)
	}
	s := p.slots[location]
	if s.sampler >= 0 {
		unit, ok := value.(int32)
		if !ok {
			return fmt.Errorf("wgpu: sampler %q value is %T, want a texture unit", s.name, value)
		}
		p.units[s.sampler] = unit
		return nil
	}
	n, _ := wgslLayout(s.typ)
	if err := pack(p.block[s.offset:s.offset+n], value); err != nil {
		return err
	}
	p.dirty = true
	return nil
}

// Destroy releases the cached pipelines, layouts and shader modules.
func (p *program) Destroy() {
	if p.dev == nil {
		return
	}
	d := p.dev.device
	for key, rp := range p.pipelines {
		d.DestroyRenderPipeline(rp)
		delete(p.pipelines, key)
	}
	if p.layout != nil {
		d.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.textureLayout != nil {
		d.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.uniformLayout != nil {
		d.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.fragment != nil && p.fragment != p.vertex {
		d.DestroyShaderModule(p.fragment)
	}
	if p.vertex != nil {
		d.DestroyShaderModule(p.vertex)
	}
	p.vertex, p.fragment = nil, nil
}
