// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"errors"
	"fmt"
)

// ExecState is the state of the pipeline executor.
type ExecState uint8

const (
	// Idle means no pipeline is running.
	Idle ExecState = iota
	// TargetBound means a target is bound and cleared.
	TargetBound
	// ShadingBound means a program is in use; uniforms may be set.
	ShadingBound
	// RenderStateBound means a render state is applied; draws may be issued.
	RenderStateBound
	// Rendering is held while a draw is submitted.
	Rendering
)

func (s ExecState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case TargetBound:
		return "TargetBound"
	case ShadingBound:
		return "ShadingBound"
	case RenderStateBound:
		return "RenderStateBound"
	case Rendering:
		return "Rendering"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// scope levels, indexes into Pipeline.scopes.
const (
	levelTarget = iota
	levelShading
	levelRenderState
)

// Pipeline is one execution against one target. It is created by
// [Context.Begin] and runs until [Pipeline.End] or the first failing
// operation, either of which returns the context to Idle.
//
// The executor moves strictly one level at a time:
//
//	Idle -> TargetBound -> ShadingBound -> RenderStateBound -> Rendering
//
// Any failing operation unwinds the whole pipeline: the pass is ended,
// every borrowed resource is returned and releases deferred during the
// pipeline are carried out.
type Pipeline struct {
	ctx    *Context
	id     uint64
	target *Framebuffer
	pass   Pass
	state  ExecState
	ended  bool
	err    error

	nextScope uint64
	scopes    []uint64

	program  *Program
	pi       *ProgramInterface
	rs       RenderState
	units    []*Texture
	borrowed []handle
}

// Begin binds target and applies clear once. The context stays busy until
// the pipeline ends.
func (c *Context) Begin(target *Framebuffer, clear ClearPolicy) (*Pipeline, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	if target == nil {
		c.leave()
		return nil, fmt.Errorf("%w: nil target", ErrInvalidValue)
	}
	if err := target.check(c); err != nil {
		c.leave()
		return nil, err
	}

	c.epoch++
	c.stats.PipelinesBegun++
	p := &Pipeline{ctx: c, id: c.epoch, target: target}
	p.borrow(target.h)
	for _, t := range target.attachments() {
		p.borrow(t.h)
	}
	pass, err := c.dev.BeginPass(target.dev, clear)
	if err != nil {
		for _, h := range p.borrowed {
			c.table.unborrow(h)
		}
		c.stats.PipelinesFailed++
		c.leave()
		return nil, c.deviceErr(err)
	}
	p.pass = pass
	p.state = TargetBound
	p.push(levelTarget)
	c.pipeline = p
	c.logger().Debug("lumen: pipeline begin", "pipeline", p.id, "target", target.label)
	return p, nil
}

// State returns the current executor state.
func (p *Pipeline) State() ExecState { return p.state }

// Err returns the error that ended the pipeline, if any.
func (p *Pipeline) Err() error { return p.err }

// Target returns the bound target.
func (p *Pipeline) Target() *Framebuffer { return p.target }

func (p *Pipeline) borrow(h handle) {
	if p.ctx.table.borrow(h) {
		p.borrowed = append(p.borrowed, h)
	}
}

func (p *Pipeline) push(level int) {
	p.nextScope++
	p.scopes = append(p.scopes[:level], p.nextScope)
}

func (p *Pipeline) pop(level int) {
	p.scopes = p.scopes[:level]
}

func (p *Pipeline) inScope(level int, id uint64) bool {
	return !p.ended && len(p.scopes) > level && p.scopes[level] == id
}

// enter checks that the pipeline can take an operation that requires
// state want.
func (p *Pipeline) enter(op string, want ExecState) error {
	if p.ended {
		return ErrPipelineEnded
	}
	if p.ctx.lost.Load() {
		return p.fail(ErrContextLost)
	}
	if p.state != want {
		return p.fail(fmt.Errorf("%w: %s in state %v, needs %v", ErrInvalidStateTransition, op, p.state, want))
	}
	return nil
}

// fail unwinds the pipeline and returns err.
func (p *Pipeline) fail(err error) error {
	if p.ended {
		return err
	}
	p.err = err
	p.ctx.logger().Debug("lumen: pipeline failed", "pipeline", p.id, "state", p.state, "error", err)
	p.unwind()
	return err
}

// cause replaces ErrPipelineEnded with the failure that ended the
// pipeline, if there was one.
func (p *Pipeline) cause(err error) error {
	if p.err != nil && errors.Is(err, ErrPipelineEnded) {
		return p.err
	}
	return err
}

// unwind returns the context to Idle. It runs at most once.
func (p *Pipeline) unwind() error {
	if p.ended {
		return nil
	}
	c := p.ctx
	p.ended = true
	p.state = Idle
	p.scopes = nil
	p.program = nil
	p.units = nil

	endErr := c.deviceErr(p.pass.End())
	for _, h := range p.borrowed {
		c.table.unborrow(h)
	}
	p.borrowed = nil
	if n := c.table.drain(); n > 0 {
		c.logger().Warn("lumen: released resources destroyed at pipeline end", "pipeline", p.id, "count", n)
	}
	if p.err == nil && endErr != nil {
		p.err = endErr
	}
	if p.err != nil {
		c.stats.PipelinesFailed++
	} else {
		c.stats.PipelinesCompleted++
	}
	c.pipeline = nil
	c.logger().Debug("lumen: pipeline end", "pipeline", p.id, "error", p.err)
	c.leave()
	return endErr
}

// End finishes the pipeline from any state. It is idempotent: once the
// pipeline has ended, End returns nil.
func (p *Pipeline) End() error {
	return p.unwind()
}

// UseProgram binds prog and returns the interface for setting its
// uniforms. TargetBound -> ShadingBound.
func (p *Pipeline) UseProgram(prog *Program) (*ProgramInterface, error) {
	if err := p.enter("use program", TargetBound); err != nil {
		return nil, err
	}
	if prog == nil {
		return nil, p.fail(fmt.Errorf("%w: nil program", ErrInvalidValue))
	}
	if err := prog.check(p.ctx); err != nil {
		return nil, p.fail(err)
	}
	if err := p.pass.SetProgram(prog.dev); err != nil {
		return nil, p.fail(p.ctx.deviceErr(err))
	}
	p.borrow(prog.h)
	p.program = prog
	p.state = ShadingBound
	p.push(levelShading)
	p.pi = &ProgramInterface{p: p, prog: prog, iface: prog.iface, scope: p.scopes[levelShading]}
	return p.pi, nil
}

// ExitProgram leaves the shading scope. ShadingBound -> TargetBound.
func (p *Pipeline) ExitProgram() error {
	if err := p.enter("exit program", ShadingBound); err != nil {
		return err
	}
	p.pop(levelShading)
	p.program = nil
	p.pi = nil
	p.state = TargetBound
	return nil
}

// SetRenderState applies s. ShadingBound -> RenderStateBound.
func (p *Pipeline) SetRenderState(s RenderState) error {
	if err := p.enter("set render state", ShadingBound); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return p.fail(err)
	}
	if err := p.pass.SetState(&s); err != nil {
		return p.fail(p.ctx.deviceErr(err))
	}
	p.rs = s
	p.state = RenderStateBound
	p.push(levelRenderState)
	return nil
}

// ExitRenderState leaves the render state scope.
// RenderStateBound -> ShadingBound.
func (p *Pipeline) ExitRenderState() error {
	if err := p.enter("exit render state", RenderStateBound); err != nil {
		return err
	}
	p.pop(levelRenderState)
	p.state = ShadingBound
	return nil
}

// Render draws r with the bound program and render state. Rendering zero
// elements, or too few to form one primitive, issues no draw.
func (p *Pipeline) Render(r Renderable) error {
	if err := p.enter("render", RenderStateBound); err != nil {
		return err
	}
	if r == nil {
		return p.fail(fmt.Errorf("%w: nil renderable", ErrInvalidValue))
	}
	t, start, end := r.drawRange()
	if t == nil {
		return p.fail(fmt.Errorf("%w: renderable has no tess", ErrInvalidValue))
	}
	call, err := p.drawCall(t, start, end)
	if err != nil {
		return p.fail(err)
	}
	prims := t.mode.Primitives(call.Count)
	if prims == 0 || p.rs.Culling.discards(t.mode) {
		return nil
	}

	p.borrow(t.h)
	for _, b := range t.vertices {
		p.borrow(b.h)
	}
	if t.indices != nil {
		p.borrow(t.indices.h)
	}
	p.state = Rendering
	if err := p.pass.Draw(call); err != nil {
		return p.fail(p.ctx.deviceErr(err))
	}
	p.state = RenderStateBound
	p.ctx.stats.Draws++
	p.ctx.stats.Primitives += uint64(prims) * uint64(call.Instances) //nolint:gosec // G115: counts are non-negative
	return nil
}

// drawCall checks every resource the draw touches and matches the program
// inputs against the tess attributes by name and format.
func (p *Pipeline) drawCall(t *Tess, start, end int) (*DrawCall, error) {
	c := p.ctx
	if err := t.check(c); err != nil {
		return nil, err
	}
	if start < 0 || start > end || end > t.Len() {
		return nil, fmt.Errorf("%w: range [%d, %d) of tess length %d", ErrOutOfBounds, start, end, t.Len())
	}
	if !p.program.alive() {
		return nil, fmt.Errorf("%w: program %q", ErrResourceReleased, p.program.label)
	}

	call := &DrawCall{
		Mode:      t.mode,
		First:     start,
		Count:     end - start,
		Instances: t.instances,
	}
	for _, b := range t.vertices {
		if err := b.check(c); err != nil {
			return nil, err
		}
		call.Streams = append(call.Streams, VertexStream{Buffer: b.dev, Stride: b.stride})
	}
	if ix := t.indices; ix != nil {
		if err := ix.check(c); err != nil {
			return nil, err
		}
		call.Indices = ix.dev
		call.IndexFormat = ix.index
	}

	for loc, in := range p.program.desc.Inputs {
		found := false
		for s, b := range t.vertices {
			a, ok := b.layout.Attribute(in.Name)
			if !ok {
				continue
			}
			if a.Format != in.Format {
				return nil, fmt.Errorf("%w: input %q is %v, tess provides %v",
					ErrLayoutMismatch, in.Name, in.Format, a.Format)
			}
			call.Attributes = append(call.Attributes, AttributeBinding{
				Location: loc,
				Stream:   s,
				Offset:   a.Offset,
				Format:   a.Format,
			})
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: program %q input %q is not provided by tess %q",
				ErrLayoutMismatch, p.program.label, in.Name, t.label)
		}
	}
	return call, nil
}

// BindTexture binds t to the next free texture unit for the rest of the
// pipeline and returns the value to assign to a sampler uniform. Binding
// the same texture twice returns the same unit. A texture attached to the
// bound target cannot be bound.
func (p *Pipeline) BindTexture(t *Texture) (BoundTexture, error) {
	if p.ended {
		return BoundTexture{}, ErrPipelineEnded
	}
	if p.state < TargetBound {
		return BoundTexture{}, p.fail(fmt.Errorf("%w: bind texture in state %v", ErrInvalidStateTransition, p.state))
	}
	if t == nil {
		return BoundTexture{}, p.fail(fmt.Errorf("%w: nil texture", ErrInvalidValue))
	}
	if err := t.check(p.ctx); err != nil {
		return BoundTexture{}, p.fail(err)
	}
	if p.target.attached(t) {
		return BoundTexture{}, p.fail(fmt.Errorf("%w: %q", ErrFeedbackLoop, t.desc.Label))
	}
	for unit, bound := range p.units {
		if bound == t {
			return BoundTexture{unit: unit, pipeline: p.id, tex: t}, nil
		}
	}
	unit := len(p.units)
	if unit >= p.ctx.caps.MaxTextureUnits {
		return BoundTexture{}, p.fail(fmt.Errorf("%w: texture unit %d, device has %d",
			ErrOutOfBounds, unit, p.ctx.caps.MaxTextureUnits))
	}
	if err := p.pass.SetTexture(unit, t.dev); err != nil {
		return BoundTexture{}, p.fail(p.ctx.deviceErr(err))
	}
	p.borrow(t.h)
	p.units = append(p.units, t)
	return BoundTexture{unit: unit, pipeline: p.id, tex: t}, nil
}

// ProgramInterface sets the uniforms of the program in use. It is valid
// until its shading scope exits.
type ProgramInterface struct {
	p     *Pipeline
	prog  *Program
	iface *UniformInterface
	scope uint64
}

// Interface returns the uniform interface of the bound program.
func (pi *ProgramInterface) Interface() *UniformInterface { return pi.iface }

// Program returns the bound program.
func (pi *ProgramInterface) Program() *Program { return pi.prog }

// Set writes v to the uniform h. The value's type must be exactly the
// uniform's declared type; a mismatch fails with
// [ErrUniformTypeMismatch] before anything reaches the device.
func (pi *ProgramInterface) Set(h UniformHandle, v any) error {
	typ, ok := TypeOf(v)
	if !ok {
		return pi.set(h, h.typ, nil, fmt.Errorf("%w: %T is not a uniform type", ErrUniformTypeMismatch, v))
	}
	return pi.set(h, typ, v, nil)
}

// Query looks a uniform up by name. It is the slow path for code that
// cannot resolve handles up front. An unknown name does not end the
// pipeline.
func (pi *ProgramInterface) Query(name string) (UniformHandle, error) {
	h, ok := pi.iface.Lookup(name)
	if !ok {
		return UniformHandle{}, fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	return h, nil
}

func (pi *ProgramInterface) set(h UniformHandle, typ UniformType, v any, typeErr error) error {
	p := pi.p
	if p.ended {
		return ErrPipelineEnded
	}
	if !p.inScope(levelShading, pi.scope) {
		return p.fail(fmt.Errorf("%w: program interface used outside its shading scope", ErrInvalidStateTransition))
	}
	switch {
	case h.iface == pi.iface:
	case h.iface != nil && h.iface.program == pi.prog:
		return p.fail(fmt.Errorf("%w: %q", ErrStaleUniform, h.name))
	default:
		return p.fail(fmt.Errorf("%w: %q", ErrForeignUniform, h.name))
	}
	if typeErr != nil {
		return p.fail(typeErr)
	}
	if typ != h.typ {
		return p.fail(fmt.Errorf("%w: uniform %q is %v, value is %v", ErrUniformTypeMismatch, h.name, h.typ, typ))
	}
	if !h.active {
		return nil
	}
	if bt, ok := v.(BoundTexture); ok {
		if bt.pipeline != p.id || bt.unit >= len(p.units) || p.units[bt.unit] != bt.tex {
			return p.fail(fmt.Errorf("%w: texture was not bound by this pipeline", ErrInvalidStateTransition))
		}
		v = int32(bt.unit) //nolint:gosec // G115: unit is below MaxTextureUnits
	}
	if err := p.pass.SetUniform(h.location, h.typ, v); err != nil {
		return p.fail(p.ctx.deviceErr(err))
	}
	return nil
}

// Pipeline runs fn inside a pipeline on target. The pipeline is ended on
// every exit path: when fn returns, when it fails and when it panics, in
// which case the panic continues after cleanup.
func (c *Context) Pipeline(target *Framebuffer, clear ClearPolicy, fn func(*Pipeline, ShadingGate) error) (err error) {
	p, err := c.Begin(target, clear)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = p.fail(fmt.Errorf("%w: panic in pipeline: %v", ErrInvalidStateTransition, r))
			panic(r)
		}
	}()
	if err := fn(p, ShadingGate{p: p, scope: p.scopes[levelTarget]}); err != nil {
		return p.fail(p.cause(err))
	}
	if p.err != nil {
		return p.err
	}
	return p.End()
}

// ShadingGate is the target scope of a closure pipeline. It is only
// valid inside the callback it was passed to.
type ShadingGate struct {
	p     *Pipeline
	scope uint64
}

func gateCheck(p *Pipeline, level int, scope uint64) error {
	if p == nil {
		return fmt.Errorf("%w: zero gate", ErrInvalidStateTransition)
	}
	if p.ended {
		return ErrPipelineEnded
	}
	if !p.inScope(level, scope) {
		return p.fail(fmt.Errorf("%w: gate used after its scope exited", ErrInvalidStateTransition))
	}
	return nil
}

// Shade uses prog for the duration of fn.
func (g ShadingGate) Shade(prog *Program, fn func(*ProgramInterface, RenderGate) error) error {
	if err := gateCheck(g.p, levelTarget, g.scope); err != nil {
		return err
	}
	p := g.p
	pi, err := p.UseProgram(prog)
	if err != nil {
		return err
	}
	if err := fn(pi, RenderGate{p: p, scope: p.scopes[levelShading]}); err != nil {
		return p.fail(p.cause(err))
	}
	if p.err != nil {
		return p.err
	}
	return p.ExitProgram()
}

// RenderGate is the shading scope of a closure pipeline.
type RenderGate struct {
	p     *Pipeline
	scope uint64
}

// Render applies s for the duration of fn.
func (g RenderGate) Render(s RenderState, fn func(TessGate) error) error {
	if err := gateCheck(g.p, levelShading, g.scope); err != nil {
		return err
	}
	p := g.p
	if err := p.SetRenderState(s); err != nil {
		return err
	}
	if err := fn(TessGate{p: p, scope: p.scopes[levelRenderState]}); err != nil {
		return p.fail(p.cause(err))
	}
	if p.err != nil {
		return p.err
	}
	return p.ExitRenderState()
}

// TessGate is the render state scope of a closure pipeline.
type TessGate struct {
	p     *Pipeline
	scope uint64
}

// Render draws r.
func (g TessGate) Render(r Renderable) error {
	if err := gateCheck(g.p, levelRenderState, g.scope); err != nil {
		return err
	}
	return g.p.Render(r)
}
