// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package lumen is a type-driven rendering layer over a stateful GPU
// device.
//
// # Overview
//
// The caller describes what to render: geometry, shader programs,
// textures, render targets and per-draw state. lumen checks what the
// device would otherwise leave undefined: binding order, vertex layouts
// against shader inputs, uniform types and exclusive access to the
// device.
//
// # Quick Start
//
//	dev := soft.New(soft.Config{})
//	ctx, err := lumen.NewContext(dev)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	tess, _ := lumen.NewTess(ctx, lumen.TessDesc{Mode: lumen.Triangle, Vertices: []*lumen.Buffer{vertices}})
//	target, _ := lumen.NewFramebuffer(ctx, lumen.FramebufferDesc{
//	    Width: 256, Height: 256,
//	    Color: []lumen.Attachment{{Format: lumen.FormatRGBA8}},
//	})
//
//	err = ctx.Pipeline(target, lumen.ClearTo(mgl32.Vec4{0, 0, 0, 1}),
//	    func(_ *lumen.Pipeline, sg lumen.ShadingGate) error {
//	        return sg.Shade(program, func(pi *lumen.ProgramInterface, rg lumen.RenderGate) error {
//	            if err := tint.Set(pi, mgl32.Vec4{1, 0.5, 0, 1}); err != nil {
//	                return err
//	            }
//	            return rg.Render(lumen.DefaultRenderState(), func(tg lumen.TessGate) error {
//	                return tg.Render(tess)
//	            })
//	        })
//	    })
//
// # Context
//
// A [Context] is the capability token for one [Device]. Every resource
// belongs to the context that created it and every operation goes
// through it. A device has at most one live context, and a context is
// used by one goroutine at a time.
//
// # Pipelines
//
// A pipeline binds a target, then a program, then a render state, then
// draws. Each step needs the previous one; skipping a level fails with
// [ErrInvalidStateTransition] and nothing reaches the device. Any failure
// ends the pipeline and returns the context to Idle with every borrowed
// resource returned. The closure form, [Context.Pipeline], also cleans up
// when the callback panics.
//
// # Uniforms
//
// Uniform handles are resolved once, when the program links. Setting a
// uniform through a handle is a slice index and a type comparison;
// [Uniform] moves the type comparison to resolution time.
//
// # Backends
//
// backend/soft is a CPU device used for tests and headless rendering.
// backend/wgpu drives gogpu/wgpu. The backend package picks one by name
// or priority.
package lumen
