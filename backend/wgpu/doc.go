// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements lumen.Device on the gogpu/wgpu hardware
// abstraction layer, which drives Vulkan, Metal, DX12 and GLES.
//
// A Device is built from an open hal.Device and hal.Queue:
//
//	dev := wgpu.New(halDevice, halQueue, wgpu.Config{})
//	ctx, err := lumen.NewContext(dev)
//
// Windowing hosts that implement gpucontext.DeviceProvider hand their
// device over with [FromProvider]; [Open] creates a standalone device.
//
// # Shaders
//
// Programs are written in WGSL and compiled to SPIR-V with naga. Both
// stages may share one source; the entry points default to vs_main and
// fs_main. Input i of ProgramDesc.Inputs is @location(i).
//
// Uniforms other than samplers live in one uniform buffer at
// @group(0) @binding(0). Its struct must declare them in the order of
// ProgramDesc.Uniforms, using the WGSL type of each lumen type (bool is
// carried as u32):
//
//	struct Uniforms {
//	    t: f32,
//	    color: vec4<f32>,
//	}
//	@group(0) @binding(0) var<uniform> u: Uniforms;
//
// The k-th sampler2D uniform is a texture_2d<f32> at @group(1)
// @binding(2k) and its sampler at @group(1) @binding(2k+1).
//
// A uniform is reported active when the source reads it as a member
// (".name"). Sampler uniforms and uniforms of SPIR-V programs are always
// active.
//
// # Limits
//
// WebGPU has no three-channel texture formats, no triangle fans and no
// double precision uniforms; Caps leaves them out. Culling both faces
// skips triangle draws.
package wgpu
