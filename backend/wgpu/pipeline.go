// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen"
)

// pipeline returns the render pipeline of p for a draw into fb, creating
// it on first use.
func (p *program) pipeline(call *lumen.DrawCall, s *lumen.RenderState, fb *framebuffer) (hal.RenderPipeline, error) {
	d := p.dev
	key := pipelineKey(call, s, fb.formats, fb.depthFormat, fb.depth != nil)
	if rp, ok := p.pipelines[key]; ok {
		d.stats.PipelineHits++
		return rp, nil
	}

	buffers := make([]gputypes.VertexBufferLayout, len(call.Streams))
	for i, st := range call.Streams {
		buffers[i] = gputypes.VertexBufferLayout{
			ArrayStride: uint64(st.Stride), //nolint:gosec // G115: strides are small
			StepMode:    gputypes.VertexStepModeVertex,
		}
	}
	for _, a := range call.Attributes {
		buffers[a.Stream].Attributes = append(buffers[a.Stream].Attributes, gputypes.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         uint64(a.Offset),   //nolint:gosec // G115: offsets are within a stride
			ShaderLocation: uint32(a.Location), //nolint:gosec // G115: locations are small
		})
	}

	blend := blendState(&s.Blending)
	mask := writeMask(s.ColorWrite)
	targets := make([]gputypes.ColorTargetState, len(fb.formats))
	for i, f := range fb.formats {
		tf, ok := textureFormat(f)
		if !ok {
			return nil, fmt.Errorf("%w: color attachment format %v", lumen.ErrUnsupported, f)
		}
		targets[i] = gputypes.ColorTargetState{Format: tf, Blend: blend, WriteMask: mask}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pipeline_%x", p.label, key),
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: p.vsEntry,
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: p.fsEntry,
			Targets:    targets,
		},
		Primitive: primitiveState(call.Mode, s.Culling),
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if fb.depth != nil {
		desc.DepthStencil = depthStencilState(fb.depthFormat, s)
	}

	rp, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create render pipeline for %q: %w", p.label, err)
	}
	p.pipelines[key] = rp
	d.stats.PipelinesCreated++
	d.log().Debug("wgpu: pipeline created", "program", p.label, "mode", call.Mode, "cached", len(p.pipelines))
	return rp, nil
}
