// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft is a CPU implementation of lumen.Device.
//
// It rasterizes points, lines and triangles with WebGPU conventions and
// runs shaders written as Go functions. Output is deterministic, which
// makes it the device of choice for tests and headless rendering.
//
// # Shaders
//
// A program's stages are VertexShader and FragmentShader values passed
// through ShaderSource.Native:
//
//	desc := lumen.ProgramDesc{
//	    Inputs: []lumen.VertexInput{{Name: "position", Format: lumen.Float32x2}},
//	    Vertex: lumen.ShaderSource{Native: soft.VertexShader{
//	        Main: func(v *soft.Vertex) {
//	            p := v.Inputs[0]
//	            v.Position = mgl32.Vec4{p[0], p[1], 0, 1}
//	        },
//	    }},
//	    Fragment: lumen.ShaderSource{Native: soft.FragmentShader{
//	        Uniforms: []lumen.UniformDecl{{Name: "color", Type: lumen.TypeVec4}},
//	        Main: func(f *soft.Fragment) {
//	            f.Colors[0] = soft.Get[mgl32.Vec4](f.Uniforms, "color")
//	        },
//	    }},
//	    Uniforms: []lumen.UniformDecl{{Name: "color", Type: lumen.TypeVec4}},
//	}
//
// The uniforms a stage lists are the ones the linked program reports as
// active.
//
// # Rasterization
//
// Triangles follow the top-left fill rule with perspective-correct
// varyings. Lines are one pixel wide. Primitives with a vertex at or
// behind the eye (w <= 0) are dropped rather than clipped, and fragments
// with depth outside [0, 1] are discarded.
package soft
