// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen"
)

var errNoProgram = errors.New("soft: no program bound")

// pass draws into one framebuffer.
type pass struct {
	dev      *Device
	fb       *framebuffer
	prog     *program
	textures []*texture
	state    lumen.RenderState
	ended    bool
}

var _ lumen.Pass = (*pass)(nil)

func (p *pass) SetProgram(dp lumen.DeviceProgram) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	prog, ok := dp.(*program)
	if !ok {
		return fmt.Errorf("soft: program is %T, not a soft program", dp)
	}
	p.prog = prog
	return nil
}

func (p *pass) SetUniform(location int, _ lumen.UniformType, value any) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	if p.prog == nil {
		return errNoProgram
	}
	if location < 0 || location >= len(p.prog.values) {
		return fmt.Errorf("soft: uniform location %d out of range", location)
	}
	p.prog.values[location] = value
	return nil
}

func (p *pass) SetTexture(unit int, dt lumen.DeviceTexture) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	t, ok := dt.(*texture)
	if !ok {
		return fmt.Errorf("soft: texture is %T, not a soft texture", dt)
	}
	for len(p.textures) <= unit {
		p.textures = append(p.textures, nil)
	}
	p.textures[unit] = t
	return nil
}

func (p *pass) SetState(s *lumen.RenderState) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	p.state = *s
	return nil
}

func (p *pass) Draw(call *lumen.DrawCall) error {
	if err := p.dev.alive(); err != nil {
		return err
	}
	if p.prog == nil {
		return errNoProgram
	}
	if err := p.draw(call); err != nil {
		return err
	}
	p.dev.stats.Draws++
	return nil
}

func (p *pass) End() error {
	if p.ended {
		return nil
	}
	p.ended = true
	p.prog = nil
	p.textures = nil
	return p.dev.alive()
}

// fragment runs the per-fragment operations for pixel (x, y): scissor,
// depth range, fragment shader, stencil, depth, then blending into every
// color attachment.
func (p *pass) fragment(x, y int, z, invW float32, vary []float32, front bool) {
	fb := p.fb
	if x < 0 || y < 0 || x >= fb.w || y >= fb.h {
		return
	}
	s := &p.state
	if s.Scissor.Enabled {
		r := s.Scissor.Region
		if x < r.X || y < r.Y || x >= r.X+r.Width || y >= r.Y+r.Height {
			return
		}
	}
	if z < 0 || z > 1 {
		return
	}

	f := Fragment{
		FragCoord:   mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, z, invW},
		FrontFacing: front,
		Varyings:    vary,
		Uniforms:    &Uniforms{prog: p.prog, textures: p.textures},
		Colors:      make([]mgl32.Vec4, max(len(fb.color), 1)),
	}
	p.prog.fragment.Main(&f)
	if f.Discard {
		return
	}

	if d := fb.depth; d != nil {
		i := y*fb.w + x
		st := &s.Stencil
		if st.Enabled && d.stencil != nil {
			ref := st.Reference & st.ReadMask
			val := d.stencil[i] & st.ReadMask
			if !st.Compare.Test(float32(ref), float32(val)) {
				d.stencil[i] = stencilOp(st.Fail, d.stencil[i], st.Reference, st.WriteMask)
				return
			}
		}
		if s.Depth.Test {
			if !s.Depth.Compare.Test(z, d.depth[i]) {
				if st.Enabled && d.stencil != nil {
					d.stencil[i] = stencilOp(st.DepthFail, d.stencil[i], st.Reference, st.WriteMask)
				}
				return
			}
			if s.Depth.Write {
				d.depth[i] = z
			}
		}
		if st.Enabled && d.stencil != nil {
			d.stencil[i] = stencilOp(st.Pass, d.stencil[i], st.Reference, st.WriteMask)
		}
	}

	for i, t := range fb.color {
		src := f.Colors[i]
		if s.Blending.Enabled {
			src = blend(&s.Blending, src, t.load(x, y))
		}
		if s.ColorWrite != lumen.MaskNone {
			t.store(x, y, src, s.ColorWrite)
		}
	}
	p.dev.stats.Fragments++
}

func stencilOp(op lumen.StencilOp, cur, ref, writeMask uint8) uint8 {
	var v uint8
	switch op {
	case lumen.StencilZero:
		v = 0
	case lumen.StencilReplace:
		v = ref
	case lumen.StencilIncrement:
		v = cur
		if v < 0xff {
			v++
		}
	case lumen.StencilDecrement:
		v = cur
		if v > 0 {
			v--
		}
	case lumen.StencilInvert:
		v = ^cur
	case lumen.StencilIncrementWrap:
		v = cur + 1
	case lumen.StencilDecrementWrap:
		v = cur - 1
	default:
		return cur
	}
	return cur&^writeMask | v&writeMask
}

// blend combines src with dst using b. Colors are straight, not
// premultiplied; the equation decides.
func blend(b *lumen.Blending, src, dst mgl32.Vec4) mgl32.Vec4 {
	var out mgl32.Vec4
	for ch := range 3 {
		out[ch] = blendChannel(b.Equation, src[ch], dst[ch],
			factor(b.Src, ch, src, dst), factor(b.Dst, ch, src, dst))
	}
	eq, sf, df := b.Alpha()
	out[3] = blendChannel(eq, src[3], dst[3], factor(sf, 3, src, dst), factor(df, 3, src, dst))
	return out
}

func blendChannel(eq lumen.Equation, s, d, sf, df float32) float32 {
	switch eq {
	case lumen.EquationSubtract:
		return s*sf - d*df
	case lumen.EquationReverseSubtract:
		return d*df - s*sf
	case lumen.EquationMin:
		return min(s, d)
	case lumen.EquationMax:
		return max(s, d)
	default:
		return s*sf + d*df
	}
}

func factor(f lumen.Factor, ch int, src, dst mgl32.Vec4) float32 {
	switch f {
	case lumen.FactorZero:
		return 0
	case lumen.FactorOne:
		return 1
	case lumen.FactorSrcColor:
		return src[ch]
	case lumen.FactorOneMinusSrcColor:
		return 1 - src[ch]
	case lumen.FactorDstColor:
		return dst[ch]
	case lumen.FactorOneMinusDstColor:
		return 1 - dst[ch]
	case lumen.FactorSrcAlpha:
		return src[3]
	case lumen.FactorOneMinusSrcAlpha:
		return 1 - src[3]
	case lumen.FactorDstAlpha:
		return dst[3]
	case lumen.FactorOneMinusDstAlpha:
		return 1 - dst[3]
	case lumen.FactorSrcAlphaSaturated:
		if ch == 3 {
			return 1
		}
		return min(src[3], 1-dst[3])
	default:
		return 0
	}
}
