// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

// Equation combines the weighted source and destination colors.
type Equation uint8

const (
	EquationAdd Equation = iota
	EquationSubtract
	EquationReverseSubtract
	EquationMin
	EquationMax

	equationCount
)

func (e Equation) String() string {
	switch e {
	case EquationAdd:
		return "Add"
	case EquationSubtract:
		return "Subtract"
	case EquationReverseSubtract:
		return "ReverseSubtract"
	case EquationMin:
		return "Min"
	case EquationMax:
		return "Max"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Factor weights a blend operand.
type Factor uint8

const (
	FactorZero Factor = iota
	FactorOne
	FactorSrcColor
	FactorOneMinusSrcColor
	FactorDstColor
	FactorOneMinusDstColor
	FactorSrcAlpha
	FactorOneMinusSrcAlpha
	FactorDstAlpha
	FactorOneMinusDstAlpha
	FactorSrcAlphaSaturated

	factorCount
)

var factorNames = [...]string{
	"Zero", "One",
	"SrcColor", "OneMinusSrcColor",
	"DstColor", "OneMinusDstColor",
	"SrcAlpha", "OneMinusSrcAlpha",
	"DstAlpha", "OneMinusDstAlpha",
	"SrcAlphaSaturated",
}

func (f Factor) String() string {
	if f < factorCount {
		return factorNames[f]
	}
	return fmt.Sprintf("Unknown(%d)", f)
}

// Comparison is a depth or stencil test function.
type Comparison uint8

const (
	CompareNever Comparison = iota
	CompareAlways
	CompareEqual
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual

	comparisonCount
)

var comparisonNames = [...]string{
	"Never", "Always", "Equal", "NotEqual", "Less", "LessEqual", "Greater", "GreaterEqual",
}

func (c Comparison) String() string {
	if c < comparisonCount {
		return comparisonNames[c]
	}
	return fmt.Sprintf("Unknown(%d)", c)
}

// Test reports whether a passes the comparison against b.
func (c Comparison) Test(a, b float32) bool {
	switch c {
	case CompareAlways:
		return true
	case CompareEqual:
		return a == b
	case CompareNotEqual:
		return a != b
	case CompareLess:
		return a < b
	case CompareLessEqual:
		return a <= b
	case CompareGreater:
		return a > b
	case CompareGreaterEqual:
		return a >= b
	default:
		return false
	}
}

// StencilOp updates the stencil buffer.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrement
	StencilDecrement
	StencilInvert
	StencilIncrementWrap
	StencilDecrementWrap

	stencilOpCount
)

var stencilOpNames = [...]string{
	"Keep", "Zero", "Replace", "Increment", "Decrement", "Invert", "IncrementWrap", "DecrementWrap",
}

func (o StencilOp) String() string {
	if o < stencilOpCount {
		return stencilOpNames[o]
	}
	return fmt.Sprintf("Unknown(%d)", o)
}

// FaceOrder selects the winding of front faces.
type FaceOrder uint8

const (
	OrderCCW FaceOrder = iota
	OrderCW
)

func (o FaceOrder) String() string {
	switch o {
	case OrderCCW:
		return "CCW"
	case OrderCW:
		return "CW"
	default:
		return fmt.Sprintf("Unknown(%d)", o)
	}
}

// Face selects which faces are culled.
type Face uint8

const (
	FaceBack Face = iota
	FaceFront
	FaceFrontAndBack
)

func (f Face) String() string {
	switch f {
	case FaceBack:
		return "Back"
	case FaceFront:
		return "Front"
	case FaceFrontAndBack:
		return "FrontAndBack"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// ColorMask selects the color channels draws write.
type ColorMask uint8

const (
	MaskRed ColorMask = 1 << iota
	MaskGreen
	MaskBlue
	MaskAlpha

	MaskNone ColorMask = 0
	MaskAll            = MaskRed | MaskGreen | MaskBlue | MaskAlpha
)

func (m ColorMask) String() string {
	if m > MaskAll {
		return fmt.Sprintf("Unknown(%d)", m)
	}
	if m == MaskNone {
		return "None"
	}
	b := make([]byte, 0, 4)
	for i, ch := range "RGBA" {
		if m&(1<<i) != 0 {
			b = append(b, byte(ch))
		}
	}
	return string(b)
}

// Blending configures color blending. When Separate is false the color
// settings also apply to alpha.
type Blending struct {
	Enabled       bool
	Equation      Equation
	Src           Factor
	Dst           Factor
	Separate      bool
	AlphaEquation Equation
	AlphaSrc      Factor
	AlphaDst      Factor
}

// AlphaBlending is straight-alpha "over" blending.
func AlphaBlending() Blending {
	return Blending{Enabled: true, Equation: EquationAdd, Src: FactorSrcAlpha, Dst: FactorOneMinusSrcAlpha}
}

// Alpha returns the effective alpha equation and factors.
func (b Blending) Alpha() (Equation, Factor, Factor) {
	if b.Separate {
		return b.AlphaEquation, b.AlphaSrc, b.AlphaDst
	}
	return b.Equation, b.Src, b.Dst
}

// DepthState configures the depth test.
type DepthState struct {
	Test    bool
	Compare Comparison
	Write   bool
}

// StencilState configures the stencil test. The same settings apply to
// both faces.
type StencilState struct {
	Enabled   bool
	Compare   Comparison
	Reference uint8
	ReadMask  uint8
	WriteMask uint8
	Fail      StencilOp // stencil test failed
	DepthFail StencilOp // stencil passed, depth failed
	Pass      StencilOp // both passed
}

// Culling configures face culling.
type Culling struct {
	Enabled bool
	Order   FaceOrder
	Face    Face
}

// discards reports whether c drops every primitive of mode m: both faces
// culled on triangle geometry.
func (c Culling) discards(m Mode) bool {
	if !c.Enabled || c.Face != FaceFrontAndBack {
		return false
	}
	return m == Triangle || m == TriangleStrip || m == TriangleFan
}

// Scissor restricts drawing to Region, measured from the top-left corner
// of the target.
type Scissor struct {
	Enabled bool
	Region  Region
}

// RenderState is the fixed-function state for a scope of draws. It is a
// comparable value and owns nothing.
type RenderState struct {
	Blending   Blending
	Depth      DepthState
	Stencil    StencilState
	Culling    Culling
	Scissor    Scissor
	ColorWrite ColorMask
}

// DefaultRenderState tests depth with Less and writes it. Blending,
// stencil, culling and scissor are off and all channels are written.
func DefaultRenderState() RenderState {
	return RenderState{
		Blending: Blending{
			Equation:      EquationAdd,
			Src:           FactorOne,
			Dst:           FactorZero,
			AlphaEquation: EquationAdd,
			AlphaSrc:      FactorOne,
			AlphaDst:      FactorZero,
		},
		Depth: DepthState{Test: true, Compare: CompareLess, Write: true},
		Stencil: StencilState{
			Compare:   CompareAlways,
			ReadMask:  0xff,
			WriteMask: 0xff,
		},
		Culling:    Culling{Order: OrderCCW, Face: FaceBack},
		ColorWrite: MaskAll,
	}
}

// Validate rejects enumerated values outside their sets.
func (s RenderState) Validate() error {
	b := s.Blending
	for _, e := range []Equation{b.Equation, b.AlphaEquation} {
		if e >= equationCount {
			return fmt.Errorf("%w: blend equation %v", ErrInvalidValue, e)
		}
	}
	for _, f := range []Factor{b.Src, b.Dst, b.AlphaSrc, b.AlphaDst} {
		if f >= factorCount {
			return fmt.Errorf("%w: blend factor %v", ErrInvalidValue, f)
		}
	}
	if s.Depth.Compare >= comparisonCount {
		return fmt.Errorf("%w: depth comparison %v", ErrInvalidValue, s.Depth.Compare)
	}
	st := s.Stencil
	if st.Compare >= comparisonCount {
		return fmt.Errorf("%w: stencil comparison %v", ErrInvalidValue, st.Compare)
	}
	for _, op := range []StencilOp{st.Fail, st.DepthFail, st.Pass} {
		if op >= stencilOpCount {
			return fmt.Errorf("%w: stencil operation %v", ErrInvalidValue, op)
		}
	}
	if s.Culling.Order > OrderCW {
		return fmt.Errorf("%w: face order %v", ErrInvalidValue, s.Culling.Order)
	}
	if s.Culling.Face > FaceFrontAndBack {
		return fmt.Errorf("%w: cull face %v", ErrInvalidValue, s.Culling.Face)
	}
	if r := s.Scissor.Region; r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: scissor region %v", ErrInvalidValue, r)
	}
	if s.ColorWrite > MaskAll {
		return fmt.Errorf("%w: color mask %v", ErrInvalidValue, s.ColorWrite)
	}
	return nil
}

// Overrides lists the parts of a RenderState a child scope replaces. Nil
// fields are inherited.
type Overrides struct {
	Blending   *Blending
	Depth      *DepthState
	Stencil    *StencilState
	Culling    *Culling
	Scissor    *Scissor
	ColorWrite *ColorMask
}

// Derive returns base with the non-nil fields of o applied.
func Derive(base RenderState, o Overrides) (RenderState, error) {
	s := base
	if o.Blending != nil {
		s.Blending = *o.Blending
	}
	if o.Depth != nil {
		s.Depth = *o.Depth
	}
	if o.Stencil != nil {
		s.Stencil = *o.Stencil
	}
	if o.Culling != nil {
		s.Culling = *o.Culling
	}
	if o.Scissor != nil {
		s.Scissor = *o.Scissor
	}
	if o.ColorWrite != nil {
		s.ColorWrite = *o.ColorWrite
	}
	if err := s.Validate(); err != nil {
		return base, err
	}
	return s, nil
}

// WithBlending returns a copy of s using b.
func (s RenderState) WithBlending(b Blending) RenderState { s.Blending = b; return s }

// WithDepth returns a copy of s using d.
func (s RenderState) WithDepth(d DepthState) RenderState { s.Depth = d; return s }

// WithStencil returns a copy of s using st.
func (s RenderState) WithStencil(st StencilState) RenderState { s.Stencil = st; return s }

// WithCulling returns a copy of s using c.
func (s RenderState) WithCulling(c Culling) RenderState { s.Culling = c; return s }

// WithScissor returns a copy of s that only draws into r.
func (s RenderState) WithScissor(r Region) RenderState {
	s.Scissor = Scissor{Enabled: true, Region: r}
	return s
}

// WithColorWrite returns a copy of s writing the channels of m.
func (s RenderState) WithColorWrite(m ColorMask) RenderState { s.ColorWrite = m; return s }
