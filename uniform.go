// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// UniformType is the declared type of a shader uniform.
type UniformType uint8

const (
	TypeInt UniformType = iota
	TypeInt2
	TypeInt3
	TypeInt4
	TypeUint
	TypeUint2
	TypeUint3
	TypeUint4
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeDouble
	TypeDVec2
	TypeDVec3
	TypeDVec4
	TypeBool
	TypeMat2
	TypeMat3
	TypeMat4
	TypeDMat2
	TypeDMat3
	TypeDMat4
	TypeSampler2D

	uniformTypeCount
)

var uniformTypeNames = [...]string{
	"int", "ivec2", "ivec3", "ivec4",
	"uint", "uvec2", "uvec3", "uvec4",
	"float", "vec2", "vec3", "vec4",
	"double", "dvec2", "dvec3", "dvec4",
	"bool",
	"mat2", "mat3", "mat4",
	"dmat2", "dmat3", "dmat4",
	"sampler2D",
}

func (t UniformType) String() string {
	if t < uniformTypeCount {
		return uniformTypeNames[t]
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// Valid reports whether t is one of the enumerated types.
func (t UniformType) Valid() bool { return t < uniformTypeCount }

// IsDouble reports whether t needs double-precision support.
func (t UniformType) IsDouble() bool {
	return (t >= TypeDouble && t <= TypeDVec4) || (t >= TypeDMat2 && t <= TypeDMat4)
}

// UniformValue lists the Go types that can be stored in a uniform.
type UniformValue interface {
	int32 | [2]int32 | [3]int32 | [4]int32 |
		uint32 | [2]uint32 | [3]uint32 | [4]uint32 |
		float32 | mgl32.Vec2 | mgl32.Vec3 | mgl32.Vec4 |
		float64 | mgl64.Vec2 | mgl64.Vec3 | mgl64.Vec4 |
		bool |
		mgl32.Mat2 | mgl32.Mat3 | mgl32.Mat4 |
		mgl64.Mat2 | mgl64.Mat3 | mgl64.Mat4 |
		BoundTexture
}

// TypeOf returns the uniform type of a Go value, or false when v cannot be
// stored in a uniform.
func TypeOf(v any) (UniformType, bool) {
	switch v.(type) {
	case int32:
		return TypeInt, true
	case [2]int32:
		return TypeInt2, true
	case [3]int32:
		return TypeInt3, true
	case [4]int32:
		return TypeInt4, true
	case uint32:
		return TypeUint, true
	case [2]uint32:
		return TypeUint2, true
	case [3]uint32:
		return TypeUint3, true
	case [4]uint32:
		return TypeUint4, true
	case float32:
		return TypeFloat, true
	case mgl32.Vec2:
		return TypeVec2, true
	case mgl32.Vec3:
		return TypeVec3, true
	case mgl32.Vec4:
		return TypeVec4, true
	case float64:
		return TypeDouble, true
	case mgl64.Vec2:
		return TypeDVec2, true
	case mgl64.Vec3:
		return TypeDVec3, true
	case mgl64.Vec4:
		return TypeDVec4, true
	case bool:
		return TypeBool, true
	case mgl32.Mat2:
		return TypeMat2, true
	case mgl32.Mat3:
		return TypeMat3, true
	case mgl32.Mat4:
		return TypeMat4, true
	case mgl64.Mat2:
		return TypeDMat2, true
	case mgl64.Mat3:
		return TypeDMat3, true
	case mgl64.Mat4:
		return TypeDMat4, true
	case BoundTexture:
		return TypeSampler2D, true
	default:
		return 0, false
	}
}

func typeFor[T UniformValue]() UniformType {
	var zero T
	t, _ := TypeOf(zero)
	return t
}

// UniformDecl declares a uniform a program expects.
type UniformDecl struct {
	Name string
	Type UniformType
}

// UniformHandle is a pre-resolved uniform of one program generation.
// The zero value is not usable.
type UniformHandle struct {
	iface    *UniformInterface
	name     string
	typ      UniformType
	location int
	active   bool
}

// Name returns the uniform name.
func (h UniformHandle) Name() string { return h.name }

// Type returns the declared type.
func (h UniformHandle) Type() UniformType { return h.typ }

// Active reports whether the linked program uses the uniform. Writes to an
// inactive uniform are dropped.
func (h UniformHandle) Active() bool { return h.active }

// UniformInterface maps the declared uniforms of one program generation
// to handles. It is built once at link time.
type UniformInterface struct {
	program *Program
	gen     uint64
	handles []UniformHandle
	byName  map[string]int
}

// Len returns the number of declared uniforms.
func (u *UniformInterface) Len() int { return len(u.handles) }

// Handles returns every handle in declaration order.
func (u *UniformInterface) Handles() []UniformHandle {
	return append([]UniformHandle(nil), u.handles...)
}

// Lookup returns the handle for a declared uniform.
func (u *UniformInterface) Lookup(name string) (UniformHandle, bool) {
	i, ok := u.byName[name]
	if !ok {
		return UniformHandle{}, false
	}
	return u.handles[i], true
}

// Program returns the program the interface was resolved from.
func (u *UniformInterface) Program() *Program { return u.program }

// resolveInterface matches declarations against what the device reports.
func resolveInterface(prog *Program, gen uint64, decls []UniformDecl, active []UniformInfo, strict bool) (*UniformInterface, []string, error) {
	byDevice := make(map[string]UniformInfo, len(active))
	for _, info := range active {
		byDevice[info.Name] = info
	}
	iface := &UniformInterface{
		program: prog,
		gen:     gen,
		handles: make([]UniformHandle, 0, len(decls)),
		byName:  make(map[string]int, len(decls)),
	}
	var inactive []string
	for _, d := range decls {
		h := UniformHandle{iface: iface, name: d.Name, typ: d.Type, location: -1}
		if info, ok := byDevice[d.Name]; ok {
			if info.Type != d.Type {
				return nil, nil, fmt.Errorf("%w: uniform %q declared %v, program has %v",
					ErrUniformTypeMismatch, d.Name, d.Type, info.Type)
			}
			h.location = info.Location
			h.active = true
		} else {
			if strict {
				return nil, nil, &ShaderBuildError{
					Program: prog.label,
					Stage:   "link",
					Log:     fmt.Sprintf("declared uniform %q is not used by the program", d.Name),
				}
			}
			inactive = append(inactive, d.Name)
		}
		iface.byName[d.Name] = len(iface.handles)
		iface.handles = append(iface.handles, h)
	}
	return iface, inactive, nil
}

// Uniform is a statically typed handle.
type Uniform[T UniformValue] struct {
	h UniformHandle
}

// Resolve returns the typed handle for a declared uniform. The type check
// happens here, once.
func Resolve[T UniformValue](iface *UniformInterface, name string) (Uniform[T], error) {
	h, ok := iface.Lookup(name)
	if !ok {
		return Uniform[T]{}, fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	var u Uniform[T]
	if err := u.bind(h); err != nil {
		return Uniform[T]{}, err
	}
	return u, nil
}

func (u *Uniform[T]) bind(h UniformHandle) error {
	if want := typeFor[T](); h.typ != want {
		return fmt.Errorf("%w: uniform %q is %v, handle type is %v", ErrUniformTypeMismatch, h.name, h.typ, want)
	}
	u.h = h
	return nil
}

// Handle returns the untyped handle.
func (u Uniform[T]) Handle() UniformHandle { return u.h }

// Set writes v through pi.
func (u Uniform[T]) Set(pi *ProgramInterface, v T) error {
	return pi.set(u.h, u.h.typ, v, nil)
}

type uniformBinder interface {
	bind(h UniformHandle) error
}

var handleType = reflect.TypeFor[UniformHandle]()

// Bind fills the fields of the struct pointed to by dst from iface. Fields
// of type Uniform[T] or UniformHandle tagged `uniform:"name"` are bound;
// other fields are left alone.
//
//	type shaderUniforms struct {
//	    Time  lumen.Uniform[float32]    `uniform:"t"`
//	    Color lumen.Uniform[mgl32.Vec4] `uniform:"color"`
//	}
func Bind(iface *UniformInterface, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: Bind needs a pointer to a struct, got %T", ErrInvalidValue, dst)
	}
	sv := rv.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("uniform")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return fmt.Errorf("%w: field %s is unexported", ErrInvalidValue, f.Name)
		}
		h, found := iface.Lookup(name)
		if !found {
			return fmt.Errorf("%w: %q (field %s)", ErrUnknownUniform, name, f.Name)
		}
		fv := sv.Field(i)
		if f.Type == handleType {
			fv.Set(reflect.ValueOf(h))
			continue
		}
		b, ok := fv.Addr().Interface().(uniformBinder)
		if !ok {
			return fmt.Errorf("%w: field %s has type %s", ErrInvalidValue, f.Name, f.Type)
		}
		if err := b.bind(h); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

// BoundTexture is a texture bound to a unit for one pipeline. It is the
// value of sampler2D uniforms.
type BoundTexture struct {
	unit     int
	pipeline uint64
	tex      *Texture
}

// Unit returns the texture unit.
func (b BoundTexture) Unit() int { return b.unit }

// Texture returns the bound texture.
func (b BoundTexture) Texture() *Texture { return b.tex }
