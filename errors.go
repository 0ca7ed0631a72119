// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by lumen matches exactly one of these
// with errors.Is. All of them are recoverable except ErrContextLost.
var (
	// ErrResourceCreationFailed is returned when a resource cannot be created:
	// unsupported format, zero size, or a device allocation failure.
	ErrResourceCreationFailed = errors.New("lumen: resource creation failed")

	// ErrShaderBuildFailed is returned when a program fails to compile or
	// link. The concrete error is a *ShaderBuildError carrying the log.
	ErrShaderBuildFailed = errors.New("lumen: shader build failed")

	// ErrLayoutMismatch is returned when data does not match the element
	// layout or byte count a resource was declared with.
	ErrLayoutMismatch = errors.New("lumen: layout mismatch")

	// ErrOutOfBounds is returned when a slice, update or read range exceeds
	// the resource it addresses.
	ErrOutOfBounds = errors.New("lumen: out of bounds")

	// ErrUniformTypeMismatch is returned when a uniform value does not have
	// the uniform's declared type.
	ErrUniformTypeMismatch = errors.New("lumen: uniform type mismatch")

	// ErrInvalidStateTransition is returned when an operation is attempted
	// outside the nesting order of the pipeline executor.
	ErrInvalidStateTransition = errors.New("lumen: invalid state transition")

	// ErrTargetMismatch is returned when framebuffer attachments disagree
	// with the framebuffer dimensions.
	ErrTargetMismatch = errors.New("lumen: target mismatch")

	// ErrContextLost is the terminal error reported once the device is lost.
	// Every resource of the context must be rebuilt on a new context.
	ErrContextLost = errors.New("lumen: context lost")

	// ErrInvalidValue is returned for enumerated values outside their set
	// and for malformed descriptors.
	ErrInvalidValue = errors.New("lumen: invalid value")
)

// Refinements of the kinds above.
var (
	ErrContextBusy      = fmt.Errorf("%w: context is busy", ErrInvalidStateTransition)
	ErrContextClosed    = fmt.Errorf("%w: context is closed", ErrInvalidStateTransition)
	ErrDeviceClaimed    = fmt.Errorf("%w: device already has a live context", ErrInvalidStateTransition)
	ErrPipelineEnded    = fmt.Errorf("%w: pipeline has ended", ErrInvalidStateTransition)
	ErrStaleUniform     = fmt.Errorf("%w: uniform handle belongs to a rebuilt program", ErrInvalidStateTransition)
	ErrForeignUniform   = fmt.Errorf("%w: uniform handle belongs to another program", ErrInvalidStateTransition)
	ErrFeedbackLoop     = fmt.Errorf("%w: texture is attached to the bound target", ErrInvalidStateTransition)
	ErrResourceReleased = fmt.Errorf("%w: resource has been released", ErrInvalidStateTransition)
	ErrForeignResource  = fmt.Errorf("%w: resource belongs to another context", ErrInvalidStateTransition)
	ErrUnknownUniform   = fmt.Errorf("%w: uniform is not declared", ErrUniformTypeMismatch)
	ErrUnsupported      = fmt.Errorf("%w: not supported by device", ErrResourceCreationFailed)
)

// ShaderBuildError reports a failed compile or link with the device's
// diagnostic text.
type ShaderBuildError struct {
	Program string // program label
	Stage   string // "vertex", "fragment" or "link"
	Log     string
}

func (e *ShaderBuildError) Error() string {
	if e.Program == "" {
		return fmt.Sprintf("lumen: shader build failed: %s stage: %s", e.Stage, e.Log)
	}
	return fmt.Sprintf("lumen: shader build failed: program %q: %s stage: %s", e.Program, e.Stage, e.Log)
}

// Unwrap makes errors.Is(err, ErrShaderBuildFailed) hold.
func (e *ShaderBuildError) Unwrap() error { return ErrShaderBuildFailed }
