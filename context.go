// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// noCopy makes go vet's copylocks check flag copies of a Context.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

var (
	claimedMu sync.Mutex
	claimed   = map[Device]*Context{}
)

// Context is the capability token for one device. Every resource is
// created from a Context and every pipeline runs on one.
//
// A device has at most one live Context. A Context is used from one
// goroutine at a time: each operation enters through a busy flag and a
// concurrent or re-entrant call fails with [ErrContextBusy]. While a
// pipeline runs the Context stays busy, so resources cannot be created or
// updated from inside pipeline callbacks.
type Context struct {
	_ noCopy

	dev  Device
	caps Caps
	opts options

	busy   atomic.Bool
	lost   atomic.Bool
	closed bool

	table    resourceTable
	pipeline *Pipeline
	epoch    uint64

	stats Stats
}

// Stats is a snapshot of a Context's counters. The draw counters only
// count draws actually handed to the device; empty draws and triangles
// with both faces culled are not counted.
type Stats struct {
	PipelinesBegun     uint64
	PipelinesCompleted uint64
	PipelinesFailed    uint64
	Draws              uint64
	Primitives         uint64

	Live           int // live resources
	Borrowed       int // resources borrowed by the running pipeline
	PendingRelease int // releases waiting for the pipeline to end
}

// NewContext wraps dev. dev must be initialized and ready to record
// commands; lumen does not create or destroy devices.
func NewContext(dev Device, opts ...Option) (*Context, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidValue)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{dev: dev, caps: dev.Caps(), opts: o}

	claimedMu.Lock()
	if _, ok := claimed[dev]; ok {
		claimedMu.Unlock()
		return nil, ErrDeviceClaimed
	}
	claimed[dev] = c
	claimedMu.Unlock()

	if o.logger != nil {
		propagateLogger(dev, o.logger)
	} else {
		propagateLogger(dev, Logger())
	}
	c.logger().Debug("lumen: context created", "device", c.caps.Name)
	return c, nil
}

func (c *Context) logger() *slog.Logger {
	var l *slog.Logger
	if c.opts.logger != nil {
		l = c.opts.logger
	} else {
		l = Logger()
	}
	if c.opts.label != "" {
		l = l.With("context", c.opts.label)
	}
	return l
}

// Caps returns the capabilities of the underlying device.
func (c *Context) Caps() Caps { return c.caps }

// Device returns the underlying device.
func (c *Context) Device() Device { return c.dev }

// Lost reports whether the device has been lost.
func (c *Context) Lost() bool { return c.lost.Load() }

// Stats returns the current counters.
func (c *Context) Stats() Stats {
	s := c.stats
	s.Live = c.table.live
	s.Borrowed = c.table.borrowed
	s.PendingRelease = len(c.table.pending)
	return s
}

// State returns the executor state: Idle unless a pipeline is running.
func (c *Context) State() ExecState {
	if p := c.pipeline; p != nil {
		return p.state
	}
	return Idle
}

// Close releases every resource still alive and frees the device for a new
// Context. Close fails with [ErrContextBusy] while a pipeline runs.
// Closing a lost context is allowed and skips device calls.
func (c *Context) Close() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrContextBusy
	}
	defer c.busy.Store(false)
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.lost.Load() {
		c.table.destroyAll()
	}

	claimedMu.Lock()
	if claimed[c.dev] == c {
		delete(claimed, c.dev)
	}
	claimedMu.Unlock()
	c.logger().Debug("lumen: context closed")
	return nil
}

// enter admits one operation. Every successful enter must be paired with
// leave.
func (c *Context) enter() error {
	if c.lost.Load() {
		return ErrContextLost
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrContextBusy
	}
	if c.closed {
		c.busy.Store(false)
		return ErrContextClosed
	}
	return nil
}

func (c *Context) leave() { c.busy.Store(false) }

// deviceErr inspects an error returned by the device and latches the lost
// state when it reports device loss.
func (c *Context) deviceErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrContextLost) {
		if c.lost.CompareAndSwap(false, true) {
			c.logger().Error("lumen: device lost", "error", err)
		}
		return err
	}
	return err
}

// createErr classifies a device error from a create call.
func (c *Context) createErr(what string, err error) error {
	err = c.deviceErr(err)
	if errors.Is(err, ErrContextLost) || errors.Is(err, ErrShaderBuildFailed) ||
		errors.Is(err, ErrResourceCreationFailed) {
		return err
	}
	return fmt.Errorf("%w: create %s: %w", ErrResourceCreationFailed, what, err)
}

// resource is embedded by every resource type.
type resource struct {
	ctx *Context
	h   handle
}

func (r *resource) check(c *Context) error {
	if r.ctx != c {
		return ErrForeignResource
	}
	if !c.table.alive(r.h) {
		return ErrResourceReleased
	}
	return nil
}

// alive reports whether the resource has not been released.
func (r *resource) alive() bool { return r.ctx.table.alive(r.h) }

// releaseResource kills r and logs when destruction had to wait for the
// running pipeline.
func (r *resource) releaseResource() {
	c := r.ctx
	s := c.table.lookup(r.h)
	if s == nil || !s.live {
		return
	}
	kind, label := s.kind, s.label
	if c.lost.Load() {
		// The device is gone; dropping the slot is all that is left to do.
		s.destroy = nil
	}
	if c.table.release(r.h) {
		if len(c.table.pending) > c.opts.maxDeferred {
			c.logger().Warn("lumen: deferred release queue is long",
				"pending", len(c.table.pending), "max", c.opts.maxDeferred)
		}
		c.logger().Debug("lumen: release deferred until pipeline end", "kind", kind, "label", label)
		return
	}
	c.logger().Debug("lumen: released", "kind", kind, "label", label)
}
