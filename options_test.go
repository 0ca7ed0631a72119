// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"log/slog"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.label != "" || o.logger != nil || o.strictUniforms {
		t.Errorf("defaultOptions() = %+v", o)
	}
	if o.maxDeferred != 1024 {
		t.Errorf("maxDeferred = %d, want 1024", o.maxDeferred)
	}
}

func TestOptions(t *testing.T) {
	l := slog.Default()
	tests := []struct {
		name  string
		opt   Option
		check func(o options) bool
	}{
		{"WithLabel", WithLabel("hud"), func(o options) bool { return o.label == "hud" }},
		{"WithLogger", WithLogger(l), func(o options) bool { return o.logger == l }},
		{"WithStrictUniforms", WithStrictUniforms(true), func(o options) bool { return o.strictUniforms }},
		{"WithMaxDeferred", WithMaxDeferred(8), func(o options) bool { return o.maxDeferred == 8 }},
		{"WithMaxDeferred ignores zero", WithMaxDeferred(0), func(o options) bool { return o.maxDeferred == 1024 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if !tt.check(o) {
				t.Errorf("%s: options = %+v", tt.name, o)
			}
		})
	}
}

func TestNewContextAppliesOptions(t *testing.T) {
	ctx, _ := newTestContext(t, WithLabel("editor"), WithStrictUniforms(true))
	if ctx.opts.label != "editor" || !ctx.opts.strictUniforms {
		t.Errorf("context options = %+v", ctx.opts)
	}
	if got := ctx.Caps().Name; got != "fake" {
		t.Errorf("Caps().Name = %q, want fake", got)
	}
}
