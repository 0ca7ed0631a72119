// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "log/slog"

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := lumen.NewContext(dev,
//	    lumen.WithLabel("editor"),
//	    lumen.WithStrictUniforms(true),
//	)
type Option func(*options)

type options struct {
	label          string
	logger         *slog.Logger
	strictUniforms bool
	maxDeferred    int
}

func defaultOptions() options {
	return options{
		maxDeferred: 1024,
	}
}

// WithLabel names the context in log output.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithLogger gives the context its own logger instead of the package
// logger set with [SetLogger].
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStrictUniforms makes a declared uniform that the linked program does
// not use a build failure. By default such uniforms resolve to inactive
// handles whose writes are dropped, and a warning is logged.
func WithStrictUniforms(strict bool) Option {
	return func(o *options) {
		o.strictUniforms = strict
	}
}

// WithMaxDeferred bounds how many releases may be queued while resources
// are borrowed by a running pipeline. Releases past the bound are logged
// and still deferred; the bound only controls the warning.
func WithMaxDeferred(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDeferred = n
		}
	}
}
