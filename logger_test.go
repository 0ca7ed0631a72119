// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("nopHandler.WithAttrs() is not a nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("nopHandler.WithGroup() is not a nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(custom)
	if Logger() != custom {
		t.Error("Logger() did not return the logger set via SetLogger")
	}

	ctx, _ := newTestContext(t, WithLabel("scene"))
	if _, err := NewTexture(ctx, TextureDesc{Label: "albedo", Width: 1, Height: 1, Format: FormatR8}, nil); err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "lumen: texture created") || !strings.Contains(out, "context=scene") {
		t.Errorf("log output = %q, want texture creation tagged with the context label", out)
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)
	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) left a nil logger")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) produced an enabled logger")
	}
}

func TestSetLoggerPropagatesToDevices(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	_, shared := newTestContext(t)
	own := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	_, private := newTestContext(t, WithLogger(own))
	if private.logger != own {
		t.Error("NewContext did not hand WithLogger's logger to the device")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)
	if shared.logger != custom {
		t.Error("SetLogger did not reach the device of a live context")
	}
	if private.logger != own {
		t.Error("SetLogger replaced the logger of a context created WithLogger")
	}
}

func TestWarnOnInactiveUniform(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, dev := newTestContext(t, WithLogger(l))
	dev.inactive = map[string]bool{"fog": true}
	if _, err := NewProgram(ctx, ProgramDesc{Label: "sky", Uniforms: []UniformDecl{{Name: "fog", Type: TypeVec3}}}); err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "uniform=fog") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log output = %q, want a warning naming the uniform", out)
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	const goroutines = 100
	for range goroutines {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if l := Logger(); l == nil {
				t.Error("Logger() returned nil during concurrent access")
			} else {
				l.Debug("concurrent read")
			}
		}()
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
			SetLogger(nil)
		}()
	}
	wg.Wait()
}

func BenchmarkLoggerDisabledLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("message", "key", "value")
	}
}
