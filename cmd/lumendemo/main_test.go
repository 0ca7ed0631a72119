// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"testing"

	"github.com/gogpu/lumen"
	"github.com/gogpu/lumen/backend/soft"
)

func TestRenderSoft(t *testing.T) {
	ctx, err := lumen.NewContext(soft.New(soft.Config{}))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ctx.Close() }()

	img, err := render(ctx, 32, 32)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	corner := img.NRGBAAt(0, 0)
	if corner.A != 255 || corner.B <= corner.R {
		t.Errorf("corner = %v, want the clear color", corner)
	}
	if center := img.NRGBAAt(16, 16); center == corner {
		t.Errorf("center = %v, want scene geometry", center)
	}
}
