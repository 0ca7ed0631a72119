// Package backend selects the device a lumen Context runs on.
//
// Device packages register a factory from their init() functions and
// are selected at runtime by name or priority:
//
//	import (
//		"github.com/gogpu/lumen/backend"
//		_ "github.com/gogpu/lumen/backend/soft"
//		_ "github.com/gogpu/lumen/backend/wgpu"
//	)
//
//	// The best device that opens on this machine.
//	dev, name, err := backend.Default()
//
//	// Or a specific one.
//	dev, err := backend.Open(backend.Soft)
//
// # Available Backends
//
// - "soft": CPU reference rasterizer (always available)
// - "wgpu": GPU device via gogpu/wgpu
package backend
