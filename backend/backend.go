package backend

import (
	"errors"

	"github.com/gogpu/lumen"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot open a device on this machine.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// Soft is the CPU reference device in backend/soft.
	Soft = "soft"
	// WGPU is the GPU device in backend/wgpu, built on gogpu/wgpu.
	WGPU = "wgpu"
)

// Factory opens a new device. A factory that cannot open a device on the
// current machine returns an error and the registry moves on.
type Factory func() (lumen.Device, error)
