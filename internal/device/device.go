package device

import "time"

// DeviceInfo contains information about the selected compute device
type DeviceInfo struct {
	Name            string   `json:"name"`
	Vendor          string   `json:"vendor"`
	Backend         string   `json:"backend"`
	LanguageVersion string   `json:"languageVersion"`
	DeviceVersion   string   `json:"deviceVersion"`
	MaxLocalSize    int      `json:"maxLocalSize"`
	Workers         int      `json:"workers,omitempty"`
	Features        []string `json:"features,omitempty"`
}

// KernelOptions select how the reduction kernel is built for a device.
// UseGroupReduce asks for the device's native work-group reduction primitive;
// without it the kernel falls back to a shared-scratch tree, which requires a
// power-of-two local size.
type KernelOptions struct {
	UseGroupReduce bool
	LocalSize      int
}

// Pass describes one reduction dispatch: reduce Count elements of In to one
// partial maximum per work-group in Out. Global is Groups*Local and is the
// stride of the per-thread accumulation loop.
type Pass struct {
	In     Buffer
	Out    Buffer
	Count  int
	Groups int
	Local  int
	Global int
}

// Device defines the interface for compute backends
// This interface allows for multiple implementations (in-process simulator,
// WebGPU, future accelerators) and provides a consistent API for the
// multi-pass reduction used by the engine.
//
// Implementation notes:
// - Backends own their memory; buffers must not outlive their device
// - Fallback to the CPU device is handled by the Manager, not the backend
// - Kernels compiled from a device are only valid with that device's buffers
// - Resource cleanup is critical for real accelerator backends
type Device interface {
	// Info returns a static description of the device, used for reports,
	// capability challenges and metrics labels.
	Info() DeviceInfo

	// KernelLanguage returns the version string of the kernel language the
	// device compiles, e.g. "SimCL C 2.0" or "WGSL 1.0". The query itself
	// may fail; callers fall back to Version and treat the failure as
	// non-fatal.
	KernelLanguage() (string, error)

	// Version returns the device's overall version string. It never fails
	// and is the fallback when KernelLanguage does.
	Version() string

	// NewBuffer allocates a device-resident array of n float32 elements.
	NewBuffer(n int) (Buffer, error)

	// Compile builds the reduction kernel for the given options. A failure
	// returns a *BuildError carrying the device's diagnostics verbatim.
	Compile(opts KernelOptions) (Kernel, error)

	// Close releases the device and everything it owns.
	Close() error
}

// Buffer is a device-resident float32 array.
type Buffer interface {
	// Len returns the capacity in elements.
	Len() int

	// Write copies len(src) elements from host memory to the start of the
	// buffer.
	Write(src []float32) error

	// Read copies len(dst) elements from the start of the buffer to host
	// memory.
	Read(dst []float32) error

	// Release frees the buffer. Further use returns ErrBufferReleased.
	Release()
}

// Kernel is one compiled reduction program bound to its device.
type Kernel interface {
	// RunPass executes one reduction pass and returns the device-measured
	// execution time for exactly that pass. Transfer and host-side setup
	// are excluded on backends that can tell them apart.
	RunPass(p Pass) (time.Duration, error)

	// Release frees the compiled program.
	Release()
}
