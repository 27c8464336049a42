package device

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// cpuLanguage is the kernel language level the simulator reports. The
	// simulator implements the full contract including native group
	// reduction, hence the 2.x level.
	cpuLanguage = "SimCL C 2.0"
	cpuVersion  = "SimCL 2.0"

	cpuMaxLocalSize = 1024
)

var negInf = float32(math.Inf(-1))

// CPUDevice executes kernels on the host. Work-groups are spread across a
// goroutine pool; threads inside a group run in lockstep phases, so the
// portable kernel's barrier points hold without per-thread goroutines.
type CPUDevice struct {
	logger   *slog.Logger
	workers  int
	language string
	closed   bool
}

// CPUOption configures a CPUDevice.
type CPUOption func(*CPUDevice)

// WithWorkers sets the goroutine pool size used for group execution.
func WithWorkers(n int) CPUOption {
	return func(d *CPUDevice) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLanguageVersion overrides the kernel language string the device
// reports. Useful to exercise the portable path on a device that would
// otherwise advertise native group reduction.
func WithLanguageVersion(v string) CPUOption {
	return func(d *CPUDevice) {
		d.language = v
	}
}

// NewCPUDevice creates the in-process simulator device. It is always
// available and serves as the fallback when no accelerator is present.
func NewCPUDevice(logger *slog.Logger, opts ...CPUOption) *CPUDevice {
	if logger == nil {
		logger = slog.Default()
	}
	d := &CPUDevice{
		logger:   logger,
		workers:  runtime.NumCPU(),
		language: cpuLanguage,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger.Info("CPU device initialized",
		"workers", d.workers,
		"language", d.language,
		"features", simdFeatures())
	return d
}

// Info returns the simulator's device description.
func (d *CPUDevice) Info() DeviceInfo {
	return DeviceInfo{
		Name:            fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		Vendor:          runtime.Version(),
		Backend:         "cpu",
		LanguageVersion: d.language,
		DeviceVersion:   cpuVersion,
		MaxLocalSize:    cpuMaxLocalSize,
		Workers:         d.workers,
		Features:        simdFeatures(),
	}
}

// KernelLanguage reports the simulated kernel language version.
func (d *CPUDevice) KernelLanguage() (string, error) {
	if d.closed {
		return "", ErrDeviceClosed
	}
	return d.language, nil
}

// Version reports the overall device version string.
func (d *CPUDevice) Version() string {
	return cpuVersion
}

// NewBuffer allocates a host-memory buffer of n elements.
func (d *CPUDevice) NewBuffer(n int) (Buffer, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if n <= 0 {
		return nil, fmt.Errorf("device: buffer size must be positive, got %d", n)
	}
	return &cpuBuffer{data: make([]float32, n)}, nil
}

// Compile validates the options and builds one of the two kernel bodies.
func (d *CPUDevice) Compile(opts KernelOptions) (Kernel, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	name := d.Info().Name
	if opts.LocalSize <= 0 {
		return nil, &BuildError{Device: name, Log: fmt.Sprintf("local size must be positive, got %d", opts.LocalSize)}
	}
	if opts.LocalSize > cpuMaxLocalSize {
		return nil, &BuildError{Device: name, Log: fmt.Sprintf("local size %d exceeds device limit %d", opts.LocalSize, cpuMaxLocalSize)}
	}
	if opts.UseGroupReduce {
		d.logger.Debug("compiled group-reduce kernel", "localSize", opts.LocalSize)
		return &cpuGroupReduceKernel{dev: d, local: opts.LocalSize}, nil
	}
	if opts.LocalSize&(opts.LocalSize-1) != 0 {
		return nil, &BuildError{Device: name, Log: fmt.Sprintf("tree reduction requires a power-of-two local size, got %d", opts.LocalSize)}
	}
	k := &cpuTreeReduceKernel{dev: d, local: opts.LocalSize}
	k.scratch.New = func() any {
		s := make([]float32, opts.LocalSize)
		return &s
	}
	d.logger.Debug("compiled tree-reduce kernel", "localSize", opts.LocalSize)
	return k, nil
}

// Close marks the device closed. Buffers already handed out stay readable;
// new allocations and compiles fail.
func (d *CPUDevice) Close() error {
	d.closed = true
	return nil
}

// runGroups fans group execution out across the worker pool. Groups are
// independent, so they are claimed with an atomic counter for balance.
func (d *CPUDevice) runGroups(groups int, body func(group int)) {
	workers := d.workers
	if workers > groups {
		workers = groups
	}
	if workers <= 1 {
		for g := 0; g < groups; g++ {
			body(g)
		}
		return
	}
	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				g := int(next.Add(1)) - 1
				if g >= groups {
					return
				}
				body(g)
			}
		}()
	}
	wg.Wait()
}

type cpuBuffer struct {
	data     []float32
	released bool
}

func (b *cpuBuffer) Len() int {
	return len(b.data)
}

func (b *cpuBuffer) Write(src []float32) error {
	if b.released {
		return ErrBufferReleased
	}
	if len(src) > len(b.data) {
		return fmt.Errorf("device: write of %d elements exceeds buffer capacity %d", len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Read(dst []float32) error {
	if b.released {
		return ErrBufferReleased
	}
	if len(dst) > len(b.data) {
		return fmt.Errorf("device: read of %d elements exceeds buffer capacity %d", len(dst), len(b.data))
	}
	copy(dst, b.data[:len(dst)])
	return nil
}

func (b *cpuBuffer) Release() {
	b.released = true
	b.data = nil
}

// cpuSlices unwraps a pass's buffers into host slices, verifying residency.
func cpuSlices(dev string, p Pass) (in, out []float32, err error) {
	bin, ok := p.In.(*cpuBuffer)
	if !ok {
		return nil, nil, &DispatchError{Device: dev, Op: "bind input", Err: ErrForeignBuffer}
	}
	bout, ok := p.Out.(*cpuBuffer)
	if !ok {
		return nil, nil, &DispatchError{Device: dev, Op: "bind output", Err: ErrForeignBuffer}
	}
	if bin.released || bout.released {
		return nil, nil, &DispatchError{Device: dev, Op: "bind buffers", Err: ErrBufferReleased}
	}
	return bin.data, bout.data, nil
}

// validatePass checks the launch geometry against the compiled local size
// and the bound buffers.
func validatePass(dev string, local int, p Pass, in, out []float32) error {
	switch {
	case p.Local != local:
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("kernel compiled for local size %d, pass uses %d", local, p.Local)}
	case p.Count <= 0:
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("pass count must be positive, got %d", p.Count)}
	case p.Groups <= 0:
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("group count must be positive, got %d", p.Groups)}
	case p.Global != p.Groups*p.Local:
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("global size %d does not equal groups*local %d", p.Global, p.Groups*p.Local)}
	case p.Count > len(in):
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("pass count %d exceeds input capacity %d", p.Count, len(in))}
	case p.Groups > len(out):
		return &DispatchError{Device: dev, Op: "launch", Err: fmt.Errorf("group count %d exceeds output capacity %d", p.Groups, len(out))}
	}
	return nil
}

// cpuGroupReduceKernel models the native work-group reduction primitive:
// each thread's grid-stride partial folds straight into the group result.
type cpuGroupReduceKernel struct {
	dev   *CPUDevice
	local int
}

func (k *cpuGroupReduceKernel) RunPass(p Pass) (time.Duration, error) {
	name := k.dev.Info().Name
	in, out, err := cpuSlices(name, p)
	if err != nil {
		return 0, err
	}
	if err := validatePass(name, k.local, p, in, out); err != nil {
		return 0, err
	}

	start := time.Now()
	k.dev.runGroups(p.Groups, func(g int) {
		base := g * p.Local
		groupMax := negInf
		for lid := 0; lid < p.Local; lid++ {
			partial := negInf
			for i := base + lid; i < p.Count; i += p.Global {
				if v := in[i]; v > partial {
					partial = v
				}
			}
			if partial > groupMax {
				groupMax = partial
			}
		}
		out[g] = groupMax
	})
	return time.Since(start), nil
}

func (k *cpuGroupReduceKernel) Release() {}

// cpuTreeReduceKernel models the portable shared-scratch reduction: thread
// partials land in a scratch array, then a halving tree folds it. Each phase
// completes before the next starts, which is exactly what the barrier
// guarantees on a real device.
type cpuTreeReduceKernel struct {
	dev     *CPUDevice
	local   int
	scratch sync.Pool
}

func (k *cpuTreeReduceKernel) RunPass(p Pass) (time.Duration, error) {
	name := k.dev.Info().Name
	in, out, err := cpuSlices(name, p)
	if err != nil {
		return 0, err
	}
	if err := validatePass(name, k.local, p, in, out); err != nil {
		return 0, err
	}

	start := time.Now()
	k.dev.runGroups(p.Groups, func(g int) {
		sp := k.scratch.Get().(*[]float32)
		scratch := *sp
		base := g * p.Local
		for lid := 0; lid < p.Local; lid++ {
			partial := negInf
			for i := base + lid; i < p.Count; i += p.Global {
				if v := in[i]; v > partial {
					partial = v
				}
			}
			scratch[lid] = partial
		}
		// barrier: all partials are in scratch before the tree starts
		for stride := p.Local / 2; stride > 0; stride >>= 1 {
			for lid := 0; lid < stride; lid++ {
				if scratch[lid+stride] > scratch[lid] {
					scratch[lid] = scratch[lid+stride]
				}
			}
			// barrier between halving steps
		}
		out[g] = scratch[0]
		k.scratch.Put(sp)
	})
	return time.Since(start), nil
}

func (k *cpuTreeReduceKernel) Release() {}
