//go:build webgpu
// +build webgpu

package device

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

const (
	webgpuLanguage = "WGSL 1.0"
	webgpuVersion  = "WebGPU 1.0"
)

// WebGPUDevice drives an accelerator through wgpu. WGSL has no native
// work-group reduction primitive, so the device reports a 1.x kernel language
// and only the tree kernel builds; the probe selects portable accordingly.
type WebGPUDevice struct {
	logger   *slog.Logger
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	name     string
	vendor   string
	maxLocal int
	closed   bool
}

// NewWebGPUDevice requests a high-performance adapter, falling back to
// whatever the platform offers.
func NewWebGPUDevice(logger *slog.Logger) (*WebGPUDevice, error) {
	if logger == nil {
		logger = slog.Default()
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, fmt.Errorf("device: failed to create WebGPU instance")
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		adapter, err = instance.RequestAdapter(nil)
	}
	if err != nil || adapter == nil {
		instance.Release()
		return nil, fmt.Errorf("device: no WebGPU adapter available: %v", err)
	}

	info := adapter.GetInfo()
	limits := adapter.GetLimits()

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to open WebGPU device %q: %w", info.Name, err)
	}

	d := &WebGPUDevice{
		logger:   logger,
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    dev.GetQueue(),
		name:     info.Name,
		vendor:   info.VendorName,
		maxLocal: int(limits.Limits.MaxComputeInvocationsPerWorkgroup),
	}
	d.logger.Info("WebGPU device initialized",
		"adapter", d.name,
		"vendor", d.vendor,
		"maxLocalSize", d.maxLocal)
	return d, nil
}

// Info returns the adapter description.
func (d *WebGPUDevice) Info() DeviceInfo {
	return DeviceInfo{
		Name:            d.name,
		Vendor:          d.vendor,
		Backend:         "webgpu",
		LanguageVersion: webgpuLanguage,
		DeviceVersion:   webgpuVersion,
		MaxLocalSize:    d.maxLocal,
	}
}

// KernelLanguage reports the shader language the device compiles.
func (d *WebGPUDevice) KernelLanguage() (string, error) {
	if d.closed {
		return "", ErrDeviceClosed
	}
	return webgpuLanguage, nil
}

// Version reports the overall device version string.
func (d *WebGPUDevice) Version() string {
	return webgpuVersion
}

// NewBuffer allocates a storage buffer of n elements on the device.
func (d *WebGPUDevice) NewBuffer(n int) (Buffer, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if n <= 0 {
		return nil, fmt.Errorf("device: buffer size must be positive, got %d", n)
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "reduce_data",
		Size:  uint64(n) * 4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("device: buffer allocation of %d elements failed: %w", n, err)
	}
	return &gpuBuffer{dev: d, buf: buf, n: n}, nil
}

// Compile builds the WGSL tree kernel. The group-reduce variant is not
// expressible in WGSL and fails as a build error.
func (d *WebGPUDevice) Compile(opts KernelOptions) (Kernel, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if opts.UseGroupReduce {
		return nil, &BuildError{Device: d.name, Log: "WGSL has no native work-group reduction primitive"}
	}
	if opts.LocalSize <= 0 {
		return nil, &BuildError{Device: d.name, Log: fmt.Sprintf("local size must be positive, got %d", opts.LocalSize)}
	}
	if opts.LocalSize > d.maxLocal {
		return nil, &BuildError{Device: d.name, Log: fmt.Sprintf("local size %d exceeds device limit %d", opts.LocalSize, d.maxLocal)}
	}
	if opts.LocalSize&(opts.LocalSize-1) != 0 {
		return nil, &BuildError{Device: d.name, Log: fmt.Sprintf("tree reduction requires a power-of-two local size, got %d", opts.LocalSize)}
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "reduce_max_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: treeShaderWGSL(opts.LocalSize)},
	})
	if err != nil {
		return nil, &BuildError{Device: d.name, Log: err.Error()}
	}
	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "reduce_max_pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "reduce_max_stage"},
	})
	if err != nil {
		return nil, &BuildError{Device: d.name, Log: err.Error()}
	}
	params, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "reduce_params",
		Size:  4,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &BuildError{Device: d.name, Log: err.Error()}
	}
	d.logger.Debug("compiled WGSL tree kernel", "localSize", opts.LocalSize)
	return &gpuTreeKernel{dev: d, local: opts.LocalSize, pipeline: pipeline, params: params}, nil
}

// Close releases the wgpu handles.
func (d *WebGPUDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	return nil
}

// treeShaderWGSL renders the portable reduction for a fixed workgroup size.
// The grid-stride accumulation plus shared-scratch halving tree mirrors the
// kernel contract exactly; only the element count varies per pass, carried in
// a uniform.
func treeShaderWGSL(local int) string {
	return fmt.Sprintf(`
struct Params {
    count: u32,
}

@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> scratch: array<f32, %[1]d>;

@compute @workgroup_size(%[1]d)
fn reduce_max_stage(
    @builtin(global_invocation_id) gid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>,
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) nwg: vec3<u32>,
) {
    let stride = nwg.x * %[1]du;
    var acc = -3.40282346e+38;
    var i = gid.x;
    while (i < params.count) {
        acc = max(acc, input[i]);
        i = i + stride;
    }
    scratch[lid.x] = acc;
    workgroupBarrier();
    var s = %[2]du;
    while (s > 0u) {
        if (lid.x < s) {
            scratch[lid.x] = max(scratch[lid.x], scratch[lid.x + s]);
        }
        workgroupBarrier();
        s = s >> 1u;
    }
    if (lid.x == 0u) {
        output[wid.x] = scratch[0];
    }
}
`, local, local/2)
}

type gpuBuffer struct {
	dev      *WebGPUDevice
	buf      *wgpu.Buffer
	n        int
	released bool
}

func (b *gpuBuffer) Len() int {
	return b.n
}

func (b *gpuBuffer) Write(src []float32) error {
	if b.released {
		return ErrBufferReleased
	}
	if len(src) > b.n {
		return fmt.Errorf("device: write of %d elements exceeds buffer capacity %d", len(src), b.n)
	}
	b.dev.queue.WriteBuffer(b.buf, 0, wgpu.ToBytes(src))
	return nil
}

// Read copies through a staging buffer: device copy, async map, poll.
func (b *gpuBuffer) Read(dst []float32) error {
	if b.released {
		return ErrBufferReleased
	}
	if len(dst) > b.n {
		return fmt.Errorf("device: read of %d elements exceeds buffer capacity %d", len(dst), b.n)
	}
	d := b.dev
	sizeBytes := uint64(len(dst)) * 4

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "reduce_staging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("device: staging buffer: %w", err)
	}
	defer staging.Destroy()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("device: command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, 0, staging, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("device: encode readback: %w", err)
	}
	d.queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return fmt.Errorf("device: map staging buffer: %w", err)
	}

	timeout := time.After(2 * time.Second)
poll:
	for {
		d.device.Poll(false, nil)
		select {
		case <-done:
			break poll
		case <-timeout:
			return fmt.Errorf("device: readback timed out after 2s")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return fmt.Errorf("device: readback: %w", mapErr)
	}

	data := staging.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		return fmt.Errorf("device: failed to get mapped range")
	}
	copy(dst, wgpu.FromBytes[float32](data))
	staging.Unmap()
	return nil
}

func (b *gpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buf.Destroy()
}

type gpuTreeKernel struct {
	dev      *WebGPUDevice
	local    int
	pipeline *wgpu.ComputePipeline
	params   *wgpu.Buffer
}

func (k *gpuTreeKernel) RunPass(p Pass) (time.Duration, error) {
	d := k.dev
	bin, ok := p.In.(*gpuBuffer)
	if !ok {
		return 0, &DispatchError{Device: d.name, Op: "bind input", Err: ErrForeignBuffer}
	}
	bout, ok := p.Out.(*gpuBuffer)
	if !ok {
		return 0, &DispatchError{Device: d.name, Op: "bind output", Err: ErrForeignBuffer}
	}
	if bin.released || bout.released {
		return 0, &DispatchError{Device: d.name, Op: "bind buffers", Err: ErrBufferReleased}
	}
	switch {
	case p.Local != k.local:
		return 0, &DispatchError{Device: d.name, Op: "launch", Err: fmt.Errorf("kernel compiled for local size %d, pass uses %d", k.local, p.Local)}
	case p.Count <= 0 || p.Groups <= 0:
		return 0, &DispatchError{Device: d.name, Op: "launch", Err: fmt.Errorf("pass needs positive count and groups, got %d and %d", p.Count, p.Groups)}
	case p.Global != p.Groups*p.Local:
		return 0, &DispatchError{Device: d.name, Op: "launch", Err: fmt.Errorf("global size %d does not equal groups*local %d", p.Global, p.Groups*p.Local)}
	case p.Count > bin.n:
		return 0, &DispatchError{Device: d.name, Op: "launch", Err: fmt.Errorf("pass count %d exceeds input capacity %d", p.Count, bin.n)}
	case p.Groups > bout.n:
		return 0, &DispatchError{Device: d.name, Op: "launch", Err: fmt.Errorf("group count %d exceeds output capacity %d", p.Groups, bout.n)}
	}

	d.queue.WriteBuffer(k.params, 0, wgpu.ToBytes([]uint32{uint32(p.Count)}))

	bind, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "reduce_bind",
		Layout: k.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: bin.buf, Size: bin.buf.GetSize()},
			{Binding: 1, Buffer: bout.buf, Size: bout.buf.GetSize()},
			{Binding: 2, Buffer: k.params, Size: k.params.GetSize()},
		},
	})
	if err != nil {
		return 0, &DispatchError{Device: d.name, Op: "bind group", Err: err}
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, &DispatchError{Device: d.name, Op: "command encoder", Err: err}
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bind, nil)
	pass.DispatchWorkgroups(uint32(p.Groups), 1, 1)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return 0, &DispatchError{Device: d.name, Op: "encode pass", Err: err}
	}

	// Wall time across submit and completion; wgpu exposes no per-pass
	// device timestamps without the timestamp-query feature.
	start := time.Now()
	d.queue.Submit(cmd)
	d.device.Poll(true, nil)
	return time.Since(start), nil
}

func (k *gpuTreeKernel) Release() {
	k.params.Destroy()
}
