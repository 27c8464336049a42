package reduction

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/device"
)

// ErrEmptyInput rejects reductions over zero elements; the maximum of an
// empty set is undefined.
var ErrEmptyInput = errors.New("reduction: empty input")

// Engine runs multi-pass maximum reductions on one device with one compiled
// kernel. It is not safe for concurrent use.
type Engine struct {
	dev     device.Device
	kernel  device.Kernel
	variant Variant
	params  Params
	log     *zap.Logger
}

// Result carries the reduced value and the timing of the passes that
// produced it.
type Result struct {
	Value      float32
	Passes     int
	KernelTime time.Duration
	PassTimes  []time.Duration
	Variant    Variant
}

// Summary condenses the result's pass timings into millisecond statistics.
func (r Result) Summary() Summary {
	return summarize(r.PassTimes)
}

// New probes the device, compiles the matching kernel variant and returns an
// engine ready to reduce. A kernel build failure is returned verbatim; there
// is no fallback from a broken build.
func New(dev device.Device, params Params, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if maxLocal := dev.Info().MaxLocalSize; maxLocal > 0 && params.LocalSize > maxLocal {
		return nil, fmt.Errorf("reduction: local size %d exceeds device limit %d", params.LocalSize, maxLocal)
	}

	variant := SelectVariant(dev, log)
	kernel, err := dev.Compile(device.KernelOptions{
		UseGroupReduce: variant == VariantFast,
		LocalSize:      params.LocalSize,
	})
	if err != nil {
		return nil, err
	}
	log.Info("reduction engine ready",
		zap.String("device", dev.Info().Name),
		zap.String("variant", variant.String()),
		zap.Int("localSize", params.LocalSize),
		zap.Int("groupsMax", params.GroupsMax),
		zap.Int("itemsPerThread", params.ItemsPerThread))
	return &Engine{dev: dev, kernel: kernel, variant: variant, params: params, log: log}, nil
}

// Variant reports which kernel the engine compiled.
func (e *Engine) Variant() Variant {
	return e.variant
}

// Params returns the launch geometry the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// Max reduces data to its maximum on the device. Passes ping-pong between
// two buffers, each emitting one partial per group, until a single element
// remains; a one-element input takes zero passes and is read back directly.
func (e *Engine) Max(data []float32) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyInput
	}

	bufA, err := e.dev.NewBuffer(len(data))
	if err != nil {
		return Result{}, err
	}
	defer bufA.Release()
	if err := bufA.Write(data); err != nil {
		return Result{}, err
	}

	// B matches A's capacity. Passes write a strictly shrinking prefix, but
	// both buffers are allocated once, at full dataset size, for the run.
	bufB, err := e.dev.NewBuffer(len(data))
	if err != nil {
		return Result{}, err
	}
	defer bufB.Release()

	var prof Profiler
	in, out := bufA, bufB
	count := len(data)
	for count > 1 {
		groups, global := e.params.passGeometry(count)
		elapsed, err := e.kernel.RunPass(device.Pass{
			In:     in,
			Out:    out,
			Count:  count,
			Groups: groups,
			Local:  e.params.LocalSize,
			Global: global,
		})
		if err != nil {
			return Result{}, err
		}
		prof.Record(elapsed)
		e.log.Debug("reduction pass complete",
			zap.Int("pass", prof.Passes()),
			zap.Int("inCount", count),
			zap.Int("outCount", groups),
			zap.Duration("kernelTime", elapsed))
		in, out = out, in
		count = groups
	}

	// The loop leaves the last-written buffer in the in slot.
	single := make([]float32, 1)
	if err := in.Read(single); err != nil {
		return Result{}, err
	}
	return Result{
		Value:      single[0],
		Passes:     prof.Passes(),
		KernelTime: prof.Total(),
		PassTimes:  prof.PassDurations(),
		Variant:    e.variant,
	}, nil
}

// Close releases the compiled kernel. The device stays open; whoever created
// it closes it.
func (e *Engine) Close() {
	e.kernel.Release()
}
