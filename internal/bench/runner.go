// Package bench ties the pieces of one benchmark run together: dataset
// generation, the device reduction, host verification and metrics.
package bench

import (
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/dataset"
	"github.com/fxnlabs/reduction-bench/internal/device"
	"github.com/fxnlabs/reduction-bench/internal/metrics"
	"github.com/fxnlabs/reduction-bench/internal/reduction"
	"github.com/fxnlabs/reduction-bench/internal/report"
)

// Options selects what one benchmark run reduces.
type Options struct {
	Size   int
	Seed   uint64
	Params reduction.Params
}

// Runner executes benchmark runs against the managed device.
type Runner struct {
	manager *device.Manager
	log     *zap.Logger
}

func NewRunner(manager *device.Manager, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{manager: manager, log: log}
}

// Run executes one full benchmark: generate, reduce on the device, verify
// against the host reference. On a verification mismatch the record is still
// returned alongside the error so callers can render what the device
// produced.
func (r *Runner) Run(opts Options) (report.Record, error) {
	data := dataset.Generate(opts.Size, opts.Seed)

	eng, err := reduction.New(r.manager.Device(), opts.Params, r.log)
	if err != nil {
		return report.Record{}, err
	}
	defer eng.Close()

	res, err := eng.Max(data)
	if err != nil {
		return report.Record{}, err
	}

	hostStart := time.Now()
	ref := reduction.Reference(data)
	r.log.Debug("host reference computed",
		zap.Duration("elapsed", time.Since(hostStart)),
		zap.Float32("reference", ref))

	rec := buildRecord(r.manager.Info(), opts, res, ref)
	observeRun(rec, res)

	if err := reduction.Verify(res.Value, ref); err != nil {
		metrics.VerificationFailures.Inc()
		r.log.Error("verification failed",
			zap.Float32("deviceMax", res.Value),
			zap.Float32("hostMax", ref))
		return rec, err
	}
	rec.Verified = true
	return rec, nil
}

func buildRecord(info device.DeviceInfo, opts Options, res reduction.Result, ref float32) report.Record {
	sum := res.Summary()
	rec := report.Record{
		Size:           opts.Size,
		KernelMS:       sum.TotalMS,
		Passes:         res.Passes,
		LocalSize:      opts.Params.LocalSize,
		ItemsPerThread: opts.Params.ItemsPerThread,
		GroupsMax:      opts.Params.GroupsMax,
		Variant:        res.Variant.String(),
		Device:         info.Name,
		Backend:        info.Backend,
		DeviceMax:      res.Value,
		HostMax:        ref,
		Seed:           opts.Seed,
		MeanPassMS:     sum.MeanMS,
		MinPassMS:      sum.MinMS,
		MaxPassMS:      sum.MaxMS,
	}
	if res.KernelTime > 0 {
		rec.ThroughputGElems = float64(opts.Size) / res.KernelTime.Seconds() / 1e9
	}
	return rec
}

func observeRun(rec report.Record, res reduction.Result) {
	metrics.ReductionRuns.WithLabelValues(rec.Variant, rec.Backend).Inc()
	for _, d := range res.PassTimes {
		metrics.ReductionPassDuration.Observe(float64(d) / float64(time.Millisecond))
	}
	metrics.ReductionPasses.Observe(float64(res.Passes))
	metrics.ReductionInputSize.Set(float64(rec.Size))
	metrics.ReductionKernelMS.Set(rec.KernelMS)
	metrics.ReductionThroughput.Set(rec.ThroughputGElems)
}
