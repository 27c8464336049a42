package reduction

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Profiler accumulates per-pass kernel timings for one reduction. It only
// observes: the engine produces the same value with or without it.
type Profiler struct {
	passes []time.Duration
}

// Record appends one pass duration.
func (p *Profiler) Record(d time.Duration) {
	p.passes = append(p.passes, d)
}

// Passes returns the number of recorded passes.
func (p *Profiler) Passes() int {
	return len(p.passes)
}

// Total returns the kernel time summed across passes.
func (p *Profiler) Total() time.Duration {
	var total time.Duration
	for _, d := range p.passes {
		total += d
	}
	return total
}

// PassDurations returns a copy of the recorded durations in pass order.
func (p *Profiler) PassDurations() []time.Duration {
	out := make([]time.Duration, len(p.passes))
	copy(out, p.passes)
	return out
}

// Summary condenses the recorded passes into millisecond statistics.
func (p *Profiler) Summary() Summary {
	return summarize(p.passes)
}

// Summary describes the timing of one reduction in milliseconds.
type Summary struct {
	Passes  int
	TotalMS float64
	MeanMS  float64
	MinMS   float64
	MaxMS   float64
}

func summarize(passes []time.Duration) Summary {
	s := Summary{Passes: len(passes)}
	if len(passes) == 0 {
		return s
	}
	ms := make([]float64, len(passes))
	for i, d := range passes {
		ms[i] = float64(d) / float64(time.Millisecond)
		s.TotalMS += ms[i]
	}
	s.MeanMS = stat.Mean(ms, nil)
	s.MinMS = floats.Min(ms)
	s.MaxMS = floats.Max(ms)
	return s
}
