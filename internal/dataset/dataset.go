// Package dataset produces the reproducible input arrays the benchmark
// reduces.
package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultSize is 2^26 elements, 256 MiB of float32.
	DefaultSize = 1 << 26
	// DefaultSeed keeps runs reproducible across machines.
	DefaultSeed = 42
	// PlantedMax is the known maximum planted into every dataset. Noise
	// stays inside [-500, 500), so the planted value always wins.
	PlantedMax = 123456.0
)

// Generate fills size elements with uniform noise in [-500, 500) and plants
// PlantedMax at size/2 so every run has a known answer. The same seed
// reproduces the same data. A non-positive size yields nil.
func Generate(size int, seed uint64) []float32 {
	if size <= 0 {
		return nil
	}
	noise := distuv.Uniform{
		Min: -500,
		Max: 500,
		Src: rand.NewPCG(seed, seed),
	}
	data := make([]float32, size)
	for i := range data {
		data[i] = float32(noise.Rand())
	}
	data[size/2] = PlantedMax
	return data
}
