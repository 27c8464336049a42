package device

import (
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func randomData(n int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed))
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*1000 - 500
	}
	return data
}

func hostMax(data []float32) float32 {
	best := negInf
	for _, v := range data {
		if v > best {
			best = v
		}
	}
	return best
}

func TestCPUDeviceInfo(t *testing.T) {
	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	info := dev.Info()
	assert.Equal(t, "cpu", info.Backend)
	assert.Equal(t, "SimCL C 2.0", info.LanguageVersion)
	assert.Equal(t, "SimCL 2.0", info.DeviceVersion)
	assert.Equal(t, 1024, info.MaxLocalSize)
	assert.Greater(t, info.Workers, 0)

	lang, err := dev.KernelLanguage()
	require.NoError(t, err)
	assert.Equal(t, "SimCL C 2.0", lang)
}

func TestCPUDeviceLanguageOverride(t *testing.T) {
	dev := NewCPUDevice(testLogger(), WithLanguageVersion("SimCL C 1.2"))
	defer dev.Close()

	lang, err := dev.KernelLanguage()
	require.NoError(t, err)
	assert.Equal(t, "SimCL C 1.2", lang)
	assert.Equal(t, "SimCL C 1.2", dev.Info().LanguageVersion)
}

func TestCPUDeviceBuffers(t *testing.T) {
	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	t.Run("size must be positive", func(t *testing.T) {
		_, err := dev.NewBuffer(0)
		assert.Error(t, err)
		_, err = dev.NewBuffer(-3)
		assert.Error(t, err)
	})

	t.Run("write read roundtrip", func(t *testing.T) {
		buf, err := dev.NewBuffer(4)
		require.NoError(t, err)
		defer buf.Release()

		assert.Equal(t, 4, buf.Len())
		require.NoError(t, buf.Write([]float32{1, 2, 3, 4}))

		got := make([]float32, 4)
		require.NoError(t, buf.Read(got))
		assert.Equal(t, []float32{1, 2, 3, 4}, got)

		// Partial reads see the front of the buffer.
		one := make([]float32, 1)
		require.NoError(t, buf.Read(one))
		assert.Equal(t, float32(1), one[0])
	})

	t.Run("bounds are enforced", func(t *testing.T) {
		buf, err := dev.NewBuffer(2)
		require.NoError(t, err)
		defer buf.Release()

		assert.Error(t, buf.Write(make([]float32, 3)))
		assert.Error(t, buf.Read(make([]float32, 3)))
	})

	t.Run("released buffers reject access", func(t *testing.T) {
		buf, err := dev.NewBuffer(2)
		require.NoError(t, err)
		buf.Release()

		assert.ErrorIs(t, buf.Write([]float32{1}), ErrBufferReleased)
		assert.ErrorIs(t, buf.Read(make([]float32, 1)), ErrBufferReleased)
	})
}

func TestCPUDeviceCompile(t *testing.T) {
	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	testCases := []struct {
		name      string
		opts      KernelOptions
		wantBuild string
	}{
		{
			name: "group reduce",
			opts: KernelOptions{UseGroupReduce: true, LocalSize: 256},
		},
		{
			name: "group reduce tolerates non power of two",
			opts: KernelOptions{UseGroupReduce: true, LocalSize: 100},
		},
		{
			name: "tree reduce",
			opts: KernelOptions{LocalSize: 256},
		},
		{
			name:      "tree reduce requires power of two",
			opts:      KernelOptions{LocalSize: 100},
			wantBuild: "power-of-two",
		},
		{
			name:      "local size must be positive",
			opts:      KernelOptions{LocalSize: 0},
			wantBuild: "must be positive",
		},
		{
			name:      "local size capped by device",
			opts:      KernelOptions{LocalSize: 2048},
			wantBuild: "exceeds device limit",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kernel, err := dev.Compile(tc.opts)
			if tc.wantBuild == "" {
				require.NoError(t, err)
				kernel.Release()
				return
			}
			var buildErr *BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Contains(t, buildErr.Log, tc.wantBuild)
			assert.Contains(t, buildErr.Error(), buildErr.Log)
		})
	}
}

func TestCPUDeviceClosed(t *testing.T) {
	dev := NewCPUDevice(testLogger())
	require.NoError(t, dev.Close())

	_, err := dev.KernelLanguage()
	assert.ErrorIs(t, err, ErrDeviceClosed)
	_, err = dev.NewBuffer(8)
	assert.ErrorIs(t, err, ErrDeviceClosed)
	_, err = dev.Compile(KernelOptions{LocalSize: 64})
	assert.ErrorIs(t, err, ErrDeviceClosed)
}

// runPass executes one pass over data and returns the per-group partials.
func runPass(t *testing.T, dev *CPUDevice, kernel Kernel, data []float32, local, groups int) []float32 {
	t.Helper()

	in, err := dev.NewBuffer(len(data))
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Write(data))

	out, err := dev.NewBuffer(groups)
	require.NoError(t, err)
	defer out.Release()

	elapsed, err := kernel.RunPass(Pass{
		In:     in,
		Out:    out,
		Count:  len(data),
		Groups: groups,
		Local:  local,
		Global: groups * local,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, time.Duration(0))

	partials := make([]float32, groups)
	require.NoError(t, out.Read(partials))
	return partials
}

func TestKernelVariantsAgree(t *testing.T) {
	const local, groups = 8, 4

	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	fast, err := dev.Compile(KernelOptions{UseGroupReduce: true, LocalSize: local})
	require.NoError(t, err)
	defer fast.Release()
	tree, err := dev.Compile(KernelOptions{LocalSize: local})
	require.NoError(t, err)
	defer tree.Release()

	for _, n := range []int{1, 2, 10, 32, 257, 1000, 4096, 100000} {
		data := randomData(n, uint64(n))

		fastOut := runPass(t, dev, fast, data, local, groups)
		treeOut := runPass(t, dev, tree, data, local, groups)

		// Same geometry means the same index sets per group, so the
		// partials must match exactly, not just within tolerance.
		assert.Equal(t, fastOut, treeOut, "n=%d", n)
		assert.Equal(t, hostMax(data), hostMax(fastOut), "n=%d", n)
	}
}

func TestIdleGroupsEmitNegInf(t *testing.T) {
	const local, groups = 8, 4

	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	kernel, err := dev.Compile(KernelOptions{UseGroupReduce: true, LocalSize: local})
	require.NoError(t, err)
	defer kernel.Release()

	// 10 elements leave groups 2 and 3 without any input.
	data := randomData(10, 99)
	partials := runPass(t, dev, kernel, data, local, groups)

	assert.Equal(t, hostMax(data), hostMax(partials))
	assert.Equal(t, negInf, partials[2])
	assert.Equal(t, negInf, partials[3])
}

func TestWorkerCountDoesNotChangeResults(t *testing.T) {
	const local, groups = 16, 8

	serial := NewCPUDevice(testLogger(), WithWorkers(1))
	defer serial.Close()
	parallel := NewCPUDevice(testLogger(), WithWorkers(8))
	defer parallel.Close()

	data := randomData(50000, 7)

	for _, opts := range []KernelOptions{
		{UseGroupReduce: true, LocalSize: local},
		{LocalSize: local},
	} {
		ks, err := serial.Compile(opts)
		require.NoError(t, err)
		kp, err := parallel.Compile(opts)
		require.NoError(t, err)

		assert.Equal(t,
			runPass(t, serial, ks, data, local, groups),
			runPass(t, parallel, kp, data, local, groups))

		ks.Release()
		kp.Release()
	}
}

type foreignBuffer struct{}

func (foreignBuffer) Len() int              { return 0 }
func (foreignBuffer) Write([]float32) error { return nil }
func (foreignBuffer) Read([]float32) error  { return nil }
func (foreignBuffer) Release()              {}

func TestRunPassValidation(t *testing.T) {
	const local = 8

	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	kernel, err := dev.Compile(KernelOptions{UseGroupReduce: true, LocalSize: local})
	require.NoError(t, err)
	defer kernel.Release()

	in, err := dev.NewBuffer(64)
	require.NoError(t, err)
	defer in.Release()
	out, err := dev.NewBuffer(2)
	require.NoError(t, err)
	defer out.Release()

	valid := Pass{In: in, Out: out, Count: 64, Groups: 2, Local: local, Global: 2 * local}

	testCases := []struct {
		name   string
		mutate func(p Pass) Pass
		target error
	}{
		{
			name:   "mismatched local size",
			mutate: func(p Pass) Pass { p.Local = 16; p.Global = 32; return p },
		},
		{
			name:   "zero count",
			mutate: func(p Pass) Pass { p.Count = 0; return p },
		},
		{
			name:   "zero groups",
			mutate: func(p Pass) Pass { p.Groups = 0; p.Global = 0; return p },
		},
		{
			name:   "global must equal groups times local",
			mutate: func(p Pass) Pass { p.Global = 24; return p },
		},
		{
			name:   "count beyond input capacity",
			mutate: func(p Pass) Pass { p.Count = 65; return p },
		},
		{
			name:   "groups beyond output capacity",
			mutate: func(p Pass) Pass { p.Groups = 3; p.Global = 3 * local; return p },
		},
		{
			name:   "foreign input buffer",
			mutate: func(p Pass) Pass { p.In = foreignBuffer{}; return p },
			target: ErrForeignBuffer,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kernel.RunPass(tc.mutate(valid))
			var dispatchErr *DispatchError
			require.ErrorAs(t, err, &dispatchErr)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}

	t.Run("released buffer", func(t *testing.T) {
		buf, err := dev.NewBuffer(64)
		require.NoError(t, err)
		buf.Release()

		p := valid
		p.In = buf
		_, err = kernel.RunPass(p)
		assert.ErrorIs(t, err, ErrBufferReleased)
		var dispatchErr *DispatchError
		assert.True(t, errors.As(err, &dispatchErr))
	})
}

func BenchmarkGroupReducePass(b *testing.B) {
	benchmarkPass(b, KernelOptions{UseGroupReduce: true, LocalSize: 256})
}

func BenchmarkTreeReducePass(b *testing.B) {
	benchmarkPass(b, KernelOptions{LocalSize: 256})
}

func benchmarkPass(b *testing.B, opts KernelOptions) {
	const n = 1 << 20

	dev := NewCPUDevice(testLogger())
	defer dev.Close()

	kernel, err := dev.Compile(opts)
	if err != nil {
		b.Fatal(err)
	}
	defer kernel.Release()

	data := randomData(n, 1)
	in, err := dev.NewBuffer(n)
	if err != nil {
		b.Fatal(err)
	}
	defer in.Release()
	if err := in.Write(data); err != nil {
		b.Fatal(err)
	}

	const groups = 512
	out, err := dev.NewBuffer(groups)
	if err != nil {
		b.Fatal(err)
	}
	defer out.Release()

	pass := Pass{In: in, Out: out, Count: n, Groups: groups, Local: opts.LocalSize, Global: groups * opts.LocalSize}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := kernel.RunPass(pass); err != nil {
			b.Fatal(err)
		}
	}

	elems := float64(n) * float64(b.N)
	b.ReportMetric(elems/b.Elapsed().Seconds()/1e9, "Gelem/s")
}
