package reduction

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/dataset"
	"github.com/fxnlabs/reduction-bench/internal/device"
)

func newTestDevice(t *testing.T, opts ...device.CPUOption) *device.CPUDevice {
	t.Helper()
	dev := device.NewCPUDevice(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestNewSelectsVariantFromDevice(t *testing.T) {
	t.Run("native language gets the fast kernel", func(t *testing.T) {
		eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
		require.NoError(t, err)
		defer eng.Close()
		assert.Equal(t, VariantFast, eng.Variant())
	})

	t.Run("older language gets the portable kernel", func(t *testing.T) {
		dev := newTestDevice(t, device.WithLanguageVersion("SimCL C 1.2"))
		eng, err := New(dev, DefaultParams(), zap.NewNop())
		require.NoError(t, err)
		defer eng.Close()
		assert.Equal(t, VariantPortable, eng.Variant())
	})
}

func TestNewRejectsBadParams(t *testing.T) {
	dev := newTestDevice(t)

	_, err := New(dev, Params{LocalSize: 0, GroupsMax: 1, ItemsPerThread: 1}, zap.NewNop())
	assert.Error(t, err)

	// The CPU device caps local size at 1024.
	_, err = New(dev, Params{LocalSize: 2048, GroupsMax: 1024, ItemsPerThread: 8}, zap.NewNop())
	assert.ErrorContains(t, err, "exceeds device limit")
}

func TestNewSurfacesBuildFailures(t *testing.T) {
	// The portable tree needs a power-of-two local size; the build log
	// must come back verbatim in the error.
	dev := newTestDevice(t, device.WithLanguageVersion("SimCL C 1.2"))
	_, err := New(dev, Params{LocalSize: 100, GroupsMax: 64, ItemsPerThread: 4}, zap.NewNop())

	var buildErr *device.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Log, "power-of-two")
	assert.Contains(t, err.Error(), buildErr.Log)
}

func TestMaxMatchesReference(t *testing.T) {
	for _, lang := range []string{"SimCL C 2.0", "SimCL C 1.2"} {
		t.Run(lang, func(t *testing.T) {
			dev := newTestDevice(t, device.WithLanguageVersion(lang))
			params := DefaultParams()
			eng, err := New(dev, params, zap.NewNop())
			require.NoError(t, err)
			defer eng.Close()

			for _, n := range []int{1, 2, 100, 2048, 2049, 100_000, 1 << 20} {
				data := dataset.Generate(n, uint64(n))

				res, err := eng.Max(data)
				require.NoError(t, err, "n=%d", n)

				assert.Equal(t, Reference(data), res.Value, "n=%d", n)
				assert.NoError(t, Verify(res.Value, Reference(data)))
				assert.Equal(t, len(params.Plan(n)), res.Passes, "n=%d", n)
				assert.Len(t, res.PassTimes, res.Passes, "n=%d", n)
			}
		})
	}
}

func TestMaxFindsPlantedValue(t *testing.T) {
	const n = 1_000_000

	eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Max(dataset.Generate(n, dataset.DefaultSeed))
	require.NoError(t, err)

	// Maximum of float32 values involves no arithmetic, so the planted
	// value must come back bit-exact.
	assert.Equal(t, float32(dataset.PlantedMax), res.Value)
	assert.Equal(t, VariantFast, res.Variant)
}

func TestMaxSingleElementTakesNoPasses(t *testing.T) {
	eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Max([]float32{-7.5})
	require.NoError(t, err)
	assert.Equal(t, float32(-7.5), res.Value)
	assert.Equal(t, 0, res.Passes)
	assert.Empty(t, res.PassTimes)
	assert.Zero(t, res.KernelTime)
}

func TestMaxEmptyInput(t *testing.T) {
	eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Max(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = eng.Max([]float32{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

// allocRecordingDevice wraps a real device and records every buffer size
// requested from it.
type allocRecordingDevice struct {
	device.Device
	allocs []int
}

func (d *allocRecordingDevice) NewBuffer(n int) (device.Buffer, error) {
	d.allocs = append(d.allocs, n)
	return d.Device.NewBuffer(n)
}

func TestMaxAllocatesDatasetSizedBufferPair(t *testing.T) {
	dev := &allocRecordingDevice{Device: newTestDevice(t)}
	eng, err := New(dev, Params{LocalSize: 4, GroupsMax: 8, ItemsPerThread: 2}, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	data := dataset.Generate(1000, 7)
	res, err := eng.Max(data)
	require.NoError(t, err)
	assert.Equal(t, Reference(data), res.Value)

	// Both ping-pong buffers are allocated once, at full dataset size,
	// even though every pass after the first touches a shrinking prefix.
	assert.Equal(t, []int{len(data), len(data)}, dev.allocs)
}

func TestVariantsProduceIdenticalResults(t *testing.T) {
	data := dataset.Generate(300_000, 5)
	params := Params{LocalSize: 64, GroupsMax: 128, ItemsPerThread: 4}

	fast, err := New(newTestDevice(t), params, zap.NewNop())
	require.NoError(t, err)
	defer fast.Close()
	portable, err := New(newTestDevice(t, device.WithLanguageVersion("SimCL C 1.2")), params, zap.NewNop())
	require.NoError(t, err)
	defer portable.Close()

	require.Equal(t, VariantFast, fast.Variant())
	require.Equal(t, VariantPortable, portable.Variant())

	fastRes, err := fast.Max(data)
	require.NoError(t, err)
	portableRes, err := portable.Max(data)
	require.NoError(t, err)

	assert.Equal(t, fastRes.Value, portableRes.Value)
	assert.Equal(t, fastRes.Passes, portableRes.Passes)
}

func TestMaxIsDeterministic(t *testing.T) {
	eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	data := dataset.Generate(1<<20, 11)

	first, err := eng.Max(data)
	require.NoError(t, err)
	second, err := eng.Max(data)
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Passes, second.Passes)
}

func TestResultSummary(t *testing.T) {
	eng, err := New(newTestDevice(t), DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Max(dataset.Generate(1<<20, 3))
	require.NoError(t, err)

	s := res.Summary()
	assert.Equal(t, res.Passes, s.Passes)
	assert.GreaterOrEqual(t, s.MaxMS, s.MinMS)
	assert.GreaterOrEqual(t, s.MeanMS, 0.0)
}
