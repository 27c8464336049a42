package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		Size:             67108864,
		KernelMS:         12.3456,
		Passes:           2,
		LocalSize:        256,
		ItemsPerThread:   8,
		GroupsMax:        1024,
		Variant:          "fast",
		Device:           "CPU (amd64)",
		Backend:          "cpu",
		DeviceMax:        123456,
		HostMax:          123456,
		Verified:         true,
		Seed:             42,
		MeanPassMS:       6.1728,
		MinPassMS:        0.2,
		MaxPassMS:        12.1,
		ThroughputGElems: 5.44,
	}
}

func TestCSV(t *testing.T) {
	assert.Equal(t, "size,kernel_ms,passes,wg,items", CSVHeader)
	assert.Equal(t, "67108864,12.346,2,256,8", sampleRecord().CSV())
}

func TestCSVZeroPasses(t *testing.T) {
	rec := Record{Size: 1, LocalSize: 256, ItemsPerThread: 8}
	assert.Equal(t, "1,0.000,0,256,8", rec.CSV())
}

func TestJSON(t *testing.T) {
	out, err := sampleRecord().JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, float64(67108864), decoded["size"])
	assert.Equal(t, float64(123456), decoded["device_max"])
	assert.Equal(t, "fast", decoded["variant"])
	assert.Equal(t, true, decoded["verified"])

	var roundTrip Record
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.Equal(t, sampleRecord(), roundTrip)
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	sampleRecord().WriteConsole(&buf)

	out := buf.String()
	assert.Contains(t, out, "CPU (amd64)")
	assert.Contains(t, out, "variant     : fast")
	assert.Contains(t, out, "passes      : 2")
	assert.Contains(t, out, "verified    : OK")

	buf.Reset()
	rec := sampleRecord()
	rec.Verified = false
	rec.WriteConsole(&buf)
	assert.Contains(t, buf.String(), "verified    : FAILED")
}
