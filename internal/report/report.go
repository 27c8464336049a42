// Package report renders benchmark outcomes in the three output modes the
// CLI offers: console, CSV and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// CSVHeader names the columns emitted by Record.CSV, kept stable for the
// plotting scripts that consume it.
const CSVHeader = "size,kernel_ms,passes,wg,items"

// Record is the outcome of one benchmark run in a form every output mode
// can render.
type Record struct {
	Size             int     `json:"size"`
	KernelMS         float64 `json:"kernel_ms"`
	Passes           int     `json:"passes"`
	LocalSize        int     `json:"wg"`
	ItemsPerThread   int     `json:"items"`
	GroupsMax        int     `json:"groups_max"`
	Variant          string  `json:"variant"`
	Device           string  `json:"device"`
	Backend          string  `json:"backend"`
	DeviceMax        float32 `json:"device_max"`
	HostMax          float32 `json:"host_max"`
	Verified         bool    `json:"verified"`
	Seed             uint64  `json:"seed"`
	MeanPassMS       float64 `json:"mean_pass_ms"`
	MinPassMS        float64 `json:"min_pass_ms"`
	MaxPassMS        float64 `json:"max_pass_ms"`
	ThroughputGElems float64 `json:"throughput_gelems_s"`
}

// CSV renders the row format shared with the plotting scripts.
func (r Record) CSV() string {
	return fmt.Sprintf("%d,%.3f,%d,%d,%d", r.Size, r.KernelMS, r.Passes, r.LocalSize, r.ItemsPerThread)
}

// JSON renders the full record, indented.
func (r Record) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteConsole renders the human-readable run summary.
func (r Record) WriteConsole(w io.Writer) {
	fmt.Fprintf(w, "device      : %s (%s)\n", r.Device, r.Backend)
	fmt.Fprintf(w, "variant     : %s\n", r.Variant)
	fmt.Fprintf(w, "elements    : %d (seed %d)\n", r.Size, r.Seed)
	fmt.Fprintf(w, "geometry    : wg=%d items=%d groupsMax=%d\n", r.LocalSize, r.ItemsPerThread, r.GroupsMax)
	fmt.Fprintf(w, "passes      : %d\n", r.Passes)
	fmt.Fprintf(w, "kernel time : %.3f ms (per pass mean %.3f, min %.3f, max %.3f)\n",
		r.KernelMS, r.MeanPassMS, r.MinPassMS, r.MaxPassMS)
	fmt.Fprintf(w, "throughput  : %.2f Gelem/s\n", r.ThroughputGElems)
	fmt.Fprintf(w, "device max  : %g\n", r.DeviceMax)
	fmt.Fprintf(w, "host max    : %g\n", r.HostMax)
	status := "OK"
	if !r.Verified {
		status = "FAILED"
	}
	fmt.Fprintf(w, "verified    : %s\n", status)
}
