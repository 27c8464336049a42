package reduction

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/device"
)

// nativeReduceMajor is the first kernel language major version that ships a
// native work-group reduce.
const nativeReduceMajor = 2

// SelectVariant decides which kernel variant a device can run. Devices
// advertise their kernel language as "<label> <major>.<minor>"; native group
// reduction arrived in 2.0, so anything older gets the portable tree.
//
// The probe never fails. When the language query errors the overall device
// version string stands in, and an unparseable string lands on portable.
func SelectVariant(dev device.Device, log *zap.Logger) Variant {
	if log == nil {
		log = zap.NewNop()
	}
	version, err := dev.KernelLanguage()
	if err != nil {
		version = dev.Version()
		log.Warn("kernel language query failed, probing device version instead",
			zap.Error(err),
			zap.String("deviceVersion", version))
	}
	major, ok := parseMajor(version)
	if !ok {
		log.Warn("unparseable version string, selecting portable kernel",
			zap.String("version", version))
		return VariantPortable
	}
	if major >= nativeReduceMajor {
		return VariantFast
	}
	return VariantPortable
}

// parseMajor extracts the major version from "<label> <major>.<minor>". The
// numeric token is the last whitespace-separated field, which tolerates
// multi-word labels like "OpenCL C 2.0". Both halves must be integers; a
// missing or non-numeric minor rejects the whole string.
func parseMajor(version string) (int, bool) {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return 0, false
	}
	numeric := fields[len(fields)-1]
	majorStr, minorStr, found := strings.Cut(numeric, ".")
	if !found {
		return 0, false
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, false
	}
	if _, err := strconv.Atoi(minorStr); err != nil {
		return 0, false
	}
	return major, true
}
