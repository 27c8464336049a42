package device

import "golang.org/x/sys/cpu"

// simdFeatures lists the host's vector extensions for device info reporting.
// Fields read here are zero on foreign architectures, so no build tags are
// needed.
func simdFeatures() []string {
	var features []string
	if cpu.X86.HasAVX512F {
		features = append(features, "avx512f")
	}
	if cpu.X86.HasAVX2 {
		features = append(features, "avx2")
	}
	if cpu.X86.HasAVX {
		features = append(features, "avx")
	}
	if cpu.X86.HasFMA {
		features = append(features, "fma")
	}
	if cpu.X86.HasSSE42 {
		features = append(features, "sse4.2")
	}
	if cpu.ARM64.HasASIMD {
		features = append(features, "asimd")
	}
	return features
}
