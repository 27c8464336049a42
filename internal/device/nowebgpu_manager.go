//go:build !webgpu
// +build !webgpu

package device

// tryCreateWebGPUDevice attempts to create a WebGPU device when the webgpu
// build tag is NOT present
func (m *Manager) tryCreateWebGPUDevice() Device {
	return nil
}
