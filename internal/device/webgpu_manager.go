//go:build webgpu
// +build webgpu

package device

// tryCreateWebGPUDevice attempts to create a WebGPU device when the webgpu
// build tag is present
func (m *Manager) tryCreateWebGPUDevice() Device {
	dev, err := NewWebGPUDevice(m.logger)
	if err != nil {
		m.logger.Warn("WebGPU unavailable, falling back to CPU device", "error", err)
		return nil
	}
	m.logger.Info("Using WebGPU device")
	return dev
}
