package device

import (
	"log/slog"
	"sync"
)

// Manager handles device selection and lifecycle
type Manager struct {
	device Device
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewManager creates a new device manager and selects the best available
// device. Accelerator detection failures are never fatal; the CPU device is
// the fallback.
func NewManager(logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger: logger,
	}

	if err := m.detectAndInitialize(); err != nil {
		return nil, err
	}

	return m, nil
}

// detectAndInitialize detects available devices and initializes the best one
func (m *Manager) detectAndInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Try WebGPU first (only if build tag is enabled)
	if dev := m.tryCreateWebGPUDevice(); dev != nil {
		m.device = dev
		return nil
	}

	m.device = NewCPUDevice(m.logger)
	return nil
}

// Device returns the selected device.
func (m *Manager) Device() Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

// Info returns device information from the selected device.
func (m *Manager) Info() DeviceInfo {
	dev := m.Device()
	if dev == nil {
		return DeviceInfo{Name: "No device available"}
	}
	return dev.Info()
}

// BackendType returns a string describing the selected backend.
func (m *Manager) BackendType() string {
	dev := m.Device()
	if dev == nil {
		return "none"
	}
	return dev.Info().Backend
}

// IsAccelerated returns true when a real accelerator is active rather than
// the CPU fallback.
func (m *Manager) IsAccelerated() bool {
	return m.BackendType() != "cpu" && m.BackendType() != "none"
}

// Close releases the selected device.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Close(); err != nil {
			return err
		}
		m.device = nil
	}
	return nil
}
