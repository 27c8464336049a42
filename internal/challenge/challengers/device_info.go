package challengers

import (
	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/device"
	"github.com/fxnlabs/reduction-bench/internal/reduction"
)

// CapabilityReport describes the managed device and the kernel variant the
// probe selects for it.
type CapabilityReport struct {
	Device      device.DeviceInfo `json:"device"`
	Variant     string            `json:"variant"`
	Accelerated bool              `json:"accelerated"`
}

// DeviceInfoChallenger reports what the node is running on.
type DeviceInfoChallenger struct {
	manager *device.Manager
}

func NewDeviceInfoChallenger(manager *device.Manager) *DeviceInfoChallenger {
	return &DeviceInfoChallenger{manager: manager}
}

// Report probes the managed device.
func (c *DeviceInfoChallenger) Report(log *zap.Logger) CapabilityReport {
	variant := reduction.SelectVariant(c.manager.Device(), log)
	return CapabilityReport{
		Device:      c.manager.Info(),
		Variant:     variant.String(),
		Accelerated: c.manager.IsAccelerated(),
	}
}

// Execute returns the capability report.
func (c *DeviceInfoChallenger) Execute(payload interface{}, log *zap.Logger) (interface{}, error) {
	log.Info("Reporting device capabilities...")
	return c.Report(log), nil
}
