package sim

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// DevMode flips an in-memory arming latch. A real guest arms for the
// next boot; the simulation takes effect immediately.
type DevMode struct {
	logger zerolog.Logger

	mu      sync.Mutex
	enabled bool
}

func NewDevMode(logger zerolog.Logger) *DevMode {
	return &DevMode{logger: logger.With().Str("component", "sim_devmode").Logger()}
}

func (d *DevMode) Metadata() capability.Metadata {
	return capability.Metadata{
		ID:          "devmode",
		Name:        "Developer mode (simulated)",
		Description: "in-memory developer mode latch",
	}
}

func (d *DevMode) Load() capability.ActionSet {
	return capability.NewActionSet(protocol.CmdDevModeStatus, protocol.CmdDevModeArm)
}

func (d *DevMode) Available() bool { return true }

func (d *DevMode) Status() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled, nil
}

func (d *DevMode) Arm() (capability.ArmResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled {
		return capability.ArmResult{Enabled: true, AlreadyEnabled: true}, nil
	}
	d.enabled = true
	d.logger.Info().Msg("developer mode armed")
	return capability.ArmResult{Enabled: true}, nil
}
