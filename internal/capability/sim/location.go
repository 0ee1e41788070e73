package sim

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// Location keeps the simulated fix in memory.
type Location struct {
	logger zerolog.Logger

	mu  sync.Mutex
	fix *capability.Fix
}

func NewLocation(logger zerolog.Logger) *Location {
	return &Location{logger: logger.With().Str("component", "sim_location").Logger()}
}

func (l *Location) Metadata() capability.Metadata {
	return capability.Metadata{
		ID:          "location",
		Name:        "Location simulation (simulated)",
		Description: "holds the spoofed fix in memory",
	}
}

func (l *Location) Load() capability.ActionSet {
	return capability.NewActionSet(protocol.CmdLocationSet, protocol.CmdLocationClear)
}

func (l *Location) Available() bool { return true }

func (l *Location) Simulate(f capability.Fix) error {
	l.mu.Lock()
	l.fix = &f
	l.mu.Unlock()
	l.logger.Info().
		Float64("lat", f.Lat).
		Float64("lon", f.Lon).
		Float64("alt", f.Alt).
		Msg("fix simulated")
	return nil
}

func (l *Location) Clear() error {
	l.mu.Lock()
	l.fix = nil
	l.mu.Unlock()
	l.logger.Info().Msg("fix cleared")
	return nil
}

// Current returns the active fix, if one is set.
func (l *Location) Current() (capability.Fix, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fix == nil {
		return capability.Fix{}, false
	}
	return *l.fix, true
}
