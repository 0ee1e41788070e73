// Package sim provides simulated capability backends for running the
// daemon outside a real guest.
package sim

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// HID records synthetic events instead of injecting them.
type HID struct {
	logger zerolog.Logger

	mu     sync.Mutex
	events []hid.Event
}

func NewHID(logger zerolog.Logger) *HID {
	return &HID{logger: logger.With().Str("component", "sim_hid").Logger()}
}

func (h *HID) Metadata() capability.Metadata {
	return capability.Metadata{
		ID:          "hid",
		Name:        "Synthetic input (simulated)",
		Description: "records key events instead of injecting them",
	}
}

func (h *HID) Load() capability.ActionSet {
	return capability.NewActionSet(protocol.CmdHIDKey, protocol.CmdHIDPress, protocol.CmdUnlock)
}

func (h *HID) Available() bool { return true }

func (h *HID) Open() (hid.Client, error) { return h, nil }

func (h *HID) Dispatch(ev hid.Event) error {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.logger.Info().
		Uint32("page", ev.Page).
		Uint32("usage", ev.Usage).
		Bool("down", ev.Down).
		Msg("event")
	return nil
}

// Events returns everything dispatched so far.
func (h *HID) Events() []hid.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hid.Event(nil), h.events...)
}
