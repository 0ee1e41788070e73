package hid

import "github.com/Lakr233/vphone-cli/internal/capability"

type unsupportedBackend struct{}

// UnsupportedBackend reports an absent input subsystem. Builds without a
// real guest injection path use it so the scheduler still answers
// negotiation.
func UnsupportedBackend() Backend { return unsupportedBackend{} }

func (unsupportedBackend) Metadata() capability.Metadata {
	return capability.Metadata{
		ID:          "hid",
		Name:        "Synthetic input",
		Description: "guest input injection",
	}
}

func (unsupportedBackend) Load() capability.ActionSet { return capability.NewActionSet() }
func (unsupportedBackend) Available() bool            { return false }
func (unsupportedBackend) Open() (Client, error)      { return nil, capability.ErrUnavailable }
