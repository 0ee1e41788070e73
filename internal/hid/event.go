// Package hid models synthetic hardware input and owns its delivery
// timeline.
//
// Chains are ordered (delay, event) runs delivered by a single worker;
// a chain in flight is never interleaved with another. The capability
// handle behind delivery is created lazily, once per process.
package hid

import (
	"errors"
	"time"
)

// SenderID tags every synthetic event with a fixed origin identity.
const SenderID uint64 = 0x8000000817319372

// Usage pages and usages the daemon emits.
const (
	PageKeyboard uint32 = 0x07
	PageConsumer uint32 = 0x0C

	UsageMenu uint32 = 0x40
)

var (
	ErrEmptyChain    = errors.New("hid: empty chain")
	ErrNegativeDelay = errors.New("hid: negative delay")
)

// Event is one synthetic key transition.
type Event struct {
	Page  uint32
	Usage uint32
	Down  bool
}

// Step is one timed emission: wait Delay, then deliver Event.
type Step struct {
	Delay time.Duration
	Event Event
}

// Chain is an ordered run of steps delivered without interleaving.
// Settle holds the timeline after the last step so back-to-back chains
// cannot blur into each other.
type Chain struct {
	Name   string
	Steps  []Step
	Settle time.Duration
}

func (c Chain) validate() error {
	if len(c.Steps) == 0 {
		return ErrEmptyChain
	}
	for _, st := range c.Steps {
		if st.Delay < 0 {
			return ErrNegativeDelay
		}
	}
	if c.Settle < 0 {
		return ErrNegativeDelay
	}
	return nil
}

const (
	pressHold      = 100 * time.Millisecond
	unlockTapHold  = 50 * time.Millisecond
	unlockPressGap = 1500 * time.Millisecond
	unlockSettle   = 200 * time.Millisecond
)

// Key is a single key transition.
func Key(page, usage uint32, down bool) Chain {
	return Chain{
		Name:  "key",
		Steps: []Step{{Event: Event{Page: page, Usage: usage, Down: down}}},
	}
}

// Press is a full key press: down, a beat, up.
func Press(page, usage uint32) Chain {
	return Chain{
		Name: "press",
		Steps: []Step{
			{Event: Event{Page: page, Usage: usage, Down: true}},
			{Delay: pressHold, Event: Event{Page: page, Usage: usage, Down: false}},
		},
	}
}

// Unlock is the canonical wake-then-unlock sequence: two Menu presses,
// spaced so the device cannot read them as an App Switcher double-press,
// then a settle period before the chain completes.
func Unlock() Chain {
	down := Event{Page: PageConsumer, Usage: UsageMenu, Down: true}
	up := Event{Page: PageConsumer, Usage: UsageMenu, Down: false}
	return Chain{
		Name: "unlock",
		Steps: []Step{
			{Event: down},
			{Delay: unlockTapHold, Event: up},
			{Delay: unlockPressGap, Event: down},
			{Delay: unlockTapHold, Event: up},
		},
		Settle: unlockSettle,
	}
}
