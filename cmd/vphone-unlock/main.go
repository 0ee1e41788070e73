// vphone-unlock runs the device unlock key sequence in-process, without
// a daemon. Intended for guest-local recovery and for exercising the
// injection timeline with the simulated backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/capability/sim"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/logging"
)

func main() {
	var (
		simulate bool
		timeout  time.Duration
	)
	flag.BoolVar(&simulate, "sim", false, "use the simulated input backend")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for delivery")
	flag.Parse()

	logger := logging.ConfigureRuntime("vphone-unlock")

	var backend hid.Backend
	if simulate {
		backend = sim.NewHID(logger)
	} else {
		backend = hid.UnsupportedBackend()
	}

	sched := hid.NewScheduler(backend, logger)
	defer sched.Close()

	h, err := sched.Submit(hid.Unlock())
	if err != nil {
		if errors.Is(err, capability.ErrUnavailable) {
			fmt.Fprintln(os.Stderr, "vphone-unlock: no input backend on this build (try -sim)")
		} else {
			fmt.Fprintf(os.Stderr, "vphone-unlock: %v\n", err)
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vphone-unlock: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("unlock delivered chain=%s\n", h.ID())
}
