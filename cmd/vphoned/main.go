package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Lakr233/vphone-cli/internal/daemon"
	"github.com/Lakr233/vphone-cli/internal/logging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to vphoned config file (TOML)")
	flag.Parse()

	logging.ConfigureRuntime("vphoned")

	cfg := daemon.DefaultServiceConfig()
	if configPath != "" {
		loaded, err := loadServiceConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vphoned: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc := daemon.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "vphoned: %v\n", err)
		os.Exit(1)
	}
}
