package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/client"
	"github.com/Lakr233/vphone-cli/internal/logging"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

const usageText = `usage: vphonectl [flags] <command> [args]

commands:
  ping                            round-trip the control channel
  capabilities                    list daemon capability providers
  ls <path>                       list one guest directory
  get <remote> [local]            download a guest file ("-" = stdout)
  put <local> <remote>            upload a file into the guest
  mkdir <path>                    create a guest directory
  rm <path>                       delete a guest file or empty directory
  mv <from> <to>                  rename a guest path
  key <page> <usage> <down|up>    inject one key transition
  press <page> <usage>            inject a timed key press
  unlock                          run the device unlock sequence
  location set <lat> <lon> [alt]  simulate a location fix
  location clear                  drop the simulated fix
  devmode status|arm              query or enable developer mode

flags:
`

func main() {
	flags := flag.NewFlagSet("vphonectl", flag.ExitOnError)
	addr := flags.String("addr", "127.0.0.1:5959", "daemon control address")
	network := flags.String("network", "tcp", "daemon control network (tcp or unix)")
	timeout := flags.Duration("timeout", 15*time.Second, "per-operation transport timeout")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	logging.ConfigureRuntime("vphonectl")

	cfg := client.DefaultConfig()
	cfg.Network = *network
	cfg.Addr = *addr
	cfg.ReadTimeout = *timeout
	cfg.WriteTimeout = *timeout

	c, err := client.Dial(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vphonectl: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := runCommand(context.Background(), c, args[0], args[1:]); err != nil {
		var ce *protocol.CmdError
		if errors.As(err, &ce) {
			fmt.Fprintf(os.Stderr, "vphonectl: daemon refused: %v\n", ce)
		} else {
			fmt.Fprintf(os.Stderr, "vphonectl: %v\n", err)
		}
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "ping":
		return cmdPing(ctx, c)
	case "capabilities", "caps":
		return cmdCapabilities(ctx, c)
	case "ls":
		return cmdList(ctx, c, args)
	case "get":
		return cmdGet(ctx, c, args)
	case "put":
		return cmdPut(ctx, c, args)
	case "mkdir":
		return cmdMkdir(ctx, c, args)
	case "rm":
		return cmdRemove(ctx, c, args)
	case "mv":
		return cmdRename(ctx, c, args)
	case "key":
		return cmdKey(ctx, c, args)
	case "press":
		return cmdPress(ctx, c, args)
	case "unlock":
		return cmdUnlock(ctx, c)
	case "location":
		return cmdLocation(ctx, c, args)
	case "devmode":
		return cmdDevMode(ctx, c, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdPing(ctx context.Context, c *client.Client) error {
	start := time.Now()
	ts, err := c.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("ok daemon_time=%s rtt=%s\n",
		ts.UTC().Format(time.RFC3339Nano),
		time.Since(start).Round(time.Millisecond))
	return nil
}

func cmdCapabilities(ctx context.Context, c *client.Client) error {
	caps, err := c.Capabilities(ctx)
	if err != nil {
		return err
	}
	for _, s := range caps {
		fmt.Printf("%-10s available=%-5v actions=%s\n",
			s.ID, s.Available, strings.Join(s.Actions, ","))
	}
	return nil
}

func cmdList(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ls <path>")
	}
	entries, err := c.ListFiles(ctx, args[0])
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-8s %10d  %s\n", e.Type, e.Size, e.Name)
	}
	return nil
}

func cmdGet(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: get <remote> [local]")
	}
	remote := args[0]
	local := filepath.Base(remote)
	if len(args) == 2 {
		local = args[1]
	}

	var w io.Writer = os.Stdout
	if local != "-" {
		f, err := os.Create(local)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := c.GetFile(ctx, remote, w)
	if err != nil {
		return err
	}
	if local != "-" {
		fmt.Printf("got %d bytes -> %s\n", n, local)
	}
	return nil
}

func cmdPut(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: put <local> <remote>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := c.PutFile(ctx, args[1], f, info.Size()); err != nil {
		return err
	}
	fmt.Printf("put %d bytes -> %s\n", info.Size(), args[1])
	return nil
}

func cmdMkdir(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mkdir <path>")
	}
	return c.Mkdir(ctx, args[0])
}

func cmdRemove(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm <path>")
	}
	return c.Remove(ctx, args[0])
}

func cmdRename(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: mv <from> <to>")
	}
	return c.Rename(ctx, args[0], args[1])
}

func cmdKey(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: key <page> <usage> <down|up>")
	}
	page, err := parseUint32(args[0])
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	usage, err := parseUint32(args[1])
	if err != nil {
		return fmt.Errorf("parse usage: %w", err)
	}
	var down bool
	switch args[2] {
	case "down":
		down = true
	case "up":
		down = false
	default:
		return fmt.Errorf("direction %q (expected down or up)", args[2])
	}
	chain, err := c.SendKey(ctx, page, usage, down)
	if err != nil {
		return err
	}
	fmt.Printf("accepted chain=%s\n", chain)
	return nil
}

func cmdPress(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: press <page> <usage>")
	}
	page, err := parseUint32(args[0])
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	usage, err := parseUint32(args[1])
	if err != nil {
		return fmt.Errorf("parse usage: %w", err)
	}
	chain, err := c.PressKey(ctx, page, usage)
	if err != nil {
		return err
	}
	fmt.Printf("accepted chain=%s\n", chain)
	return nil
}

func cmdUnlock(ctx context.Context, c *client.Client) error {
	chain, err := c.Unlock(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("accepted chain=%s\n", chain)
	return nil
}

func cmdLocation(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: location set <lat> <lon> [alt] | location clear")
	}
	switch args[0] {
	case "set":
		rest := args[1:]
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("usage: location set <lat> <lon> [alt]")
		}
		fix := capability.Fix{}
		var err error
		if fix.Lat, err = strconv.ParseFloat(rest[0], 64); err != nil {
			return fmt.Errorf("parse lat: %w", err)
		}
		if fix.Lon, err = strconv.ParseFloat(rest[1], 64); err != nil {
			return fmt.Errorf("parse lon: %w", err)
		}
		if len(rest) == 3 {
			if fix.Alt, err = strconv.ParseFloat(rest[2], 64); err != nil {
				return fmt.Errorf("parse alt: %w", err)
			}
		}
		return c.SetLocation(ctx, fix)
	case "clear":
		return c.ClearLocation(ctx)
	default:
		return fmt.Errorf("unknown location action %q", args[0])
	}
}

func cmdDevMode(ctx context.Context, c *client.Client, args []string) error {
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "status":
		enabled, err := c.DevModeStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("developer_mode=%v\n", enabled)
		return nil
	case "arm":
		res, err := c.DevModeArm(ctx)
		if err != nil {
			return err
		}
		if res.AlreadyEnabled {
			fmt.Println("developer mode already enabled")
		} else {
			fmt.Println("developer mode enabled")
		}
		return nil
	default:
		return fmt.Errorf("unknown devmode action %q", action)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
