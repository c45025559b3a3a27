package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/multilaunch/internal/ipc"
	"github.com/1broseidon/multilaunch/internal/tui"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: multilaunch daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the coordinator and IPC server in the foreground until interrupted.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	ctl, err := newController(*path, os.Stderr)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer ctl.shutdown()

	server, err := ipc.NewServer(ctl.coord, ctl.artifactDir, ctl.logger.With("component", "ipc"))
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		return 1
	}
	if err := server.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
		return 1
	}
	defer server.Stop()

	ctl.coord.Start()
	ctl.coord.Say("launcher_started")
	ctl.logger.Info("multilaunch daemon started", "socket", server.SocketPath(), "artifact_dir", ctl.artifactDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			ctl.logger.Info("received SIGHUP; configuration changes take effect after a restart")
			continue
		}
		ctl.logger.Info("shutting down multilaunch daemon", "signal", sig.String())
		ctl.coord.Say("launcher_closing")
		break
	}
	return 0
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: multilaunch tui [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open the interactive launcher. Instances are terminated on exit.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		fs.Usage()
		return 2
	}

	// The terminal belongs to the UI, so logs go to the file only.
	ctl, err := newController(*path, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer ctl.shutdown()

	server, err := ipc.NewServer(ctl.coord, ctl.artifactDir, ctl.logger.With("component", "ipc"))
	if err == nil {
		err = server.Start()
	}
	if err != nil {
		ctl.logger.Warn("IPC server unavailable; CLI and MCP control disabled", "error", err)
	} else {
		defer server.Stop()
	}

	ctl.coord.Start()
	if err := tui.Run(ctl.coord); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
