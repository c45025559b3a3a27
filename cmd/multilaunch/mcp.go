package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/multilaunch/internal/ipc"
	"github.com/1broseidon/multilaunch/internal/logging"
	"github.com/1broseidon/multilaunch/internal/mcp"
)

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: multilaunch mcp <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve    Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'multilaunch mcp <command> --help' for command-specific options.")
}

func runMCP(args []string) int {
	if len(args) == 0 {
		printMCPUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "serve":
		return runMCPServe(args[1:])
	case "help", "-h", "--help":
		printMCPUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n", args[0])
		printMCPUsage(os.Stderr)
		return 2
	}
}

func runMCPServe(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: multilaunch mcp serve")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Start the MCP server on stdio. Tools are forwarded to a running")
		fmt.Fprintln(os.Stdout, "'multilaunch daemon' or 'multilaunch tui' over IPC.")
		return 0
	}

	res, err := loadConfig("")
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	cfg := res.Config

	// stdout carries the protocol; log to the file only.
	logger, closer, err := logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize MCP logger: %v", err)
		logger = logging.Discard()
	}
	defer closer.Close()

	client := ipc.NewClient()
	if err := client.Ping(); err != nil {
		logger.Warn("daemon not reachable; tools will fail until it starts", "error", err)
	}

	server := mcp.NewServer(client, cfg.DefaultParams, logger.With("component", "mcp"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		log.Printf("MCP server error: %v", err)
		return 1
	}
	return 0
}
