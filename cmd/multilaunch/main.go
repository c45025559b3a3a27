package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/ipc"
	"github.com/1broseidon/multilaunch/internal/launcher"
	"github.com/1broseidon/multilaunch/internal/proctable"
	"github.com/1broseidon/multilaunch/internal/registry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printMainUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "tui":
		return runTUI(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	case "launch":
		return runLaunch(args[1:])
	case "list":
		return runList(args[1:])
	case "terminate":
		return runTerminate(args[1:])
	case "terminate-all":
		return runTerminateAll(args[1:])
	case "move":
		return runMove(args[1:])
	case "logs":
		return runLogs(args[1:])
	case "status":
		return runStatus(args[1:])
	case "positions":
		return runPositions(args[1:])
	case "config":
		return runConfig(args[1:])
	case "cleanup":
		return runCleanup(args[1:])
	case "mcp":
		return runMCP(args[1:])
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printMainUsage(os.Stderr)
		return 2
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: multilaunch <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui                 Open the interactive launcher")
	fmt.Fprintln(w, "  daemon              Run the coordinator headless (foreground)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  launch <exe>        Launch an instance")
	fmt.Fprintln(w, "  list                List instances")
	fmt.Fprintln(w, "  terminate <id>      Terminate an instance")
	fmt.Fprintln(w, "  terminate-all       Terminate every instance")
	fmt.Fprintln(w, "  move <id> <pos>     Move an instance to another position")
	fmt.Fprintln(w, "  logs                Show the activity log")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  positions           Print the position table")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  cleanup             Remove launch manifests left by a crashed controller")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'multilaunch <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set whose usage prints usage, description and
// the flag defaults.
func newFlagSet(name, usage, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, description)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parseFlags returns -1 to continue, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid instance id %q", s)
	}
	return id, nil
}

func runLaunch(args []string) int {
	fs := newFlagSet("launch", "multilaunch launch [--position P] [--args S] <exe>",
		"Launch an instance through the running daemon and place its window.")
	position := fs.String("position", "", "Position key (default: defaults.position)")
	params := fs.String("args", "", "Argument string (default: default_params)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "launch requires <exe>")
		fs.Usage()
		return 2
	}

	argString := *params
	if argString == "" {
		if res, err := loadConfig(""); err == nil {
			argString = res.Config.DefaultParams
		}
	}

	id, err := ipc.NewClient().Launch(fs.Arg(0), argString, *position)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("launched instance #%d\n", id)
	return 0
}

func runList(args []string) int {
	fs := newFlagSet("list", "multilaunch list [--json]", "List tracked instances.")
	jsonOut := fs.Bool("json", false, "Output instances as JSON")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "list takes no arguments")
		fs.Usage()
		return 2
	}

	views, err := ipc.NewClient().ListInstances()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		if views == nil {
			views = []registry.View{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if len(views) == 0 {
		fmt.Println("no instances")
		return 0
	}
	fmt.Println(instancesTable(views))
	return 0
}

func instancesTable(views []registry.View) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PROGRAM", "POSITION", "STATUS", "PID", "UPTIME")
	for _, v := range views {
		pid := "-"
		if v.PID != 0 {
			pid = strconv.Itoa(v.PID)
		}
		t.Row(
			strconv.Itoa(v.ID),
			v.DisplayName,
			v.PositionName,
			string(v.Status),
			pid,
			time.Since(v.LaunchedAt).Truncate(time.Second).String(),
		)
	}
	return t.Render()
}

func runTerminate(args []string) int {
	fs := newFlagSet("terminate", "multilaunch terminate <id>", "Terminate one instance.")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "terminate requires <id>")
		fs.Usage()
		return 2
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	outcome, err := ipc.NewClient().Terminate(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("instance #%d: %s\n", id, outcome)
	return 0
}

func runTerminateAll(args []string) int {
	fs := newFlagSet("terminate-all", "multilaunch terminate-all", "Terminate every instance.")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "terminate-all takes no arguments")
		fs.Usage()
		return 2
	}
	if err := ipc.NewClient().TerminateAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMove(args []string) int {
	fs := newFlagSet("move", "multilaunch move <id> <position>", "Move an instance's window to another position.")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "move requires <id> <position>")
		fs.Usage()
		return 2
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().Reposition(id, fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runLogs(args []string) int {
	fs := newFlagSet("logs", "multilaunch logs [--lines N]", "Print the most recent activity log lines.")
	lines := fs.Int("lines", 50, "Number of lines (0 = all)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "logs takes no arguments")
		fs.Usage()
		return 2
	}
	out, err := ipc.NewClient().GetLogs(*lines)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, line := range out {
		fmt.Println(line)
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "multilaunch status", "Show daemon status via IPC.")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("daemon_pid:     %d\n", status.PID)
	fmt.Printf("instances:      %d\n", status.Instances)
	fmt.Printf("running:        %d\n", status.Running)
	fmt.Printf("launching:      %d\n", status.Launching)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	if status.ArtifactDir != "" {
		fmt.Printf("artifact_dir:   %s\n", status.ArtifactDir)
	}
	return 0
}

func runPositions(args []string) int {
	fs := newFlagSet("positions", "multilaunch positions [--path PATH]", "Print the configured position table.")
	path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(positionsTable(res.Config))
	return 0
}

func positionsTable(cfg *config.Config) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "NAME", "X", "Y", "")
	for _, p := range cfg.Positions {
		mark := ""
		if p.Key == cfg.Defaults.Position {
			mark = "default"
		}
		t.Row(p.Key, p.Name, strconv.Itoa(p.X()), strconv.Itoa(p.Y()), mark)
	}
	size := fmt.Sprintf("window size: %dx%d", cfg.Defaults.WindowSize[0], cfg.Defaults.WindowSize[1])
	return t.Render() + "\n" + size
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  multilaunch config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  multilaunch config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning: "+w)
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Printf("# source: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runCleanup(args []string) int {
	fs := newFlagSet("cleanup", "multilaunch cleanup [--dry-run] [--path PATH]",
		"Remove launch manifests whose controller is no longer running.")
	dryRun := fs.Bool("dry-run", false, "List orphaned manifests without removing them")
	path := fs.String("path", "", "Config file path (default: ~/.config/multilaunch/config.yaml)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	dir, err := resolveArtifactDir(res.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if dir == "" {
		fmt.Println("launch manifests are disabled (launch.artifact_dir: \"-\")")
		return 0
	}

	procs := proctable.New()
	alive := func(pid int) bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := procs.Alive(ctx, pid)
		// Unknown liveness keeps the manifest.
		return ok || err != nil
	}

	orphans, err := launcher.Orphans(dir, alive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(orphans) == 0 {
		fmt.Println("no orphaned launch manifests")
		return 0
	}

	failed := 0
	for _, m := range orphans {
		note := ""
		if m.SpawnPID > 0 && alive(m.SpawnPID) {
			note = fmt.Sprintf(" (spawned pid %d still running)", m.SpawnPID)
		}
		if *dryRun {
			fmt.Printf("would remove %s: #%d %s%s\n", m.File(), m.ID, m.Path, note)
			continue
		}
		if err := os.Remove(m.File()); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to remove %s: %v\n", m.File(), err)
			failed++
			continue
		}
		fmt.Printf("removed %s: #%d %s%s\n", m.File(), m.ID, m.Path, note)
	}
	if failed > 0 {
		return 1
	}
	return 0
}
