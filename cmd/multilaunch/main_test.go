package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/launcher"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if rc := run([]string{"bogus"}); rc != 2 {
		t.Fatalf("run(bogus) = %d, want 2", rc)
	}
}

func TestRunStatusWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if rc := run([]string{"status"}); rc != 1 {
		t.Fatalf("status without daemon = %d, want 1", rc)
	}
}

func TestRunTerminateBadID(t *testing.T) {
	if rc := run([]string{"terminate", "zero"}); rc != 2 {
		t.Fatalf("terminate zero = %d, want 2", rc)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	writeFile(t, valid, "defaults:\n  position: bottom_right\n")
	if rc := run([]string{"config", "validate", "--path", valid}); rc != 0 {
		t.Fatalf("validate valid config = %d, want 0", rc)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "defaults:\n  position: nowhere\n")
	if rc := run([]string{"config", "validate", "--path", invalid}); rc != 1 {
		t.Fatalf("validate invalid config = %d, want 1", rc)
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "no_such_key: 1\n")
	if rc := run([]string{"config", "validate", "--path", unknown}); rc != 1 {
		t.Fatalf("validate unknown key = %d, want 1", rc)
	}
}

func TestResolveArtifactDir(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	cfg := config.DefaultConfig()
	got, err := resolveArtifactDir(cfg)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if want := filepath.Join(runtimeDir, "multilaunch"); got != want {
		t.Fatalf("default dir = %q, want %q", got, want)
	}

	cfg.Launch.ArtifactDir = "-"
	if got, err := resolveArtifactDir(cfg); err != nil || got != "" {
		t.Fatalf("disabled = %q, %v; want empty", got, err)
	}

	explicit := filepath.Join(t.TempDir(), "manifests")
	cfg.Launch.ArtifactDir = explicit
	if got, err := resolveArtifactDir(cfg); err != nil || got != explicit {
		t.Fatalf("explicit = %q, %v; want %q", got, err, explicit)
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	manifests := filepath.Join(dir, "manifests")
	if err := os.MkdirAll(manifests, 0o700); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "launch:\n  artifact_dir: "+manifests+"\n")

	live := writeManifest(t, manifests, launcher.Manifest{ID: 1, Path: "/opt/app/client.exe", LauncherPID: os.Getpid()})
	orphan := writeManifest(t, manifests, launcher.Manifest{ID: 2, Path: "/opt/app/client.exe"})

	if rc := run([]string{"cleanup", "--dry-run", "--path", cfgPath}); rc != 0 {
		t.Fatalf("cleanup --dry-run = %d, want 0", rc)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("dry run removed orphan: %v", err)
	}

	if rc := run([]string{"cleanup", "--path", cfgPath}); rc != 0 {
		t.Fatalf("cleanup = %d, want 0", rc)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("live manifest removed: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, dir string, m launcher.Manifest) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "launch-"+strconv.Itoa(m.ID)+".json")
	writeFile(t, path, string(data))
	return path
}
