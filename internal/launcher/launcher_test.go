package launcher

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript creates an executable shell script that records its working
// directory and arguments, then sleeps.
func writeScript(t *testing.T, dir string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script launch is unix-only")
	}
	path := filepath.Join(dir, "fake-game")
	body := "#!/bin/sh\npwd > \"$0.cwd\"\necho \"$@\" > \"$0.args\"\nsleep 30\n"
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func killLater(t *testing.T, pid int) {
	t.Cleanup(func() {
		if p, err := os.FindProcess(pid); err == nil {
			_ = p.Kill()
		}
	})
}

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return nil
}

func TestLaunch_MissingExecutable(t *testing.T) {
	l := New("", testLogger())

	_, err := l.Launch(Request{ID: 1, Path: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	_, err = l.Launch(Request{ID: 1, Path: t.TempDir()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("directory: err = %v, want ErrNotFound", err)
	}
}

func TestLaunch_SpawnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec permission bits are unix-only")
	}
	path := filepath.Join(t.TempDir(), "not-executable")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := New("", testLogger()).Launch(Request{ID: 1, Path: path})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("err = %v, want ErrSpawn", err)
	}
}

func TestLaunch_DetachedWithWorkdirAndArtifact(t *testing.T) {
	binDir := t.TempDir()
	artifacts := t.TempDir()
	script := writeScript(t, binDir)

	l := New(artifacts, testLogger())
	spawned, err := l.Launch(Request{ID: 7, Path: script, Args: `-x "a b"`})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	killLater(t, spawned.SpawnPID)

	if spawned.SpawnPID <= 0 {
		t.Fatalf("SpawnPID = %d", spawned.SpawnPID)
	}
	if spawned.WorkDir != binDir {
		t.Fatalf("WorkDir = %q, want %q", spawned.WorkDir, binDir)
	}

	cwd := strings.TrimSpace(string(waitForFile(t, script+".cwd")))
	wantCwd, _ := filepath.EvalSymlinks(binDir)
	if gotCwd, _ := filepath.EvalSymlinks(cwd); gotCwd != wantCwd {
		t.Fatalf("child cwd = %q, want %q", cwd, binDir)
	}
	if args := strings.TrimSpace(string(waitForFile(t, script+".args"))); args != "-x a b" {
		t.Fatalf("child args = %q", args)
	}

	checkOwnSession(t, spawned.SpawnPID)

	if spawned.ArtifactErr != nil || spawned.Artifact == nil {
		t.Fatalf("artifact = %v, err = %v", spawned.Artifact, spawned.ArtifactErr)
	}
	data, err := os.ReadFile(spawned.Artifact.Path())
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if m.ID != 7 || m.SpawnPID != spawned.SpawnPID || m.LauncherPID != os.Getpid() || m.Args != `-x "a b"` {
		t.Fatalf("manifest = %+v", m)
	}
	if filepath.Base(spawned.Artifact.Path()) != "launch-7.json" {
		t.Fatalf("artifact name = %q", spawned.Artifact.Path())
	}

	if err := spawned.Artifact.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := spawned.Artifact.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if _, err := os.Stat(spawned.Artifact.Path()); !os.IsNotExist(err) {
		t.Fatalf("artifact still present: %v", err)
	}
}

func TestLaunch_ArtifactsDisabled(t *testing.T) {
	script := writeScript(t, t.TempDir())

	spawned, err := New("", testLogger()).Launch(Request{ID: 1, Path: script})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	killLater(t, spawned.SpawnPID)

	if spawned.Artifact != nil {
		t.Fatalf("expected no artifact, got %q", spawned.Artifact.Path())
	}
	// A nil artifact is safe to use.
	if err := spawned.Artifact.Remove(); err != nil || spawned.Artifact.Path() != "" {
		t.Fatalf("nil artifact misbehaved")
	}
}

func TestOrphansAndRemoveOwned(t *testing.T) {
	dir := t.TempDir()
	self := os.Getpid()
	for _, m := range []Manifest{
		{ID: 1, Path: "/a", LauncherPID: self},
		{ID: 2, Path: "/b", LauncherPID: 999999},
		{ID: 3, Path: "/c"},
	} {
		if _, err := WriteManifest(dir, m); err != nil {
			t.Fatalf("WriteManifest: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte("{}"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	alive := func(pid int) bool { return pid == self }
	orphans, err := Orphans(dir, alive)
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 2 || orphans[0].ID != 2 || orphans[1].ID != 3 {
		t.Fatalf("orphans = %+v", orphans)
	}
	if orphans[0].File() != filepath.Join(dir, "launch-2.json") {
		t.Fatalf("File() = %q", orphans[0].File())
	}

	removed, err := New(dir, testLogger()).RemoveOwned()
	if err != nil || removed != 1 {
		t.Fatalf("RemoveOwned = %d, %v", removed, err)
	}
	left, _ := ReadManifests(dir)
	if len(left) != 2 {
		t.Fatalf("remaining manifests = %+v", left)
	}
}

func TestReadManifests_MissingDir(t *testing.T) {
	got, err := ReadManifests(filepath.Join(t.TempDir(), "nope"))
	if err != nil || got != nil {
		t.Fatalf("ReadManifests = %v, %v", got, err)
	}
}
