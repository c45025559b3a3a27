package launcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	artifactPrefix = "launch-"
	artifactSuffix = ".json"
)

// Manifest is the on-disk record of one launched instance.
type Manifest struct {
	ID          int       `json:"id"`
	Path        string    `json:"path"`
	Args        string    `json:"args"`
	WorkDir     string    `json:"workdir"`
	SpawnPID    int       `json:"spawn_pid"`
	LauncherPID int       `json:"launcher_pid"`
	CreatedAt   time.Time `json:"created_at"`

	file string
}

// File returns the path the manifest was read from.
func (m Manifest) File() string { return m.file }

// Artifact is a manifest file owned by a single instance.
type Artifact struct {
	path string
	once sync.Once
	err  error
}

// Path returns the manifest location; empty for a nil artifact.
func (a *Artifact) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Remove deletes the manifest. It is safe to call more than once and on a
// nil artifact; a file that is already gone is not an error.
func (a *Artifact) Remove() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.err = err
		}
	})
	return a.err
}

func artifactName(id int) string {
	return fmt.Sprintf("%s%d%s", artifactPrefix, id, artifactSuffix)
}

// WriteManifest stores m in dir as launch-<id>.json via a temp file and
// rename so readers never observe a partial manifest. The returned artifact
// owns the file.
func WriteManifest(dir string, m Manifest) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, artifactName(m.ID))
	tmp, err := os.CreateTemp(dir, ".launch-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	return &Artifact{path: path}, nil
}

// ReadManifests lists the manifests in dir ordered by id. Unreadable files
// are skipped. A missing dir yields no manifests.
func ReadManifests(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactSuffix) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		m.file = path
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Orphans returns manifests whose controller process is no longer alive.
func Orphans(dir string, alive func(pid int) bool) ([]Manifest, error) {
	all, err := ReadManifests(dir)
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, m := range all {
		if m.LauncherPID > 0 && alive(m.LauncherPID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
