package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source records where a setting came from.
type Source struct {
	Kind   SourceKind
	File   string
	Line   int
	Column int
}

func (s Source) String() string {
	if s.Kind != SourceFile {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config   *Config
	Sources  map[string]Source // dotted YAML path -> last file that set it
	Files    []string          // loaded files, includes before their includer
	Path     string            // requested config path
	Missing  bool              // requested path did not exist; defaults in use
	Warnings []string
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "multilaunch", "config.yaml"), nil
}

// Load reads the merged configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads the default config file and reports where each
// setting came from.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file is not an error:
// the built-in defaults are returned with Missing set and a warning.
func LoadFromPath(path string) (*LoadResult, error) {
	res := &LoadResult{Path: path}

	l := &loader{seen: make(map[string]bool), sources: make(map[string]Source)}
	raw := RawConfig{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if raw, err = l.load(path, nil); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		res.Missing = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("config file %s not found; using built-in defaults", path))
	default:
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, l.sources)
	}

	res.Config = cfg
	res.Sources = l.sources
	res.Files = l.files
	return res, nil
}

// loader merges a config file with everything it includes. Included files
// are applied first so the including file wins.
type loader struct {
	seen    map[string]bool
	sources map[string]Source
	files   []string
}

func (l *loader) load(path string, chain []string) (RawConfig, error) {
	file, err := canonicalPath(path)
	if err != nil {
		return RawConfig{}, err
	}
	if slices.Contains(chain, file) {
		return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(chain, " -> "), file)
	}
	if l.seen[file] {
		return RawConfig{}, nil
	}
	l.seen[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to read: %w", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", file, err)
	}
	root := documentRoot(&doc)

	merged := RawConfig{}
	for _, ref := range includeRefs(root, file) {
		targets, err := includeTargets(file, ref.value)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s: include %q: %w", ref.source, ref.value, err)
		}
		for _, target := range targets {
			inc, err := l.load(target, append(chain, file))
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(inc)
		}
	}

	recordSources(root, file, "", l.sources)
	l.files = append(l.files, file)
	return merged.merge(own), nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// includeTargets resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func includeTargets(from, include string) ([]string, error) {
	if include == "" {
		return nil, fmt.Errorf("path is empty")
	}
	path, err := ExpandHome(include)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				out = append(out, filepath.Join(path, ent.Name()))
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func fileSource(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

// recordSources maps every dotted key path under n to its position in file.
// Sequences are recorded as a whole.
func recordSources(n *yaml.Node, file, prefix string, out map[string]Source) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			path := n.Content[i].Value
			if prefix != "" {
				path = prefix + "." + path
			}
			val := n.Content[i+1]
			out[path] = fileSource(file, val)
			recordSources(val, file, path, out)
		}
	case yaml.SequenceNode:
		if prefix != "" {
			out[prefix] = fileSource(file, n)
		}
	}
}

type includeRef struct {
	value  string
	source Source
}

func includeRefs(root *yaml.Node, file string) []includeRef {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			items = val.Content
		}
		var refs []includeRef
		for _, item := range items {
			if item.Kind == yaml.ScalarNode {
				refs = append(refs, includeRef{value: item.Value, source: fileSource(file, item)})
			}
		}
		return refs
	}
	return nil
}

// withSource attaches the file position of the offending key to a
// ValidationError.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return err
}
