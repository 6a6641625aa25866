// Package config loads and resolves the asset-mount configuration used by
// cmd/inspect. The decoder itself takes no configuration (DecodeModel is a
// pure function over byte slices and two caller-supplied collaborators) —
// this package only gives cmd/inspect a place to point at a game's mounted
// asset tree, mirroring the teacher's Load/Resolve split.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the mounted-asset-tree paths cmd/inspect needs to resolve a
// model's siblings and materials.
type Config struct {
	// MountRoot is the directory that "materials/..." and sibling-model
	// paths are resolved relative to.
	MountRoot string `json:"mount_root"`
	// ModelPath is the .mdl to decode, relative to MountRoot unless absolute.
	ModelPath string `json:"model_path"`
}

// Load reads a JSON config file. Fields absent from the file keep their
// zero values, same as the teacher's Load.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override a loaded Config.
type Flags struct {
	MountRoot string
	ModelPath string
}

// Resolve overwrites fields with any non-empty flag values, then fills an
// empty MountRoot with an auto-detected default and joins a relative
// ModelPath onto MountRoot, same precedence order as the teacher's
// Config.Resolve.
func (c *Config) Resolve(flags Flags) {
	if flags.MountRoot != "" {
		c.MountRoot = flags.MountRoot
	}
	if flags.ModelPath != "" {
		c.ModelPath = flags.ModelPath
	}
	if c.MountRoot == "" {
		c.MountRoot = detectMountRoot()
	}
	if c.MountRoot != "" && c.ModelPath != "" && !filepath.IsAbs(c.ModelPath) {
		c.ModelPath = filepath.Join(c.MountRoot, c.ModelPath)
	}
}

// detectMountRoot tries the current directory, then its parent, looking for
// a "materials" subdirectory, same heuristic shape as the teacher's
// detectBaseDir probing for "Data/Item".
func detectMountRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, dir := range []string{cwd, filepath.Dir(cwd)} {
		if info, err := os.Stat(filepath.Join(dir, "materials")); err == nil && info.IsDir() {
			return dir
		}
	}
	return cwd
}
