package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the pipeline config filename searched for when
// none is given explicitly.
const DefaultConfigFile = "semgen.yaml"

// Load reads a pipeline configuration from a YAML file, applying
// defaults for absent fields. Relative paths inside the config are
// resolved against the config file's directory.
func Load(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.resolveRelativeTo(filepath.Dir(abs))
	return cfg, nil
}

// Find searches for a semgen.yaml in the given directory and its
// parents, returning "" when none exists.
func Find(dir string) string {
	for {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// resolveRelativeTo anchors relative source, template, and output
// paths at the config file's directory so a pipeline behaves the same
// regardless of the process working directory. Glob characters are
// preserved.
func (c *PipelineConfig) resolveRelativeTo(dir string) {
	for i := range c.Ontologies {
		c.Ontologies[i].Path = anchorPath(dir, c.Ontologies[i].Path)
	}
	for i := range c.Templates {
		c.Templates[i].Path = anchorPath(dir, c.Templates[i].Path)
	}
	c.Output.Directory = anchorPath(dir, c.Output.Directory)
}

func anchorPath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, strings.TrimPrefix(path, "./"))
}
