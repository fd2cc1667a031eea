// Package config loads project-level settings for an analysis run.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from flinspect.yml.
type ProjectConfig struct {
	// DumpDir is the directory scanned for parse-tree dump files. Defaults
	// to the directory the config was loaded from.
	DumpDir string `yaml:"dumpDir,omitempty"`
	// DumpSuffix overrides the default "_ptree" file-name suffix.
	DumpSuffix string `yaml:"dumpSuffix,omitempty"`
	// GraphDB is a directory path for a persistent KuzuDB graph; empty means
	// in-memory.
	GraphDB string `yaml:"graphDB,omitempty"`
	// ExcludeDirs are directory names skipped while scanning.
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`
	Verbose     bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read flinspect.yml or flinspect.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"flinspect.yml", "flinspect.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
