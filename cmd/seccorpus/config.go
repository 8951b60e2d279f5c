// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/seccorpus/internal/bootstrap"
	"github.com/kraklabs/seccorpus/pkg/funnel"
	"github.com/kraklabs/seccorpus/pkg/llm"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/vcs"
)

// Environment variables that override the project file.
const (
	envRepoPath = "SECCORPUS_REPO_PATH"
	envDataDir  = "SECCORPUS_DATA_DIR"
)

// Config is the .seccorpus/project.yaml file.
type Config struct {
	Version    string           `yaml:"version"`
	Repository RepositoryConfig `yaml:"repository"`
	DataDir    string           `yaml:"data_dir"`
	Workers    int              `yaml:"workers"`

	Harvest funnel.Keywords        `yaml:"harvest"`
	Filter  pipeline.FilterConfig  `yaml:"filter"`
	Refine  pipeline.RefineConfig  `yaml:"refine"`
	Context pipeline.ContextConfig `yaml:"context"`
	Oracle  OracleConfig           `yaml:"oracle"`
	Export  ExportConfig           `yaml:"export"`
	Logging LoggingConfig          `yaml:"logging"`

	// root is the workspace directory the file was loaded from.
	root string
}

// RepositoryConfig names the mined repository and how to query it.
type RepositoryConfig struct {
	Path    string `yaml:"path"`
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
}

// OracleConfig selects the LLM provider and batching.
type OracleConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	pipeline.OracleConfig `yaml:",inline"`
}

// ExportConfig controls the training-set export.
type ExportConfig struct {
	Seed      uint64 `yaml:"seed"`
	Output    string `yaml:"output"`
	Templates string `yaml:"templates,omitempty"`
}

// LoggingConfig controls the log level and optional JSON log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// DefaultConfig returns the project file written by init.
func DefaultConfig(repoPath, name string) *Config {
	p := pipeline.DefaultConfig()
	return &Config{
		Version: "1",
		Repository: RepositoryConfig{
			Path:    repoPath,
			Name:    name,
			Backend: vcs.BackendGit,
		},
		DataDir: "data",
		Harvest: p.Harvest,
		Filter:  p.Filter,
		Refine:  p.Refine,
		Context: p.Context,
		Oracle: OracleConfig{
			Provider:     "completion",
			BaseURL:      "http://localhost:8000/v1",
			Timeout:      10 * time.Minute,
			OracleConfig: withModel(p.Oracle, llm.DefaultModel),
		},
		Export:  ExportConfig{Seed: 42, Output: "export"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func withModel(o pipeline.OracleConfig, model string) pipeline.OracleConfig {
	o.Model = model
	return o
}

// ConfigPath locates the project file: an explicit path wins, otherwise
// .seccorpus/project.yaml in the working directory.
func ConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return bootstrap.ConfigPath(cwd), nil
}

// LoadConfig reads the project file at path and applies environment
// overrides. Sections missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's project file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, bootstrap.ErrNotInitialized)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	cfg.root = filepath.Dir(filepath.Dir(path))
	cfg.applyEnv()
	return cfg, cfg.validate()
}

// SaveConfig writes cfg to path.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envRepoPath); v != "" {
		c.Repository.Path = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		c.DataDir = v
	}
	p := llm.ConfigFromEnv(c.ProviderConfig())
	c.Oracle.Provider = p.Type
	c.Oracle.BaseURL = p.BaseURL
	c.Oracle.APIKey = p.APIKey
	c.Oracle.Model = p.DefaultModel
}

func (c *Config) validate() error {
	var errs []error
	if c.Repository.Name == "" {
		errs = append(errs, errors.New("repository.name is required"))
	}
	if c.Repository.Path == "" {
		errs = append(errs, errors.New("repository.path is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// Root is the workspace directory.
func (c *Config) Root() string { return c.root }

// RepoPath resolves repository.path against the workspace.
func (c *Config) RepoPath() string {
	if filepath.IsAbs(c.Repository.Path) || c.root == "" {
		return c.Repository.Path
	}
	return filepath.Join(c.root, c.Repository.Path)
}

// DataPath resolves data_dir against the workspace.
func (c *Config) DataPath() string {
	return bootstrap.ResolveDataDir(c.root, c.DataDir)
}

// ExportPath is the export file for the configured repository.
func (c *Config) ExportPath(name string) string {
	dir := c.Export.Output
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) && c.root != "" {
		dir = filepath.Join(c.root, dir)
	}
	return filepath.Join(dir, name)
}

// Pipeline converts the project file into pipeline settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		RepoID:  c.Repository.Name,
		DataDir: c.DataPath(),
		Workers: c.Workers,
		Harvest: c.Harvest,
		Filter:  c.Filter,
		Refine:  c.Refine,
		Context: c.Context,
		Oracle:  c.Oracle.OracleConfig,
	}
}

// ProviderConfig converts the oracle section into provider settings.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Type:         c.Oracle.Provider,
		BaseURL:      c.Oracle.BaseURL,
		APIKey:       c.Oracle.APIKey,
		DefaultModel: c.Oracle.Model,
		Timeout:      c.Oracle.Timeout,
	}
}
