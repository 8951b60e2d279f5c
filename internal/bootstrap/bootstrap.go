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

package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/seccorpus/pkg/record"
)

const (
	// ConfigDirName is the workspace directory holding the project file.
	ConfigDirName = ".seccorpus"

	// ConfigFileName is the project file inside ConfigDirName.
	ConfigFileName = "project.yaml"
)

// ErrNotInitialized is returned when a workspace has no project file.
var ErrNotInitialized = errors.New("workspace not initialized")

// ErrExists is returned by InitProject when a project file already exists
// and Force is not set.
var ErrExists = errors.New("project file already exists")

// ProjectConfig holds what InitProject needs.
type ProjectConfig struct {
	// Root is the workspace directory. The project file goes to
	// Root/.seccorpus/project.yaml.
	Root string

	// RepoID names the mined repository.
	RepoID string

	// DataDir holds snapshots. Relative paths are resolved against Root.
	// Defaults to Root/data.
	DataDir string

	// Settings is serialized as the project file.
	Settings any

	// Force overwrites an existing project file.
	Force bool
}

// ProjectInfo describes an initialized workspace.
type ProjectInfo struct {
	RepoID      string
	ConfigPath  string
	DataDir     string
	SnapshotDir string
}

// ConfigDir returns Root/.seccorpus.
func ConfigDir(root string) string {
	return filepath.Join(root, ConfigDirName)
}

// ConfigPath returns Root/.seccorpus/project.yaml.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), ConfigFileName)
}

// ResolveDataDir makes dataDir absolute relative to root.
func ResolveDataDir(root, dataDir string) string {
	if dataDir == "" {
		dataDir = "data"
	}
	if filepath.IsAbs(dataDir) {
		return dataDir
	}
	return filepath.Join(root, dataDir)
}

// InitProject writes the project file and creates the data and snapshot
// directories. Creating directories is idempotent; the project file is only
// replaced when Force is set.
func InitProject(config ProjectConfig, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RepoID == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if config.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	info := describe(config.Root, config.DataDir, config.RepoID)
	logger.Info("bootstrap.project.init.start",
		"repo", config.RepoID,
		"config", info.ConfigPath,
		"data_dir", info.DataDir,
	)

	if _, err := os.Stat(info.ConfigPath); err == nil && !config.Force {
		return nil, fmt.Errorf("%s: %w", info.ConfigPath, ErrExists)
	}
	for _, dir := range []string{ConfigDir(config.Root), info.DataDir, info.SnapshotDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := writeYAML(info.ConfigPath, config.Settings); err != nil {
		return nil, err
	}

	logger.Info("bootstrap.project.init.success", "repo", config.RepoID, "config", info.ConfigPath)
	return info, nil
}

// OpenProject checks that root holds a project file and returns the
// workspace layout for repoID.
func OpenProject(root, dataDir, repoID string) (*ProjectInfo, error) {
	info := describe(root, dataDir, repoID)
	if _, err := os.Stat(info.ConfigPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", info.ConfigPath, ErrNotInitialized)
		}
		return nil, fmt.Errorf("stat project file: %w", err)
	}
	return info, nil
}

// ListProjects returns the snapshot directories under dataDir.
func ListProjects(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

func describe(root, dataDir, repoID string) *ProjectInfo {
	data := ResolveDataDir(root, dataDir)
	return &ProjectInfo{
		RepoID:      repoID,
		ConfigPath:  ConfigPath(root),
		DataDir:     data,
		SnapshotDir: filepath.Join(data, record.SafeName(repoID)),
	}
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal project file: %w", err)
	}
	header := []byte("# seccorpus project configuration\n")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename project file: %w", err)
	}
	return nil
}
