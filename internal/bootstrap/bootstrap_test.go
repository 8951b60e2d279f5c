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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type settings struct {
	DataDir string `yaml:"data_dir"`
	Workers int    `yaml:"workers"`
}

func TestInitProject(t *testing.T) {
	root := t.TempDir()
	info, err := InitProject(ProjectConfig{
		Root:     root,
		RepoID:   "FFmpeg/FFmpeg",
		Settings: settings{DataDir: "data", Workers: 4},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".seccorpus", "project.yaml"), info.ConfigPath)
	assert.Equal(t, filepath.Join(root, "data"), info.DataDir)
	assert.DirExists(t, info.SnapshotDir)

	data, err := os.ReadFile(info.ConfigPath)
	require.NoError(t, err)
	var got settings
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 4, got.Workers)
}

func TestInitProject_Existing(t *testing.T) {
	root := t.TempDir()
	cfg := ProjectConfig{Root: root, RepoID: "example/copy", Settings: settings{Workers: 1}}
	_, err := InitProject(cfg, nil)
	require.NoError(t, err)

	_, err = InitProject(cfg, nil)
	require.ErrorIs(t, err, ErrExists)

	cfg.Force = true
	cfg.Settings = settings{Workers: 9}
	_, err = InitProject(cfg, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(ConfigPath(root))
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 9")
}

func TestInitProject_Validation(t *testing.T) {
	_, err := InitProject(ProjectConfig{Root: t.TempDir()}, nil)
	assert.Error(t, err)

	_, err = InitProject(ProjectConfig{RepoID: "x/y"}, nil)
	assert.Error(t, err)
}

func TestOpenProject(t *testing.T) {
	root := t.TempDir()
	_, err := OpenProject(root, "", "example/copy")
	require.ErrorIs(t, err, ErrNotInitialized)

	abs := filepath.Join(t.TempDir(), "snapshots")
	_, err = InitProject(ProjectConfig{Root: root, RepoID: "example/copy", DataDir: abs, Settings: settings{}}, nil)
	require.NoError(t, err)

	info, err := OpenProject(root, abs, "example/copy")
	require.NoError(t, err)
	assert.Equal(t, abs, info.DataDir)

	projects, err := ListProjects(abs)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	projects, err = ListProjects(filepath.Join(root, "nowhere"))
	require.NoError(t, err)
	assert.Empty(t, projects)
}
