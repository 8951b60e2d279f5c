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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/internal/bootstrap"
	"github.com/kraklabs/seccorpus/pkg/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envRepoPath, envDataDir, llm.EnvProvider, llm.EnvBaseURL, llm.EnvModel, llm.EnvAPIKey} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/src/ffmpeg", "FFmpeg/FFmpeg")

	assert.Equal(t, "completion", cfg.Oracle.Provider)
	assert.Equal(t, llm.DefaultModel, cfg.Oracle.Model)
	assert.Equal(t, 10*time.Minute, cfg.Oracle.Timeout)
	assert.EqualValues(t, 42, cfg.Export.Seed)
	assert.NoError(t, cfg.validate())

	pc := cfg.Pipeline()
	assert.Equal(t, "FFmpeg/FFmpeg", pc.RepoID)
	assert.Equal(t, llm.DefaultModel, pc.Oracle.Model)
	assert.NoError(t, pc.Validate())
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	path := bootstrap.ConfigPath(root)

	want := DefaultConfig("repo", "example/copy")
	want.Workers = 3
	want.Filter.Extensions = []string{".c"}
	want.Oracle.BatchTimeout = time.Minute
	require.NoError(t, SaveConfig(want, path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(Config{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, root, got.Root())
	assert.Equal(t, filepath.Join(root, "repo"), got.RepoPath())
	assert.Equal(t, filepath.Join(root, "data"), got.DataPath())
	assert.Equal(t, filepath.Join(root, "export", "x.json"), got.ExportPath("x.json"))
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := bootstrap.ConfigPath(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("repository:\n  path: /abs/repo\n  name: a/b\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/repo", cfg.RepoPath())
	assert.Equal(t, "completion", cfg.Oracle.Provider)
	assert.Equal(t, 64, cfg.Oracle.BatchSize)
	assert.NotEmpty(t, cfg.Harvest.Actions)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := bootstrap.ConfigPath(t.TempDir())
	require.NoError(t, SaveConfig(DefaultConfig("repo", "a/b"), path))

	t.Setenv(envRepoPath, "/elsewhere")
	t.Setenv(envDataDir, "/snapshots")
	t.Setenv(llm.EnvProvider, "ollama")
	t.Setenv(llm.EnvModel, "llama3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", cfg.RepoPath())
	assert.Equal(t, "/snapshots", cfg.DataPath())
	assert.Equal(t, "ollama", cfg.Oracle.Provider)
	assert.Equal(t, "llama3", cfg.Pipeline().Oracle.Model)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, bootstrap.ErrNotInitialized))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("workers: -1\n"), 0o644))
	_, err = LoadConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository.name is required")
	assert.Contains(t, err.Error(), "workers must not be negative")
}

func TestOracleFlags_Apply(t *testing.T) {
	cfg := DefaultConfig("r", "n")
	oracleFlags{provider: "openai", model: "gpt-4o-mini"}.apply(&cfg.Oracle)

	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
	assert.Equal(t, "http://localhost:8000/v1", cfg.Oracle.BaseURL)
}
