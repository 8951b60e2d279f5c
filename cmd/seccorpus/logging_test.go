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
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestSetupLogger_FansOutToFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")

	logger, closeFn, err := setupLogger(&stderr, slog.LevelInfo, path)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("stage.done", "stage", "filter", "output", 3)
	require.NoError(t, closeFn())

	assert.Contains(t, stderr.String(), "stage.done")
	assert.NotContains(t, stderr.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "stage.done", entry["msg"])
	assert.Equal(t, "filter", entry["stage"])
}

func TestSetupLogger_StderrOnly(t *testing.T) {
	var stderr bytes.Buffer
	logger, closeFn, err := setupLogger(&stderr, slog.LevelDebug, "")
	require.NoError(t, err)
	logger.Debug("verbose")
	assert.NoError(t, closeFn())
	assert.Contains(t, stderr.String(), "verbose")
}
