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

package pipeline_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/pipeline"
)

func TestManifestManager_LoadMissing(t *testing.T) {
	m := pipeline.NewManifestManager(t.TempDir())
	got, err := m.Load("example/copy")
	require.NoError(t, err)
	assert.Equal(t, "example/copy", got.RepoID)
	assert.Empty(t, got.Stages)
}

func TestManifestManager_RecordAndForget(t *testing.T) {
	dir := t.TempDir()
	m := pipeline.NewManifestManager(dir)
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, m.Record("example/copy", pipeline.StageReport{
		Stage: "harvest", RunID: "r1", Output: 12,
		StartedAt: start, FinishedAt: start.Add(2 * time.Second),
	}))
	require.NoError(t, m.Record("example/copy", pipeline.StageReport{
		Stage: "filter", RunID: "r1", Input: 12, Output: 5,
		Drops: map[string]int{"multi_file": 4, "extension": 3},
	}))
	assert.FileExists(t, filepath.Join(dir, "manifest.json"))

	got, err := m.Load("example/copy")
	require.NoError(t, err)
	require.Len(t, got.Stages, 2)
	assert.Equal(t, 2*time.Second, got.Stages["harvest"].Duration())
	assert.Equal(t, 7, got.Stages["filter"].Dropped())
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, m.Forget("example/copy", "filter"))
	got, err = m.Load("example/copy")
	require.NoError(t, err)
	assert.Contains(t, got.Stages, "harvest")
	assert.NotContains(t, got.Stages, "filter")
}
