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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seccorpustest "github.com/kraklabs/seccorpus/internal/testing"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

func sampleRecords() []record.CommitRecord {
	a := record.New("example/copy", seccorpustest.CopySHA, seccorpustest.CopyCommit)
	b := record.New("example/copy", "aa11bb22cc33dd44ee55ff6600112233445566ab", seccorpustest.ParseCommit)
	b.UndefinedPrefix = map[string]record.Element{"memcpy": {Kind: record.KindFunction, Origin: 3}}
	return []record.CommitRecord{a, b}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "Example/Copy")
	recs := sampleRecords()

	assert.False(t, s.Exists(record.StageHarvest))
	require.NoError(t, s.Write(record.StageHarvest, recs))
	assert.True(t, s.Exists(record.StageHarvest))
	assert.Equal(t, "harvest.jsonl.zst", filepath.Base(s.Path(record.StageHarvest)))

	got, err := s.Read(record.StageHarvest)
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not survive a write")
}

func TestSnapshotStore_Empty(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "example/copy")
	require.NoError(t, s.Write(record.StageFilter, nil))

	got, err := s.Read(record.StageFilter)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotStore_Missing(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "example/copy")
	_, err := s.Read(record.StageMask)
	assert.ErrorIs(t, err, pipeline.ErrSnapshotMissing)
}

func TestSnapshotStore_Overwrite(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "example/copy")
	recs := sampleRecords()
	require.NoError(t, s.Write(record.StageHarvest, recs))
	require.NoError(t, s.Write(record.StageHarvest, recs[:1]))

	got, err := s.Read(record.StageHarvest)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSnapshotStore_Parts(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "example/copy")
	recs := sampleRecords()

	require.NoError(t, s.WritePart(record.StageIntent, 10, 20, recs[1:]))
	require.NoError(t, s.WritePart(record.StageIntent, 2, 10, recs[:1]))
	assert.False(t, s.Exists(record.StageIntent))

	got, err := s.ReadParts(record.StageIntent)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[0].ID, got[0].ID, "parts are read in start order")
	assert.Equal(t, recs[1].ID, got[1].ID)

	require.NoError(t, s.Remove(record.StageIntent))
	got, err = s.ReadParts(record.StageIntent)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotStore_RemoveFrom(t *testing.T) {
	s := pipeline.NewSnapshotStore(t.TempDir(), "example/copy")
	for _, st := range record.Stages() {
		require.NoError(t, s.Write(st, nil))
	}

	require.NoError(t, s.RemoveFrom(record.StageMask))
	for _, st := range record.Stages() {
		assert.Equal(t, st < record.StageMask, s.Exists(st), st.String())
	}
}
