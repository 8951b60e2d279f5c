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

package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// ErrSnapshotMissing is returned when a stage's input snapshot does not exist.
var ErrSnapshotMissing = errors.New("snapshot missing")

const snapshotExt = ".jsonl.zst"

// SnapshotStore persists one record collection per stage under
// <data_dir>/<repo>/<stage>.jsonl.zst, as zstd-compressed JSON lines.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a store for repoID under dataDir.
func NewSnapshotStore(dataDir, repoID string) *SnapshotStore {
	return &SnapshotStore{dir: filepath.Join(dataDir, record.SafeName(repoID))}
}

// Dir is the directory holding the repository's snapshots.
func (s *SnapshotStore) Dir() string { return s.dir }

// Path is the snapshot file of stage.
func (s *SnapshotStore) Path(stage record.Stage) string {
	return filepath.Join(s.dir, stage.String()+snapshotExt)
}

// PartPath is the snapshot file of one slice [start, end) of stage.
func (s *SnapshotStore) PartPath(stage record.Stage, start, end int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%d-%d%s", stage, start, end, snapshotExt))
}

// Exists reports whether stage has a snapshot.
func (s *SnapshotStore) Exists(stage record.Stage) bool {
	_, err := os.Stat(s.Path(stage))
	return err == nil
}

// Write stores recs as stage's snapshot, replacing any previous one
// atomically.
func (s *SnapshotStore) Write(stage record.Stage, recs []record.CommitRecord) error {
	return s.writeFile(s.Path(stage), recs)
}

// WritePart stores the slice snapshot [start, end) of stage.
func (s *SnapshotStore) WritePart(stage record.Stage, start, end int, recs []record.CommitRecord) error {
	return s.writeFile(s.PartPath(stage, start, end), recs)
}

func (s *SnapshotStore) writeFile(path string, recs []record.CommitRecord) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	bw := bufio.NewWriter(tmp)
	enc, err := zstd.NewWriter(bw)
	if err != nil {
		cleanup()
		return fmt.Errorf("zstd writer: %w", err)
	}
	je := json.NewEncoder(enc)
	for i := range recs {
		if err := je.Encode(&recs[i]); err != nil {
			_ = enc.Close()
			cleanup()
			return fmt.Errorf("encode record %s: %w", recs[i].ID, err)
		}
	}
	if err := enc.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close zstd stream: %w", err)
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Read loads stage's snapshot. A missing file reports ErrSnapshotMissing.
func (s *SnapshotStore) Read(stage record.Stage) ([]record.CommitRecord, error) {
	recs, err := readFile(s.Path(stage))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", stage, ErrSnapshotMissing)
	}
	return recs, err
}

// ReadParts loads every slice snapshot of stage, ordered by start index.
func (s *SnapshotStore) ReadParts(stage record.Stage) ([]record.CommitRecord, error) {
	paths, err := s.partPaths(stage)
	if err != nil {
		return nil, err
	}
	var out []record.CommitRecord
	for _, p := range paths {
		recs, err := readFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (s *SnapshotStore) partPaths(stage record.Stage) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, stage.String()+".*-*"+snapshotExt))
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return partStart(paths[i]) < partStart(paths[j])
	})
	return paths, nil
}

func partStart(path string) int {
	var start, end int
	base := strings.TrimSuffix(filepath.Base(path), snapshotExt)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		_, _ = fmt.Sscanf(base[i+1:], "%d-%d", &start, &end)
	}
	return start
}

func readFile(path string) ([]record.CommitRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var out []record.CommitRecord
	jd := json.NewDecoder(dec)
	for {
		var rec record.CommitRecord
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Remove deletes stage's snapshot and its slice snapshots.
func (s *SnapshotStore) Remove(stage record.Stage) error {
	paths, err := s.partPaths(stage)
	if err != nil {
		return err
	}
	paths = append(paths, s.Path(stage))
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	return nil
}

// RemoveFrom deletes the snapshots of stage and every later stage.
func (s *SnapshotStore) RemoveFrom(stage record.Stage) error {
	for _, st := range record.Stages() {
		if st < stage {
			continue
		}
		if err := s.Remove(st); err != nil {
			return err
		}
	}
	return nil
}
