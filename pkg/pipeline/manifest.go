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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StageReport summarizes one stage execution.
type StageReport struct {
	Stage      string         `json:"stage"`
	RunID      string         `json:"run_id"`
	Input      int            `json:"input"`
	Output     int            `json:"output"`
	Drops      map[string]int `json:"drops,omitempty"`
	Skipped    bool           `json:"skipped,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Dropped is the number of records the stage removed.
func (r StageReport) Dropped() int {
	n := 0
	for _, c := range r.Drops {
		n += c
	}
	return n
}

// Duration is the stage's wall time.
func (r StageReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *StageReport) drop(reason string) { r.dropN(reason, 1) }

func (r *StageReport) dropN(reason string, n int) {
	if n <= 0 {
		return
	}
	if r.Drops == nil {
		r.Drops = make(map[string]int)
	}
	r.Drops[reason] += n
}

// Manifest tracks which stages have been produced for a repository.
type Manifest struct {
	RepoID    string                 `json:"repo_id"`
	Stages    map[string]StageReport `json:"stages"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ManifestManager manages manifest persistence next to the snapshots.
type ManifestManager struct {
	path string
}

// NewManifestManager creates a manager for the manifest in dir.
func NewManifestManager(dir string) *ManifestManager {
	return &ManifestManager{path: filepath.Join(dir, "manifest.json")}
}

// Load reads the manifest. A missing file yields an empty manifest.
func (m *ManifestManager) Load(repoID string) (*Manifest, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{RepoID: repoID, Stages: make(map[string]StageReport)}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Stages == nil {
		manifest.Stages = make(map[string]StageReport)
	}
	return &manifest, nil
}

// Save writes the manifest atomically (temp file + rename).
func (m *ManifestManager) Save(manifest *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	manifest.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// Record stores report under its stage and saves.
func (m *ManifestManager) Record(repoID string, report StageReport) error {
	manifest, err := m.Load(repoID)
	if err != nil {
		return err
	}
	manifest.Stages[report.Stage] = report
	return m.Save(manifest)
}

// Forget removes the entries of the named stages and saves.
func (m *ManifestManager) Forget(repoID string, stages ...string) error {
	manifest, err := m.Load(repoID)
	if err != nil {
		return err
	}
	for _, s := range stages {
		delete(manifest.Stages, s)
	}
	return m.Save(manifest)
}
