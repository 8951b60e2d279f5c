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
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/output"
	"github.com/kraklabs/seccorpus/internal/ui"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// StatusResult is the status command's JSON output.
type StatusResult struct {
	RepoID      string        `json:"repo_id"`
	SnapshotDir string        `json:"snapshot_dir"`
	Stages      []StageStatus `json:"stages"`
	IntentParts int           `json:"intent_parts"`
	UpdatedAt   time.Time     `json:"updated_at,omitempty"`
}

// StageStatus is one stage's snapshot state.
type StageStatus struct {
	Stage    string                `json:"stage"`
	Snapshot bool                  `json:"snapshot"`
	Report   *pipeline.StageReport `json:"report,omitempty"`
}

func newStatusCmd(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which stages have snapshots and their funnel counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			defer func() { _ = proj.close() }()

			res, err := collectStatus(proj.cfg)
			if err != nil {
				return err
			}
			if g.JSON {
				return output.JSONTo(cmd.OutOrStdout(), res)
			}
			printStatus(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func collectStatus(cfg *Config) (*StatusResult, error) {
	pc := cfg.Pipeline()
	store := pipeline.NewSnapshotStore(pc.DataDir, pc.RepoID)
	m, err := pipeline.NewManifestManager(store.Dir()).Load(pc.RepoID)
	if err != nil {
		return nil, uerrors.NewSnapshotError("Cannot read the run manifest", err.Error(), "Delete "+filepath.Join(store.Dir(), "manifest.json")+" and re-run", err)
	}

	res := &StatusResult{RepoID: pc.RepoID, SnapshotDir: store.Dir(), UpdatedAt: m.UpdatedAt}
	for _, st := range record.Stages() {
		s := StageStatus{Stage: st.String(), Snapshot: store.Exists(st)}
		if rep, ok := m.Stages[st.String()]; ok && s.Snapshot {
			s.Report = &rep
		}
		res.Stages = append(res.Stages, s)
	}
	parts, _ := filepath.Glob(filepath.Join(store.Dir(), record.StageIntent.String()+".*-*.jsonl.zst"))
	res.IntentParts = len(parts)
	return res, nil
}

func printStatus(w io.Writer, res *StatusResult) {
	p := ui.NewPrinter(w)
	p.Header("seccorpus status")
	p.KeyValue("Repository", res.RepoID)
	p.KeyValue("Snapshots", res.SnapshotDir)
	if !res.UpdatedAt.IsZero() {
		p.KeyValue("Updated", res.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(w)

	pending := 0
	for _, s := range res.Stages {
		switch {
		case s.Report != nil:
			p.StageCounts(s.Stage, s.Report.Input, s.Report.Output, s.Report.Drops)
		case s.Snapshot:
			fmt.Fprintf(w, "  %-10s %s\n", s.Stage, ui.DimText("snapshot without report"))
		default:
			pending++
			fmt.Fprintf(w, "  %-10s %s\n", s.Stage, ui.DimText("pending"))
		}
	}
	if res.IntentParts > 0 {
		fmt.Fprintln(w)
		p.Infof("%d intent slice file(s) waiting to be merged by a full intent run", res.IntentParts)
	}
	if pending == len(res.Stages) {
		fmt.Fprintln(w)
		p.Info("Nothing mined yet. Run 'seccorpus run' to start.")
	}
}
