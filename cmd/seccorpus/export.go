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

	"github.com/spf13/cobra"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/output"
	"github.com/kraklabs/seccorpus/internal/ui"
	"github.com/kraklabs/seccorpus/pkg/instruct"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

type exportFlags struct {
	seed      int64
	output    string
	templates string
}

// ExportResult is the export command's JSON output.
type ExportResult struct {
	Path     string `json:"path"`
	Records  int    `json:"records"`
	Examples int    `json:"examples"`
}

func newExportCmd(g *GlobalFlags) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write labeled records as instruction-tuning examples",
		Long: `Builds a locate and a locate_explain example for every record of the label
snapshot, shuffles them with the configured seed and writes
<repository>_train_instruction_list.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, g, f)
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&f.seed, "seed", -1, "Shuffle seed (default: export.seed)")
	fs.StringVar(&f.output, "output", "", "Output file (default: <export.output>/<repository>_train_instruction_list.json)")
	fs.StringVar(&f.templates, "templates", "", "YAML or JSON file with locate/locate_explain templates")
	return cmd
}

func runExport(cmd *cobra.Command, g *GlobalFlags, f exportFlags) error {
	proj, err := loadProject(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = proj.close() }()
	cfg := proj.cfg

	tpl := instruct.DefaultTemplates()
	path := f.templates
	if path == "" {
		path = cfg.Export.Templates
	}
	if path != "" {
		if tpl, err = instruct.LoadTemplates(path); err != nil {
			return uerrors.NewConfigError("Cannot load export templates", err.Error(), "Check --templates or export.templates", err)
		}
	}
	seed := cfg.Export.Seed
	if f.seed >= 0 {
		seed = uint64(f.seed)
	}

	pc := cfg.Pipeline()
	recs, err := pipeline.NewSnapshotStore(pc.DataDir, pc.RepoID).Read(record.StageLabel)
	if errors.Is(err, pipeline.ErrSnapshotMissing) {
		return uerrors.NewSnapshotError("No labeled records yet", err.Error(), "Run 'seccorpus run' through the label stage first", err)
	}
	if err != nil {
		return uerrors.NewSnapshotError("Cannot read the label snapshot", err.Error(), "Re-run the label stage with --force", err)
	}

	examples := instruct.Assemble(recs, tpl, seed)
	out := f.output
	if out == "" {
		out = cfg.ExportPath(instruct.FileName(pc.RepoID))
	}
	if err := instruct.Write(out, examples); err != nil {
		return uerrors.NewSnapshotError("Cannot write the export file", err.Error(), "Check the output directory", err)
	}
	proj.logger.Info("export.done", "path", out, "records", len(recs), "examples", len(examples))

	res := ExportResult{Path: out, Records: len(recs), Examples: len(examples)}
	if g.JSON {
		return output.JSONTo(cmd.OutOrStdout(), res)
	}
	ui.NewPrinter(cmd.OutOrStdout()).Successf("Saved %d examples from %d records to %s", res.Examples, res.Records, res.Path)
	return nil
}
