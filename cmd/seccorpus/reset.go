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
	"github.com/spf13/cobra"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/ui"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

func newResetCmd(g *GlobalFlags) *cobra.Command {
	var (
		stage   string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the snapshots of a stage and every later stage",
		Long: `Deletes the snapshot of --stage and of every stage after it, including
intent slice files, and forgets them in the manifest. The next run recomputes
them.

WARNING: oracle answers in deleted snapshots are lost.`,
		Example: `  seccorpus reset --stage context --yes
  seccorpus reset --yes                  Delete everything`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := record.ParseStage(stage)
			if err != nil {
				return uerrors.NewInputError("Unknown stage", err.Error(), "Use one of harvest, filter, intent, refine, mask, context, label")
			}
			if !confirm {
				return uerrors.NewInputError("Reset not confirmed", "reset deletes snapshots and cannot be undone", "Pass --yes to confirm")
			}

			proj, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			defer func() { _ = proj.close() }()

			p, err := pipeline.New(proj.cfg.Pipeline(), pipeline.Deps{}, proj.logger)
			if err != nil {
				return uerrors.NewConfigError("Invalid pipeline configuration", err.Error(), "Edit the project file", err)
			}
			if err := p.Reset(from); err != nil {
				return uerrors.NewSnapshotError("Cannot delete snapshots", err.Error(), "Check permissions on "+p.Store().Dir(), err)
			}
			ui.NewPrinter(cmd.OutOrStdout()).Successf("Deleted snapshots from %s on in %s", from, p.Store().Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", record.StageHarvest.String(), "First stage to delete")
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset (required)")
	return cmd
}
