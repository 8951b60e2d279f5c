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
	"context"
	"errors"

	"github.com/kraklabs/seccorpus/internal/bootstrap"
	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
)

func configError(path string, err error) error {
	if errors.Is(err, bootstrap.ErrNotInitialized) {
		return uerrors.NewConfigError(
			"No seccorpus project found",
			path+" does not exist",
			"Run 'seccorpus init --repo <path> --name <owner/repo>' or pass --config",
			err,
		)
	}
	return uerrors.NewConfigError("Invalid project configuration", err.Error(), "Edit "+path, err)
}

// runError maps a pipeline failure to a user error with its exit code.
func runError(err error) error {
	var ue *uerrors.UserError
	var ae *pipeline.AlignmentError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ue):
		return err
	case errors.Is(err, context.Canceled):
		return &uerrors.UserError{Message: "Run interrupted", Fix: "Re-run to resume from the last finished stage", ExitCode: uerrors.ExitGeneric, Err: err}
	case errors.As(err, &ae):
		return uerrors.NewAlignmentError(
			"Oracle answers do not match the records they were asked for",
			ae.Error(),
			"Re-run the stage with --force; report this if it persists",
			err,
		)
	case errors.Is(err, pipeline.ErrSnapshotMissing):
		return uerrors.NewSnapshotError(
			"Input snapshot is missing",
			err.Error(),
			"Run the earlier stages first, e.g. 'seccorpus run --to <stage>'",
			err,
		)
	case errors.Is(err, pipeline.ErrContract):
		return uerrors.NewInternalError("A stage produced an invalid record", err.Error(), "Please report this with the log output", err)
	default:
		return uerrors.NewInternalError("Pipeline run failed", err.Error(), "", err)
	}
}
