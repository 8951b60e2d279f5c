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

// Package main implements the seccorpus CLI, which mines a repository's
// history for security fixes and narrows them into labeled single-function
// training examples.
//
// Usage:
//
//	seccorpus init --repo ../FFmpeg --name FFmpeg/FFmpeg
//	seccorpus run                         Run every pending stage
//	seccorpus run --stage intent --start 0 --end 500
//	seccorpus status [--json]             Show per-stage funnel counts
//	seccorpus export                      Write the instruction-tuning JSON
//	seccorpus reset --stage refine --yes  Drop refine and later snapshots
package main

import (
	"errors"
	"os"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	globals := &GlobalFlags{}
	root := newRootCmd(globals)
	if err := root.Execute(); err != nil {
		// Commands return UserErrors; anything else is a cobra usage error.
		var ue *uerrors.UserError
		if !errors.As(err, &ue) {
			err = uerrors.NewInputError(err.Error(), "", "Run 'seccorpus --help' for usage")
		}
		os.Exit(uerrors.Render(os.Stderr, err, globals.JSON))
	}
}
