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

// Package bootstrap lays out a seccorpus workspace.
//
// A workspace is a directory with a .seccorpus/project.yaml file and a data
// directory holding one snapshot directory per mined repository:
//
//	info, err := bootstrap.InitProject(bootstrap.ProjectConfig{
//	    Root:     cwd,
//	    RepoID:   "FFmpeg/FFmpeg",
//	    Settings: cfg,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("snapshots go to", info.SnapshotDir)
//
// InitProject refuses to replace an existing project file unless Force is
// set. Directory creation is idempotent.
package bootstrap
