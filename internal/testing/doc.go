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

// Package testing provides fixtures for seccorpus tests: canned commit text
// with matching file revisions, and throwaway git repositories built with
// go-git.
//
// Import it under an alias to keep the standard testing package visible:
//
//	import seccorpustest "github.com/kraklabs/seccorpus/internal/testing"
//
//	func TestRefine(t *testing.T) {
//	    raw := seccorpustest.CopyCommit
//	    ...
//	}
//
// # Repositories
//
// NewRepo initialises an empty repository in t.TempDir(). Commit writes a
// set of files and records a commit with a fixed author and the given time,
// returning the new SHA:
//
//	repo := seccorpustest.NewRepo(t)
//	repo.Commit(t, "initial import", seccorpustest.Date(2019), map[string]string{
//	    "src/copy.c": seccorpustest.CopyPrefix,
//	})
//	sha := repo.Commit(t, "Fix buffer overflow in copy", seccorpustest.Date(2019), map[string]string{
//	    "src/copy.c": seccorpustest.CopyFix,
//	})
package testing
