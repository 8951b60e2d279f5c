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

// Package vcs queries a repository's history for the harvest and refine
// stages.
//
// Two backends implement Repository: GitCLI shells out to the git binary and
// GoGit reads the object store in-process with go-git. Both render history
// in the layout of "git log" and "git show" so the diff and metadata parsers
// downstream see the same text either way.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is returned when a revision or a path at a revision does not
// exist. An empty query result is not an error.
var ErrNotFound = errors.New("not found")

// Repository is the narrow view of version control the funnel needs.
type Repository interface {
	// Grep lists every commit whose message contains keyword,
	// case-insensitively, in "git log" layout.
	Grep(ctx context.Context, keyword string) (string, error)

	// Show returns a commit's header, message and unified diff.
	Show(ctx context.Context, sha string) (string, error)

	// FileAt returns the content of path at revision rev. "sha^" names the
	// first parent.
	FileAt(ctx context.Context, rev, path string) (string, error)
}

// Backend names.
const (
	BackendGit   = "git"
	BackendGoGit = "gogit"
)

// Open opens the repository at path with the named backend.
func Open(backend, path string, logger *slog.Logger) (Repository, error) {
	switch strings.ToLower(backend) {
	case BackendGit, "":
		return NewGitCLI(path, logger)
	case BackendGoGit, "go-git":
		return NewGoGit(path, logger)
	default:
		return nil, fmt.Errorf("unknown vcs backend %q (supported: git, gogit)", backend)
	}
}

// Parent is the revision naming rev's first parent.
func Parent(rev string) string {
	return rev + "^"
}
