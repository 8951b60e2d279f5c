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

package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kraklabs/seccorpus/pkg/diff"
)

// GoGit reads history in-process with go-git. Merge commits are shown
// against their first parent.
type GoGit struct {
	logger *slog.Logger
	repo   *git.Repository
}

// NewGoGit opens the repository at path, searching parent directories for
// the .git directory.
func NewGoGit(path string, logger *slog.Logger) (*GoGit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &GoGit{logger: logger, repo: r}, nil
}

func (g *GoGit) Grep(ctx context.Context, keyword string) (string, error) {
	iter, err := g.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	needle := strings.ToLower(keyword)
	var b strings.Builder
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.Contains(strings.ToLower(c.Message), needle) {
			writeHeader(&b, c)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return decodeLatin1([]byte(b.String()))
}

func (g *GoGit) Show(ctx context.Context, sha string) (string, error) {
	c, err := g.commit(sha)
	if err != nil {
		return "", err
	}

	patch, err := g.patch(ctx, c)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", sha, err)
	}

	var b strings.Builder
	writeHeader(&b, c)
	b.WriteString("\n")
	b.WriteString(patch)
	return decodeLatin1([]byte(b.String()))
}

func (g *GoGit) FileAt(ctx context.Context, rev, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, err := g.commit(rev)
	if err != nil {
		return "", err
	}
	f, err := c.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%s:%s: %w", rev, path, ErrNotFound)
		}
		return "", fmt.Errorf("%s:%s: %w", rev, path, err)
	}
	contents, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("%s:%s: %w", rev, path, err)
	}
	return decodeLatin1([]byte(contents))
}

func (g *GoGit) commit(rev string) (*object.Commit, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, ErrNotFound)
	}
	c, err := g.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("commit %s: %w", rev, ErrNotFound)
		}
		return nil, fmt.Errorf("commit %s: %w", rev, err)
	}
	return c, nil
}

func (g *GoGit) patch(ctx context.Context, c *object.Commit) (string, error) {
	to, err := c.Tree()
	if err != nil {
		return "", err
	}
	from := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", err
		}
		if from, err = parent.Tree(); err != nil {
			return "", err
		}
	}
	changes, err := object.DiffTreeWithOptions(ctx, from, to, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", err
	}
	p, err := changes.PatchContext(ctx)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// writeHeader renders the commit the way "git log" prints it.
func writeHeader(b *strings.Builder, c *object.Commit) {
	fmt.Fprintf(b, "commit %s\n", c.Hash)
	if c.NumParents() > 1 {
		parents := make([]string, 0, c.NumParents())
		for _, h := range c.ParentHashes {
			parents = append(parents, h.String()[:7])
		}
		fmt.Fprintf(b, "Merge: %s\n", strings.Join(parents, " "))
	}
	fmt.Fprintf(b, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(b, "Date:   %s\n\n", c.Author.When.Format(diff.DateLayout))
	b.WriteString(indentMessage(c.Message))
	b.WriteString("\n")
}
