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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// GitCLI runs the git binary against a working copy.
type GitCLI struct {
	logger   *slog.Logger
	repoPath string
}

// NewGitCLI checks that path is a git repository and returns a backend for it.
func NewGitCLI(path string, logger *slog.Logger) (*GitCLI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &GitCLI{logger: logger, repoPath: path}
	if _, err := g.run(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return g, nil
}

func (g *GitCLI) Grep(ctx context.Context, keyword string) (string, error) {
	return g.run(ctx, "log", "--no-color", "--no-decorate", "-i", "--grep="+keyword)
}

func (g *GitCLI) Show(ctx context.Context, sha string) (string, error) {
	return g.run(ctx, "show", "--no-color", "--no-decorate", sha)
}

func (g *GitCLI) FileAt(ctx context.Context, rev, path string) (string, error) {
	return g.run(ctx, "show", "--no-color", rev+":"+path)
}

// run executes git and decodes its output as ISO-8859-1 so every byte
// sequence survives. Non-zero exits carry git's stderr.
func (g *GitCLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			g.logger.Debug("vcs.git.failed", "args", args, "stderr", msg)
			if isMissing(msg) {
				return "", fmt.Errorf("git %s: %w: %s", args[0], ErrNotFound, msg)
			}
			return "", fmt.Errorf("git %s failed: %s", args[0], msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}

	return decodeLatin1(output)
}

// decodeLatin1 reads git output as ISO-8859-1, so every byte maps to one
// rune and non-UTF-8 sources survive JSON snapshots.
func decodeLatin1(b []byte) (string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode git output: %w", err)
	}
	return string(decoded), nil
}

func isMissing(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"does not exist", "exists on disk, but not in", "unknown revision", "bad revision", "invalid object name", "bad object"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
