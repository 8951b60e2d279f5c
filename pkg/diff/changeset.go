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

// Package diff decomposes the text `git show` prints for a commit: commit
// metadata, per-file sections, hunks and diff blocks.
//
// Nothing here computes a diff. The unified diff text is taken as given and
// parsed line by line.
package diff

import (
	"strings"
)

const devNull = "/dev/null"

// FileSection is the part of a commit diff belonging to one file: the
// "diff --git" header and everything up to the next file header.
type FileSection struct {
	OldPath string
	NewPath string
	Header  string
	Body    string
}

// Path is the file the section touches: the post-image path, or the
// pre-image path for deletions.
func (s FileSection) Path() string {
	if s.NewPath == "" || s.NewPath == devNull {
		return s.OldPath
	}
	return s.NewPath
}

// FileSections splits commit text into per-file sections in diff order.
// Text before the first file header (the commit metadata) is not part of
// any section.
func FileSections(text string) []FileSection {
	var sections []FileSection
	var cur *FileSection
	var body strings.Builder
	inHunks := false

	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			sections = append(sections, *cur)
			body.Reset()
		}
	}

	for _, line := range splitLines(text) {
		if oldPath, newPath, ok := parseFileHeader(line); ok {
			flush()
			cur = &FileSection{OldPath: oldPath, NewPath: newPath, Header: line}
			inHunks = false
			continue
		}
		if cur == nil {
			continue
		}
		// The ---/+++ lines only count before the first hunk; inside a hunk
		// they are removed/added lines.
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunks = true
		case !inHunks && strings.HasPrefix(line, "--- "):
			cur.OldPath = stripSide(strings.TrimPrefix(line, "--- "), "a/")
		case !inHunks && strings.HasPrefix(line, "+++ "):
			cur.NewPath = stripSide(strings.TrimPrefix(line, "+++ "), "b/")
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return sections
}

// ChangedFiles returns the distinct paths touched by a commit, in diff
// order.
func ChangedFiles(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range FileSections(text) {
		p := s.Path()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Section returns the section for path.
func Section(text, path string) (FileSection, bool) {
	for _, s := range FileSections(text) {
		if s.Path() == path || s.OldPath == path {
			return s, true
		}
	}
	return FileSection{}, false
}

// parseFileHeader recognizes "diff --git a/x b/x" and the combined-diff
// headers git prints for merges ("diff --cc x").
func parseFileHeader(line string) (oldPath, newPath string, ok bool) {
	switch {
	case strings.HasPrefix(line, "diff --git "):
		oldPath, newPath = splitGitPaths(strings.TrimPrefix(line, "diff --git "))
		return oldPath, newPath, true
	case strings.HasPrefix(line, "diff --cc "):
		p := unquoteGitPath(strings.TrimPrefix(line, "diff --cc "))
		return p, p, true
	case strings.HasPrefix(line, "diff --combined "):
		p := unquoteGitPath(strings.TrimPrefix(line, "diff --combined "))
		return p, p, true
	}
	return "", "", false
}

// splitGitPaths separates the two sides of a "diff --git" header. Unquoted
// paths may contain spaces, so the split point is the " b/" whose halves
// name the same file; renames fall back to the last " b/".
func splitGitPaths(rest string) (string, string) {
	if strings.HasPrefix(rest, `"`) {
		if end := closingQuote(rest); end > 0 {
			left := unquoteGitPath(rest[:end+1])
			right := unquoteGitPath(strings.TrimSpace(rest[end+1:]))
			return stripSide(left, "a/"), stripSide(right, "b/")
		}
	}

	body := strings.TrimPrefix(rest, "a/")
	last := -1
	for i := 0; i+3 <= len(body); i++ {
		if body[i:i+3] != " b/" {
			continue
		}
		left, right := body[:i], body[i+3:]
		if left == right {
			return left, right
		}
		last = i
	}
	if last >= 0 {
		return body[:last], unquoteGitPath(body[last+3:])
	}
	return body, body
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func stripSide(path, prefix string) string {
	path = unquoteGitPath(strings.TrimSpace(path))
	if path == devNull {
		return path
	}
	return strings.TrimPrefix(path, prefix)
}

// unquoteGitPath undoes git's C-style quoting of unusual path names.
func unquoteGitPath(path string) string {
	if len(path) >= 2 && path[0] == '"' && path[len(path)-1] == '"' {
		unquoted := path[1 : len(path)-1]
		unquoted = strings.ReplaceAll(unquoted, "\\n", "\n")
		unquoted = strings.ReplaceAll(unquoted, "\\t", "\t")
		unquoted = strings.ReplaceAll(unquoted, "\\\"", "\"")
		unquoted = strings.ReplaceAll(unquoted, "\\\\", "\\")
		return unquoted
	}
	return path
}

// splitLines splits on '\n' and drops a single trailing empty element.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
