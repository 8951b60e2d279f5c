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
	"regexp"
	"strings"
)

var commitLine = regexp.MustCompile(`(?m)^commit ([0-9a-f]{40})\b`)

// SplitCommitBlocks splits "git log" output into one block per commit. Each
// block starts at its "commit <sha>" line and runs to the next one.
func SplitCommitBlocks(text string) []string {
	locs := commitLine.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, text[loc[0]:end])
	}
	return out
}

// ExtractSHA returns the commit id of a block.
func ExtractSHA(block string) (string, bool) {
	m := commitLine.FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SHAs extracts the commit ids of "git log" output in order.
func SHAs(text string) []string {
	var out []string
	for _, b := range SplitCommitBlocks(text) {
		if sha, ok := ExtractSHA(b); ok {
			out = append(out, sha)
		}
	}
	return out
}

// indentMessage renders a commit message the way git log does.
func indentMessage(msg string) string {
	msg = strings.TrimRight(msg, "\n")
	var b strings.Builder
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			b.WriteString("    ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
