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

package record

import (
	"strconv"
	"strings"
)

// LineRange is an inclusive, 1-based range of lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Len is the number of lines covered; zero for an empty range.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// LineKind classifies a hunk body line by its first character.
type LineKind byte

const (
	LineContext LineKind = ' '
	LineAdded   LineKind = '+'
	LineRemoved LineKind = '-'
)

// DiffLine is one hunk body line with its position on each side. OldLine is
// zero for added lines and NewLine is zero for removed lines.
type DiffLine struct {
	Kind    LineKind `json:"kind"`
	Text    string   `json:"text"`
	OldLine int      `json:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty"`
}

// Hunk is one "@@ -a,b +c,d @@" region of a file's diff.
type Hunk struct {
	Header   string     `json:"header"`
	OldStart int        `json:"old_start"`
	OldCount int        `json:"old_count"`
	NewStart int        `json:"new_start"`
	NewCount int        `json:"new_count"`
	Section  string     `json:"section,omitempty"`
	Lines    []DiffLine `json:"lines"`
}

// LineRange is the hunk's span in the prefix file.
func (h Hunk) LineRange() LineRange {
	if h.OldCount == 0 {
		return LineRange{Start: h.OldStart, End: h.OldStart}
	}
	return LineRange{Start: h.OldStart, End: h.OldStart + h.OldCount - 1}
}

// Removed counts removed lines.
func (h Hunk) Removed() int { return h.count(LineRemoved) }

// Added counts added lines.
func (h Hunk) Added() int { return h.count(LineAdded) }

func (h Hunk) count(kind LineKind) int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind == kind {
			n++
		}
	}
	return n
}

// Change is one diff block: a maximal run of added/removed lines.
// OldLine and NewLine anchor the change in the prefix and fix files; for a
// pure insertion OldLine is the prefix line the insertion follows.
type Change struct {
	Removed []string `json:"removed,omitempty"`
	Added   []string `json:"added,omitempty"`
	OldLine int      `json:"old_line"`
	NewLine int      `json:"new_line"`
}

// RemovedText joins the removed lines as they appear in the prefix file.
func (c Change) RemovedText() string {
	return strings.Join(c.Removed, "\n")
}

// UnknownFunction names a block whose signature carries no identifier.
const UnknownFunction = "unknown"

// Block is the enclosing function of one or more changes, as it reads
// before and after the commit.
type Block struct {
	Function    string    `json:"function"`
	PrefixRange LineRange `json:"prefix_range"`
	FixRange    LineRange `json:"fix_range"`
	PrefixText  string    `json:"prefix_text"`
	FixText     string    `json:"fix_text"`
	Changes     []Change  `json:"changes"`
}

// Deletions counts removed lines over every change in the block.
func (b Block) Deletions() int {
	n := 0
	for _, c := range b.Changes {
		n += len(c.Removed)
	}
	return n
}

// Key identifies the function a block resolves to. Two blocks with the same
// key are the same function.
func (b Block) Key() string {
	return b.Function + "@" + strconv.Itoa(b.PrefixRange.Start)
}
