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

package diff

import "github.com/kraklabs/seccorpus/pkg/record"

// Changes splits a hunk into diff blocks: maximal runs of added and removed
// lines between context lines.
//
// Each block is anchored on both sides. The old anchor is the first removed
// line, or for a pure insertion the prefix line the insertion follows. The
// new anchor is the first added line, or for a pure deletion the fix line
// the deletion follows.
func Changes(h record.Hunk) []record.Change {
	var out []record.Change
	var cur *record.Change

	prevOld, prevNew := h.OldStart-1, h.NewStart-1
	if h.OldCount == 0 {
		// "-N,0" names the line after which lines are inserted.
		prevOld = h.OldStart
	}
	if h.NewCount == 0 {
		prevNew = h.NewStart
	}

	flush := func() {
		if cur != nil {
			if cur.OldLine == 0 {
				cur.OldLine = max(prevOld, 1)
			}
			if cur.NewLine == 0 {
				cur.NewLine = max(prevNew, 1)
			}
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, l := range h.Lines {
		switch l.Kind {
		case record.LineContext:
			flush()
			prevOld, prevNew = l.OldLine, l.NewLine
		case record.LineRemoved:
			if cur == nil {
				cur = &record.Change{}
			}
			if cur.OldLine == 0 {
				cur.OldLine = l.OldLine
			}
			cur.Removed = append(cur.Removed, l.Text)
		case record.LineAdded:
			if cur == nil {
				cur = &record.Change{}
			}
			if cur.NewLine == 0 {
				cur.NewLine = l.NewLine
			}
			cur.Added = append(cur.Added, l.Text)
		}
	}
	flush()
	return out
}

// OnlyAdditions reports whether no hunk removes a line.
func OnlyAdditions(hunks []record.Hunk) bool {
	for _, h := range hunks {
		if h.Removed() > 0 {
			return false
		}
	}
	return true
}
