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

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// ErrMalformedHunk is returned when a hunk body does not match the line
// counts announced by its header.
var ErrMalformedHunk = errors.New("malformed hunk")

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

// ParseHunks parses the hunks of one file section. A section without hunks
// (rename, mode change, binary) yields an empty slice and no error.
//
// Body lines are classified by their first character. "\ No newline at end
// of file" markers are skipped. A hunk ends once the announced old and new
// line counts are consumed; running out of lines first is an error.
func ParseHunks(section string) ([]record.Hunk, error) {
	lines := splitLines(section)

	var hunks []record.Hunk
	for i := 0; i < len(lines); i++ {
		m := hunkHeader.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		h := record.Hunk{
			Header:   lines[i],
			OldStart: atoi(m[1]),
			OldCount: countOrOne(m[2]),
			NewStart: atoi(m[3]),
			NewCount: countOrOne(m[4]),
			Section:  m[5],
		}

		next, err := readBody(&h, lines, i+1)
		if err != nil {
			return nil, err
		}
		hunks = append(hunks, h)
		i = next - 1
	}
	return hunks, nil
}

// readBody fills h.Lines starting at lines[start] and returns the index of
// the first line after the hunk.
func readBody(h *record.Hunk, lines []string, start int) (int, error) {
	oldLine, newLine := h.OldStart, h.NewStart
	oldSeen, newSeen := 0, 0

	i := start
	for ; i < len(lines) && (oldSeen < h.OldCount || newSeen < h.NewCount); i++ {
		line := lines[i]
		if line == "" {
			// Some tools strip the single space of an empty context line.
			line = " "
		}
		kind, text := record.LineKind(line[0]), line[1:]

		switch kind {
		case '\\':
			continue
		case record.LineContext:
			h.Lines = append(h.Lines, record.DiffLine{Kind: kind, Text: text, OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
			oldSeen++
			newSeen++
		case record.LineRemoved:
			h.Lines = append(h.Lines, record.DiffLine{Kind: kind, Text: text, OldLine: oldLine})
			oldLine++
			oldSeen++
		case record.LineAdded:
			h.Lines = append(h.Lines, record.DiffLine{Kind: kind, Text: text, NewLine: newLine})
			newLine++
			newSeen++
		default:
			return i, fmt.Errorf("%w: %q: unexpected line %q", ErrMalformedHunk, h.Header, line)
		}
	}

	if oldSeen != h.OldCount || newSeen != h.NewCount {
		return i, fmt.Errorf("%w: %q: got -%d +%d lines", ErrMalformedHunk, h.Header, oldSeen, newSeen)
	}
	// A trailing no-newline marker belongs to this hunk.
	for i < len(lines) && len(lines[i]) > 0 && lines[i][0] == '\\' {
		i++
	}
	return i, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func countOrOne(s string) int {
	if s == "" {
		return 1
	}
	return atoi(s)
}
