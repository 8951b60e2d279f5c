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

package funnel

import (
	"slices"
	"strconv"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// MaskPrefix starts every mask placeholder.
const MaskPrefix = "<MASK_"

// MaskToken is the placeholder for the k-th change of a block, 1-based.
func MaskToken(k int) string {
	return MaskPrefix + strconv.Itoa(k) + ">"
}

// CountMasks counts placeholders in text.
func CountMasks(text string) int {
	return strings.Count(text, MaskPrefix)
}

// InjectMask replaces each change of b inside its prefix function with a
// placeholder. Removed lines must sit at the change's old line and match no
// other run of whole lines in the function; a pure insertion becomes a
// placeholder line after its anchor.
//
// The result must hold exactly one placeholder. Anything else is a drop.
func InjectMask(b record.Block) (string, error) {
	lines := strings.Split(b.PrefixText, "\n")

	// Bottom-up, so line anchors of earlier changes stay valid.
	for i := len(b.Changes) - 1; i >= 0; i-- {
		c := b.Changes[i]
		token := MaskToken(i + 1)

		if len(c.Removed) == 0 {
			at := c.OldLine - b.PrefixRange.Start + 1
			if at < 1 || at > len(lines) {
				return "", Drop(ReasonMaskNotFound, "insertion after line %d outside %s", c.OldLine, b.Function)
			}
			lines = slices.Insert(lines, at, token)
			continue
		}

		at, n := c.OldLine-b.PrefixRange.Start, len(c.Removed)
		if at < 0 || at+n > len(lines) || !slices.Equal(lines[at:at+n], c.Removed) {
			return "", Drop(ReasonMaskNotFound, "change at line %d not found in %s", c.OldLine, b.Function)
		}
		if k := countRuns(lines, c.Removed); k > 1 {
			return "", Drop(ReasonMaskNotFound, "change at line %d occurs %d times in %s", c.OldLine, k, b.Function)
		}
		lines = slices.Replace(lines, at, at+n, token)
	}

	text := strings.Join(lines, "\n")
	if n := CountMasks(text); n != 1 {
		return "", Drop(ReasonMaskCount, "%d placeholders", n)
	}
	return text, nil
}

// countRuns counts the positions where run matches whole lines of lines.
func countRuns(lines, run []string) int {
	n := 0
	for i := 0; i+len(run) <= len(lines); i++ {
		if slices.Equal(lines[i:i+len(run)], run) {
			n++
		}
	}
	return n
}
