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
	"fmt"

	"github.com/kraklabs/seccorpus/pkg/diff"
	"github.com/kraklabs/seccorpus/pkg/funcscan"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// Hunks parses the hunks of file out of a commit's raw text. A section with
// no hunks (rename, mode change) is a parse failure.
func Hunks(raw, file string) ([]record.Hunk, error) {
	sec, ok := diff.Section(raw, file)
	if !ok {
		return nil, &ParseError{Reason: ReasonParse, Err: fmt.Errorf("no diff section for %s", file)}
	}
	hunks, err := diff.ParseHunks(sec.Body)
	if err != nil {
		return nil, &ParseError{Reason: ReasonParse, Err: err}
	}
	if len(hunks) == 0 {
		return nil, &ParseError{Reason: ReasonNoHunks}
	}
	return hunks, nil
}

// ExtractBlocks resolves every diff block of hunks to the function enclosing
// it, in the prefix file and in the fix file. One block is produced per diff
// block, so a hunk spanning two functions yields two blocks.
//
// A change outside any function fails the whole commit.
func ExtractBlocks(hunks []record.Hunk, prefix, fix *funcscan.Table) ([]record.Block, error) {
	var blocks []record.Block
	for _, h := range hunks {
		for _, c := range diff.Changes(h) {
			before, ok := prefix.Enclosing(c.OldLine).Get()
			if !ok {
				return nil, &ParseError{
					Reason: ReasonNoFunction,
					Err:    fmt.Errorf("prefix line %d (%s)", c.OldLine, h.Header),
				}
			}
			after, ok := fix.Enclosing(c.NewLine).Get()
			if !ok {
				return nil, &ParseError{
					Reason: ReasonNoFunction,
					Err:    fmt.Errorf("fix line %d (%s)", c.NewLine, h.Header),
				}
			}
			blocks = append(blocks, record.Block{
				Function:    before.Name,
				PrefixRange: before.Range,
				FixRange:    after.Range,
				PrefixText:  prefix.Text(before.Range),
				FixText:     fix.Text(after.Range),
				Changes:     []record.Change{c},
			})
		}
	}
	return blocks, nil
}

// DetectNoop reports whether any block reads exactly the same before and
// after the commit. One such block condemns the whole commit.
func DetectNoop(blocks []record.Block) bool {
	for _, b := range blocks {
		if b.PrefixText == b.FixText {
			return true
		}
	}
	return false
}

// CollapseBlocks merges blocks resolving to the same function, keeping first
// appearance order and concatenating their changes.
func CollapseBlocks(blocks []record.Block) []record.Block {
	var out []record.Block
	index := make(map[string]int, len(blocks))
	for _, b := range blocks {
		if i, ok := index[b.Key()]; ok {
			out[i].Changes = append(out[i].Changes, b.Changes...)
			continue
		}
		index[b.Key()] = len(out)
		b.Changes = append([]record.Change(nil), b.Changes...)
		out = append(out, b)
	}
	return out
}

// Refiner narrows an intent-approved commit to a single function block.
type Refiner struct {
	Size     SizeGate
	Deletion DeletionGate
	Date     DateGate
}

// Refine attaches the file contents, hunks and the single retained block to
// rec and applies the size, deletion and date gates. The returned record is
// tagged StageRefine.
func (r Refiner) Refine(rec record.CommitRecord, prefixContent, fixContent string) (record.CommitRecord, error) {
	hunks, err := Hunks(rec.RawDiff, rec.ChangedFile)
	if err != nil {
		return rec, err
	}

	prefix := funcscan.ScanText(prefixContent)
	fix := funcscan.ScanText(fixContent)
	blocks, err := ExtractBlocks(hunks, prefix, fix)
	if err != nil {
		return rec, err
	}
	if DetectNoop(blocks) {
		return rec, Drop(ReasonNoop, "%d blocks", len(blocks))
	}
	blocks = CollapseBlocks(blocks)
	if len(blocks) != 1 {
		return rec, Drop(ReasonMultiBlock, "%d functions", len(blocks))
	}

	out := rec
	out.PrefixContent = prefixContent
	out.FixContent = fixContent
	out.Hunks = hunks
	out.Blocks = blocks
	if err := Pass(out, r.Size, r.Deletion, r.Date); err != nil {
		return rec, err
	}
	year, err := diff.CommitYear(out.RawDiff)
	if err != nil {
		return rec, Drop(ReasonDateUnparseable, "%v", err)
	}
	out.CommitYear = year
	return out.Advance(record.StageRefine)
}
