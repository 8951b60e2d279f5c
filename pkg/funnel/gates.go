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
	"path"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/diff"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// Gate admits or rejects a record without changing it. Check returns nil to
// admit and a *DropError naming the reason otherwise.
type Gate interface {
	Check(rec record.CommitRecord) error
}

// GateFunc adapts a function to Gate.
type GateFunc func(record.CommitRecord) error

// Check implements Gate.
func (f GateFunc) Check(rec record.CommitRecord) error { return f(rec) }

// Pass runs gates in order and stops at the first rejection, so later gates
// never see a record an earlier one dropped.
func Pass(rec record.CommitRecord, gates ...Gate) error {
	for _, g := range gates {
		if err := g.Check(rec); err != nil {
			return err
		}
	}
	return nil
}

// ByteGate drops commits whose raw text is at least Max bytes.
type ByteGate struct {
	Max int
}

func (g ByteGate) Check(rec record.CommitRecord) error {
	if g.Max > 0 && len(rec.RawDiff) >= g.Max {
		return Drop(ReasonDiffTooLarge, "%d bytes", len(rec.RawDiff))
	}
	return nil
}

// LengthGate drops commits whose raw text is estimated at Max tokens or
// more.
type LengthGate struct {
	Estimator Estimator
	Max       int
}

func (g LengthGate) Check(rec record.CommitRecord) error {
	if n := g.Estimator.Tokens(rec.RawDiff); n >= g.Max {
		return Drop(ReasonDiffTooLong, "%d tokens", n)
	}
	return nil
}

// SingleFileGate admits commits touching exactly one file.
type SingleFileGate struct{}

func (SingleFileGate) Check(rec record.CommitRecord) error {
	if files := diff.ChangedFiles(rec.RawDiff); len(files) != 1 {
		return Drop(ReasonMultiFile, "%d files", len(files))
	}
	return nil
}

// ExtensionGate admits commits whose changed file matches one of Patterns.
// A pattern starting with "." is an extension; anything else is a glob
// matched against the full path and the base name.
type ExtensionGate struct {
	Patterns []string
}

func (g ExtensionGate) Check(rec record.CommitRecord) error {
	file := rec.ChangedFile
	if file == "" {
		if files := diff.ChangedFiles(rec.RawDiff); len(files) == 1 {
			file = files[0]
		}
	}
	for _, p := range g.Patterns {
		if matchesPattern(file, p) {
			return nil
		}
	}
	return Drop(ReasonExtension, "%s", file)
}

func matchesPattern(file, pattern string) bool {
	if file == "" || pattern == "" {
		return false
	}
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(file, pattern)
	}
	if strings.HasSuffix(pattern, "/**") {
		dir := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(file, dir+"/")
	}
	if strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/") {
		return strings.HasSuffix(file, pattern[1:])
	}
	if ok, _ := path.Match(pattern, file); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(file))
	return ok
}

// SizeGate drops records whose retained prefix function is estimated at
// Max tokens or more.
type SizeGate struct {
	Estimator Estimator
	Max       int
}

func (g SizeGate) Check(rec record.CommitRecord) error {
	if len(rec.Blocks) != 1 {
		return Drop(ReasonMultiBlock, "%d blocks", len(rec.Blocks))
	}
	if n := g.Estimator.Tokens(rec.Blocks[0].PrefixText); n >= g.Max {
		return Drop(ReasonFunctionTooLong, "%d tokens", n)
	}
	return nil
}

// DeletionGate drops commits whose retained block removes no line. Before
// blocks exist it looks at the hunks instead. It is a policy switch: with
// Enabled false every record passes.
type DeletionGate struct {
	Enabled bool
}

func (g DeletionGate) Check(rec record.CommitRecord) error {
	if !g.Enabled {
		return nil
	}
	if len(rec.Blocks) == 1 {
		if rec.Blocks[0].Deletions() == 0 {
			return Drop(ReasonNoDeletion, "block %s", rec.Blocks[0].Function)
		}
		return nil
	}
	if diff.OnlyAdditions(rec.Hunks) {
		return Drop(ReasonNoDeletion, "")
	}
	return nil
}

// DateGate admits commits dated strictly before CutoffYear. A missing or
// unparseable date drops the commit.
type DateGate struct {
	CutoffYear int
}

func (g DateGate) Check(rec record.CommitRecord) error {
	year, err := diff.CommitYear(rec.RawDiff)
	if err != nil {
		return Drop(ReasonDateUnparseable, "%v", err)
	}
	if year >= g.CutoffYear {
		return Drop(ReasonDateCutoff, "%d", year)
	}
	return nil
}

// Filter is the cheap admission step run right after harvesting. The gates
// run in order, so a multi-file commit is rejected before any path is
// matched.
type Filter struct {
	Bytes      ByteGate
	Length     LengthGate
	SingleFile bool
	Extensions ExtensionGate
}

// Apply runs the gates and records the changed file on the admitted copy,
// tagged StageFilter.
func (f Filter) Apply(rec record.CommitRecord) (record.CommitRecord, error) {
	gates := []Gate{f.Bytes, f.Length}
	if f.SingleFile {
		gates = append(gates, SingleFileGate{})
	}
	if err := Pass(rec, gates...); err != nil {
		return rec, err
	}

	files := diff.ChangedFiles(rec.RawDiff)
	if len(files) == 0 {
		return rec, Drop(ReasonMultiFile, "no files")
	}
	out := rec
	out.ChangedFile = files[0]
	if len(f.Extensions.Patterns) > 0 {
		if err := f.Extensions.Check(out); err != nil {
			return rec, err
		}
	}
	return out.Advance(record.StageFilter)
}
