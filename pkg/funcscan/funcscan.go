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

// Package funcscan locates C and C++ function definitions in a file without
// a full parser.
//
// The scanner walks an indexed line array once, tracking brace depth while
// skipping comments, string and character literals and preprocessor lines.
// Every top-level brace whose header looks like a signature becomes a
// Function spanning from the first line of its signature to its closing
// brace. namespace and extern "C" blocks are transparent.
//
// Lookups return a Result that is either Found(function) or NotFound; a
// change at file scope is a normal outcome, not an error.
package funcscan

import (
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// Function is one definition found in a file.
type Function struct {
	Name string
	// Range spans the signature's first line through the closing brace.
	Range record.LineRange
	// BodyStart is the line holding the opening brace.
	BodyStart int
}

// Result is the outcome of a lookup.
type Result struct {
	fn    Function
	found bool
}

// Found wraps a located function.
func Found(fn Function) Result { return Result{fn: fn, found: true} }

// NotFound is the empty result.
func NotFound() Result { return Result{} }

// Get returns the function and whether one was found.
func (r Result) Get() (Function, bool) { return r.fn, r.found }

// Table holds the functions of one file.
type Table struct {
	lines []string
	funcs []Function
}

// Lines splits file text into the indexed array the scanner works on.
// Line n of the file is element n-1.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ScanText is Scan(Lines(text)).
func ScanText(text string) *Table {
	return Scan(Lines(text))
}

// Scan builds the function table for a file.
func Scan(lines []string) *Table {
	s := &scanner{lines: lines}
	s.run()
	return &Table{lines: lines, funcs: s.funcs}
}

// Functions lists every definition in file order.
func (t *Table) Functions() []Function {
	return t.funcs
}

// Enclosing finds the function whose range contains line (1-based).
func (t *Table) Enclosing(line int) Result {
	lo, hi := 0, len(t.funcs)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		fn := t.funcs[mid]
		switch {
		case line < fn.Range.Start:
			hi = mid - 1
		case line > fn.Range.End:
			lo = mid + 1
		default:
			return Found(fn)
		}
	}
	return NotFound()
}

// ByName finds the first definition called name. Qualified C++ names match
// on their last component as well.
func (t *Table) ByName(name string) Result {
	for _, fn := range t.funcs {
		if fn.Name == name || strings.HasSuffix(fn.Name, "::"+name) {
			return Found(fn)
		}
	}
	return NotFound()
}

// Text returns the source lines of r joined with newlines.
func (t *Table) Text(r record.LineRange) string {
	if r.Start < 1 || r.End > len(t.lines) || r.End < r.Start {
		return ""
	}
	return strings.Join(t.lines[r.Start-1:r.End], "\n")
}

// LineCount is the number of lines in the scanned file.
func (t *Table) LineCount() int {
	return len(t.lines)
}
