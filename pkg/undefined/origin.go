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

package undefined

import (
	"regexp"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/funcscan"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// origin finds the first line of the file that defines or assigns name.
// Members have no origin.
func origin(name string, kind record.ElementKind, lines []string, table *funcscan.Table) int {
	switch kind {
	case record.KindMember:
		return 0
	case record.KindFunction:
		if fn, ok := table.ByName(name).Get(); ok {
			return fn.Range.Start
		}
		return matchLine(lines, definePattern(name))
	case record.KindStruct:
		if r, ok := findAggregate(lines, name); ok {
			return r.Start
		}
		return 0
	default:
		if n := matchDecl(lines, name); n > 0 {
			return n
		}
		if n := matchLine(lines, definePattern(name)); n > 0 {
			return n
		}
		return matchLine(lines, assignPattern(name))
	}
}

func matchLine(lines []string, re *regexp.Regexp) int {
	for i, l := range lines {
		if re.MatchString(l) {
			return i + 1
		}
	}
	return 0
}

var notTypes = map[string]bool{"return": true, "else": true, "goto": true, "case": true, "sizeof": true}

// matchDecl finds "type name;", "type *name = ...", "type name[...]".
func matchDecl(lines []string, name string) int {
	re := regexp.MustCompile(`^\s*(?:(?:static|const|extern|volatile|unsigned|signed|struct|union|enum)\s+)*([A-Za-z_]\w*)[\s\*]+` +
		regexp.QuoteMeta(name) + `\s*(?:=|;|\[|,|\))`)
	for i, l := range lines {
		if m := re.FindStringSubmatch(l); m != nil && !notTypes[m[1]] {
			return i + 1
		}
	}
	return 0
}

func definePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*#\s*define\s+` + regexp.QuoteMeta(name) + `\b`)
}

func assignPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*=[^=]`)
}

// findAggregate locates a struct, union or enum definition named name,
// either "struct name {" or a typedef closing with "} name;".
func findAggregate(lines []string, name string) (record.LineRange, bool) {
	q := regexp.QuoteMeta(name)
	open := regexp.MustCompile(`\b(?:struct|union|enum)\s+` + q + `\s*(?:\{|$)`)
	for i, l := range lines {
		if !open.MatchString(l) || strings.HasSuffix(strings.TrimSpace(l), ";") {
			continue
		}
		if end, ok := closeBrace(lines, i); ok {
			return record.LineRange{Start: i + 1, End: end + 1}, true
		}
	}

	closing := regexp.MustCompile(`^\s*\}\s*` + q + `\s*;`)
	for i, l := range lines {
		if !closing.MatchString(l) {
			continue
		}
		if start, ok := openBrace(lines, i); ok {
			return record.LineRange{Start: start + 1, End: i + 1}, true
		}
	}
	return record.LineRange{}, false
}

// closeBrace returns the index of the line closing the first brace opened
// at or after line from.
func closeBrace(lines []string, from int) (int, bool) {
	depth, seen := 0, false
	for i := from; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				seen = true
			case '}':
				depth--
			}
		}
		if seen && depth <= 0 {
			return i, true
		}
		if !seen && i > from+1 {
			return 0, false
		}
	}
	return 0, false
}

// openBrace walks backwards from the closing line to the line opening the
// block.
func openBrace(lines []string, closing int) (int, bool) {
	depth := 0
	for i := closing; i >= 0; i-- {
		l := lines[i]
		for j := len(l) - 1; j >= 0; j-- {
			switch l[j] {
			case '}':
				depth++
			case '{':
				depth--
			}
		}
		if depth <= 0 {
			return i, true
		}
	}
	return 0, false
}
