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
	"fmt"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/funcscan"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// Sources are the texts context definitions are looked up in, prefix first.
type Sources struct {
	Prefix string
	Fix    string
}

// BuildContext renders the definitions behind the classified groups:
// function bodies and aggregate definitions found in the prefix (or else
// fix) file, and for variables the line defining or assigning them.
// Names whose definition cannot be found are listed on their own.
func BuildContext(g record.ContextGroups, src Sources) string {
	files := []string{src.Prefix, src.Fix}
	var lines [][]string
	var tables []*funcscan.Table
	for _, f := range files {
		l := funcscan.Lines(f)
		lines = append(lines, l)
		tables = append(tables, funcscan.Scan(l))
	}

	var sections []string
	if len(g.Functions) > 0 {
		var b strings.Builder
		b.WriteString("Functions:\n")
		for _, name := range g.Functions {
			b.WriteString(lookupFunction(name, tables))
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}
	if len(g.Structures) > 0 {
		var b strings.Builder
		b.WriteString("Structures:\n")
		for _, name := range g.Structures {
			b.WriteString(lookupAggregate(name, lines))
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}
	if len(g.Variables) > 0 {
		var b strings.Builder
		b.WriteString("Variables:\n")
		for _, name := range g.Variables {
			b.WriteString(lookupVariable(name, lines, tables))
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}
	return strings.TrimRight(strings.Join(sections, "\n"), "\n")
}

func lookupFunction(name string, tables []*funcscan.Table) string {
	for _, t := range tables {
		if fn, ok := t.ByName(name).Get(); ok {
			return t.Text(fn.Range)
		}
	}
	return name
}

func lookupAggregate(name string, files [][]string) string {
	for _, l := range files {
		if r, ok := findAggregate(l, name); ok {
			return strings.Join(l[r.Start-1:r.End], "\n")
		}
	}
	return name
}

func lookupVariable(name string, files [][]string, tables []*funcscan.Table) string {
	for i, l := range files {
		if n := origin(name, record.KindVariable, l, tables[i]); n > 0 {
			return fmt.Sprintf("%s: %s", name, strings.TrimSpace(l[n-1]))
		}
	}
	return name
}
