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
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// ErrOracleFormat marks an element or classification response that does not
// follow its grammar. The record is dropped; the oracle is not asked again.
var ErrOracleFormat = errors.New("oracle response format")

const fence = "```"

var elementLine = regexp.MustCompile(
	`^\s*(?:[-*]\s+|\d+[.)]\s+)?\[?([A-Za-z_]\w*(?:(?:->|\.|::)[A-Za-z_]\w*)*)\]?\s*\(([^()]*)\)\s*$`)

// ParseElements reads the element oracle's "name (type)" lines. A fenced
// block is preferred when present; otherwise every line is considered.
// Lines that do not match are skipped. No usable line at all is a format
// error.
func ParseElements(text string) ([]record.ListedElement, error) {
	body := text
	if parts := strings.Split(text, fence); len(parts) >= 3 {
		body = parts[len(parts)-2]
	}

	var out []record.ListedElement
	seen := make(map[string]bool)
	for _, line := range strings.Split(body, "\n") {
		m := elementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind, err := record.ParseKind(m[2])
		if err != nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, record.ListedElement{Name: m[1], Kind: kind})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no \"name (type)\" lines", ErrOracleFormat)
	}
	return out, nil
}

// RenderElements writes elements back as "name (Kind)" lines.
func RenderElements(els []record.ListedElement) string {
	var b strings.Builder
	for _, e := range els {
		fmt.Fprintf(&b, "%s (%s)\n", e.Name, e.Kind)
	}
	return b.String()
}

var (
	groupPatterns = map[string]*regexp.Regexp{
		"Functions":  regexp.MustCompile(`(?s)\bFunctions\s*=\s*\[(.*?)\]`),
		"Variables":  regexp.MustCompile(`(?s)\bVariables\s*=\s*\[(.*?)\]`),
		"Structures": regexp.MustCompile(`(?s)\bStructures\s*=\s*\[(.*?)\]`),
	}
	identItem = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// ParseGroups reads the classification oracle's fenced block:
//
//	Functions = [a, b]
//	Variables = [c]
//	Structures = [d]
//
// The response must contain an opening and a closing fence; the last fenced
// block is parsed. All three groups must be present. Items that are not
// identifiers after trimming quotes, "()" and a struct/union/enum keyword
// are ignored.
func ParseGroups(text string) (record.ContextGroups, error) {
	parts := strings.Split(text, fence)
	if len(parts) < 3 {
		return record.ContextGroups{}, fmt.Errorf("%w: missing fenced block", ErrOracleFormat)
	}
	body := strings.NewReplacer(`\[`, "[", `\]`, "]").Replace(parts[len(parts)-2])

	var g record.ContextGroups
	for _, name := range []string{"Functions", "Variables", "Structures"} {
		m := groupPatterns[name].FindStringSubmatch(body)
		if m == nil {
			return record.ContextGroups{}, fmt.Errorf("%w: no %s group", ErrOracleFormat, name)
		}
		items := splitItems(m[1])
		switch name {
		case "Functions":
			g.Functions = items
		case "Variables":
			g.Variables = items
		default:
			g.Structures = items
		}
	}
	return g, nil
}

func splitItems(list string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, raw := range strings.Split(list, ",") {
		item := strings.Trim(strings.TrimSpace(raw), "\"'`")
		item = strings.TrimSuffix(item, "()")
		for _, kw := range []string{"struct ", "union ", "enum "} {
			item = strings.TrimPrefix(item, kw)
		}
		item = strings.TrimSpace(item)
		if !identItem.MatchString(item) || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
