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
	"fmt"
	"sort"
	"strings"
)

// ElementKind classifies an identifier referenced by a snippet.
type ElementKind string

const (
	KindFunction ElementKind = "Function"
	KindVariable ElementKind = "Variable"
	KindPointer  ElementKind = "Pointer"
	KindMember   ElementKind = "Member"
	KindStruct   ElementKind = "Struct"
)

// ParseKind accepts the annotations the element oracle emits, such as
// "Variable, Pointer" or "struct definition".
func ParseKind(desc string) (ElementKind, error) {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "pointer"):
		return KindPointer, nil
	case strings.Contains(d, "member"):
		return KindMember, nil
	case strings.Contains(d, "struct"):
		return KindStruct, nil
	case strings.Contains(d, "function"), strings.Contains(d, "macro"):
		return KindFunction, nil
	case strings.Contains(d, "variable"), strings.Contains(d, "constant"):
		return KindVariable, nil
	}
	return "", fmt.Errorf("unknown element kind %q", desc)
}

// Element is an undefined identifier with the line of the prefix file that
// defines or assigns it. Origin is zero when no such line was found.
type Element struct {
	Kind   ElementKind `json:"kind"`
	Origin int         `json:"origin,omitempty"`
}

// ListedElement is one "name (type)" entry returned by the element oracle.
type ListedElement struct {
	Name string      `json:"name"`
	Kind ElementKind `json:"kind"`
}

// ContextGroups is the validated classification of a record's undefined
// identifiers.
type ContextGroups struct {
	Functions  []string `json:"functions"`
	Variables  []string `json:"variables"`
	Structures []string `json:"structures"`
}

// Empty reports whether every group is empty.
func (g ContextGroups) Empty() bool {
	return len(g.Functions) == 0 && len(g.Variables) == 0 && len(g.Structures) == 0
}

// Names returns the sorted keys of an undefined-element map.
func Names(m map[string]Element) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
