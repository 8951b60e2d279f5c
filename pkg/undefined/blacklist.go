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
	"github.com/kraklabs/seccorpus/pkg/record"
)

// DefaultMinLength is the shortest identifier worth keeping as context.
const DefaultMinLength = 3

// DefaultBlacklist returns a fresh copy of the symbols too common to count
// as context: libc calls, basic types and errno values.
func DefaultBlacklist() []string {
	return []string{
		"strcmp", "strncpy", "strcpy", "strlen", "memset", "memcpy",
		"fprintf", "exit", "malloc", "free", "sizeof", "getenv", "stat",
		"perror", "closesocket", "htons", "sscanf", "strrchr", "strchr",
		"tolower", "toupper",
		"char", "unsigned char", "size_t", "uint16_t", "uint8_t", "NULL",
		"ENOMEM", "EIO", "EINVAL", "EAGAIN", "EPERM", "ENOENT", "EEXIST",
		"EPIPE", "ERANGE", "EACCES", "EFAULT", "EBUSY", "ENODEV", "EOVERFLOW",
		"ETIMEDOUT", "EINTR", "ECANCELED", "EADDRINUSE", "ENOTSUP", "EISDIR",
		"ENOTDIR", "ENOTEMPTY",
	}
}

// Blacklist drops names that carry no context.
type Blacklist struct {
	names  map[string]bool
	minLen int
}

// NewBlacklist builds a filter from names. Names shorter than minLen are
// dropped too; minLen <= 0 selects DefaultMinLength.
func NewBlacklist(names []string, minLen int) *Blacklist {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return &Blacklist{names: m, minLen: minLen}
}

// Allowed reports whether name survives the filter.
func (b *Blacklist) Allowed(name string) bool {
	return len(name) >= b.minLen && !b.names[name]
}

// Filter keeps the allowed names, in order.
func (b *Blacklist) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if b.Allowed(n) {
			out = append(out, n)
		}
	}
	return out
}

// FilterGroups applies Filter to every group.
func (b *Blacklist) FilterGroups(g record.ContextGroups) record.ContextGroups {
	return record.ContextGroups{
		Functions:  b.Filter(g.Functions),
		Variables:  b.Filter(g.Variables),
		Structures: b.Filter(g.Structures),
	}
}

// FilterElements returns a copy of m without the disallowed names.
func (b *Blacklist) FilterElements(m map[string]record.Element) map[string]record.Element {
	out := make(map[string]record.Element, len(m))
	for name, el := range m {
		if b.Allowed(name) {
			out[name] = el
		}
	}
	return out
}
