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
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// Keywords are the commit-message terms the harvester greps for.
type Keywords struct {
	VulnerabilityTypes []string `yaml:"vulnerability_types"`
	Actions            []string `yaml:"actions"`
	Problems           []string `yaml:"problems"`
}

// DefaultKeywords returns a fresh copy of the built-in keyword groups.
func DefaultKeywords() Keywords {
	return Keywords{
		VulnerabilityTypes: []string{
			"overflow", "underflow", "memory", "free", "malloc", "leak", "uaf",
			"use-after-free", "heap", "stack", "buffer", "bounds", "null", "nullptr",
			"null-pointer", "race", "deadlock", "concurrency", "injection", "sql",
			"xss", "csrf", "integer", "divide", "format", "string", "privilege",
			"permission", "sandbox", "escape",
		},
		Actions: []string{
			"fix", "patch", "repair", "mitigate", "prevent", "protect", "secure",
			"security", "safeguard", "sanitize", "validate", "check", "audit",
			"review", "block", "filter", "exploit", "attack", "threat", "crash",
			"corruption", "bypass", "break", "vulnerable", "vulnerability", "vuln",
			"cve", "advisory", "security-issue",
		},
		Problems: []string{
			"bug", "issue", "defect", "unsafe", "insecure", "dangerous", "missing",
			"improper", "incorrect", "broken", "invalid", "malicious", "unauthorized",
			"unauth", "compromise", "breach", "critical", "severe",
		},
	}
}

// All concatenates the groups (vulnerability types, actions, problems),
// lower-cased and without repeats.
func (k Keywords) All() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{k.VulnerabilityTypes, k.Actions, k.Problems} {
		for _, w := range group {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// Dedupe keeps the first record of every (repo, sha, text) triple.
func Dedupe(recs []record.CommitRecord) []record.CommitRecord {
	type key struct{ repo, sha, text string }
	seen := make(map[key]bool, len(recs))
	out := make([]record.CommitRecord, 0, len(recs))
	for _, r := range recs {
		k := key{r.RepoID, r.SHA, r.RawDiff}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
