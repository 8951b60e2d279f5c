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

package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// AlignmentError reports oracle results that do not correspond one-to-one
// with the records they were requested for. It aborts the stage.
type AlignmentError struct {
	Stage   record.Stage
	Task    oracle.Task
	Missing []string
	Extra   []string
}

func (e *AlignmentError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d missing (%s)", len(e.Missing), preview(e.Missing)))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("%d unexpected (%s)", len(e.Extra), preview(e.Extra)))
	}
	return fmt.Sprintf("%s: %s results misaligned: %s", e.Stage, e.Task, strings.Join(parts, ", "))
}

func preview(ids []string) string {
	if len(ids) > 3 {
		return strings.Join(ids[:3], ", ") + ", ..."
	}
	return strings.Join(ids, ", ")
}

// join pairs every record with its oracle result by ID.
func join(stage record.Stage, task oracle.Task, recs []record.CommitRecord, results map[string]oracle.Result) ([]oracle.Result, error) {
	out := make([]oracle.Result, len(recs))
	want := make(map[string]bool, len(recs))
	var missing []string
	for i, r := range recs {
		want[r.ID] = true
		res, ok := results[r.ID]
		if !ok {
			missing = append(missing, r.ID)
			continue
		}
		out[i] = res
	}
	var extra []string
	for id := range results {
		if !want[id] {
			extra = append(extra, id)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		return nil, &AlignmentError{Stage: stage, Task: task, Missing: missing, Extra: extra}
	}
	return out, nil
}
