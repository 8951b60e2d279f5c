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

// Package record defines CommitRecord, the unit of work flowing through the
// mining funnel, together with the hunk, block and element types stages
// attach to it.
//
// Records are enriched append-only. Each stage returns a copy carrying new
// fields and a later Stage tag. Fields written by an earlier stage are never
// rewritten, and internal/contract checks which fields are populated at each
// stage before a snapshot is persisted.
package record

import (
	"fmt"
	"strings"
)

// Stage tags how far a record has travelled through the funnel.
type Stage int

const (
	StageHarvest Stage = iota
	StageFilter
	StageIntent
	StageRefine
	StageMask
	StageContext
	StageLabel
)

var stageNames = [...]string{"harvest", "filter", "intent", "refine", "mask", "context", "label"}

// Stages returns every stage in funnel order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage maps a stage name back to its Stage.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q (valid: %s)", name, strings.Join(stageNames[:], ", "))
}

// MarshalText encodes the stage by name so snapshots stay readable.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CommitRecord is one candidate commit. Field groups are listed in the order
// stages populate them.
type CommitRecord struct {
	// harvest
	ID      string `json:"id"`
	RepoID  string `json:"repo_id"`
	SHA     string `json:"sha"`
	Stage   Stage  `json:"stage"`
	RawDiff string `json:"raw_diff"`

	// filter
	ChangedFile string `json:"changed_file,omitempty"`

	// intent
	Intent *Verdict `json:"intent,omitempty"`

	// refine
	PrefixContent string  `json:"prefix_content,omitempty"`
	FixContent    string  `json:"fix_content,omitempty"`
	Hunks         []Hunk  `json:"hunks,omitempty"`
	Blocks        []Block `json:"blocks,omitempty"`
	CommitYear    int     `json:"commit_year,omitempty"`

	// mask
	MaskSnippet     string             `json:"mask_snippet,omitempty"`
	UndefinedPrefix map[string]Element `json:"undefined_prefix,omitempty"`
	UndefinedFix    map[string]Element `json:"undefined_fix,omitempty"`

	// context
	Elements    []ListedElement `json:"elements,omitempty"`
	Context     *ContextGroups  `json:"context,omitempty"`
	ContextText string          `json:"context_text,omitempty"`

	// label
	Locate       string      `json:"locate,omitempty"`
	LocateRanges []LineRange `json:"locate_ranges,omitempty"`
	Explain      string      `json:"explain,omitempty"`
}

// New creates a harvested record with its stable identity.
func New(repoID, sha, raw string) CommitRecord {
	return CommitRecord{
		ID:      ID(repoID, sha),
		RepoID:  repoID,
		SHA:     sha,
		Stage:   StageHarvest,
		RawDiff: raw,
	}
}

// Advance returns a copy tagged with the next stage. Stages may only move
// forward one step at a time.
func (r CommitRecord) Advance(to Stage) (CommitRecord, error) {
	if to != r.Stage+1 {
		return r, fmt.Errorf("record %s: cannot move from %s to %s", r.SHA, r.Stage, to)
	}
	r.Stage = to
	return r, nil
}

// Block returns the single retained function block. It panics when called
// on a record that has not passed the single-block gate.
func (r CommitRecord) Block() Block {
	if len(r.Blocks) != 1 {
		panic(fmt.Sprintf("record %s has %d blocks", r.SHA, len(r.Blocks)))
	}
	return r.Blocks[0]
}

// ShortSHA is the abbreviated commit id used in logs.
func (r CommitRecord) ShortSHA() string {
	if len(r.SHA) > 12 {
		return r.SHA[:12]
	}
	return r.SHA
}

// Verdict is the intent oracle's judgment of a commit.
type Verdict struct {
	Response string `json:"response"`
	Positive bool   `json:"positive"`
	// Failure is set when no usable response was obtained (timeout,
	// transport error). Failed verdicts are never positive.
	Failure string `json:"failure,omitempty"`
}
