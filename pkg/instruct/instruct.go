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

// Package instruct turns labeled records into instruction-tuning examples.
//
// Every record yields two examples: a locate example asking for the
// vulnerable segments of the prefix function, and a locate_explain example
// asking why the located segments are vulnerable. The combined list is
// shuffled with a seeded generator so an export is reproducible.
package instruct

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/seccorpus/internal/output"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// Example is one instruction/response pair.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// Template is the instruction and input layout of one example kind. Input
// may reference {prefix}, {context} and {locate}.
type Template struct {
	System string `yaml:"system_prompt" json:"system_prompt"`
	User   string `yaml:"user_message" json:"user_message"`
}

// Templates hold both example kinds.
type Templates struct {
	Locate        Template `yaml:"locate" json:"locate"`
	LocateExplain Template `yaml:"locate_explain" json:"locate_explain"`
}

const locateSystem = `You are a software security expert. Given a C function and the definitions it depends on, identify the code segments that contain a vulnerability.

Respond with one entry per segment:
Code Block N:
- Function Name: <name or [unknown]>
- Code Snippet: <exact lines from the function>
- Line Numbers: [start-end] relative to the function, or [unknown]`

const locateUser = `Function:
` + "```" + `
{prefix}
` + "```" + `

Context:
` + "```" + `
{context}
` + "```"

const explainSystem = `You are a software security expert. Given a C function, the code segments identified as vulnerable and the definitions it depends on, explain why each segment is vulnerable.

Respond with:
- Root Cause: <precise cause>
- Impact: <consequence if exploited>`

const explainUser = `Function:
` + "```" + `
{prefix}
` + "```" + `

Vulnerable Code Segments:
` + "```" + `
{locate}
` + "```" + `

Context:
` + "```" + `
{context}
` + "```"

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	return Templates{
		Locate:        Template{System: locateSystem, User: locateUser},
		LocateExplain: Template{System: explainSystem, User: explainUser},
	}
}

// LoadTemplates reads templates from a YAML or JSON file. Kinds missing
// from the file keep their defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read templates: %w", err)
	}
	var file Templates
	if err := yaml.Unmarshal(data, &file); err != nil {
		return t, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if file.Locate.System != "" || file.Locate.User != "" {
		t.Locate = file.Locate
	}
	if file.LocateExplain.System != "" || file.LocateExplain.User != "" {
		t.LocateExplain = file.LocateExplain
	}
	return t, nil
}

func (t Template) render(prefix, context, locate string) Example {
	r := strings.NewReplacer(
		"{prefix}", strings.TrimSpace(prefix),
		"{context}", strings.TrimSpace(context),
		"{locate}", strings.TrimSpace(locate),
	)
	return Example{Instruction: t.System, Input: r.Replace(t.User)}
}

// Assemble builds two examples per labeled record and shuffles them with
// seed. Records without both labels are skipped.
func Assemble(recs []record.CommitRecord, t Templates, seed uint64) []Example {
	out := make([]Example, 0, 2*len(recs))
	for _, r := range recs {
		if r.Locate == "" || r.Explain == "" || len(r.Blocks) != 1 {
			continue
		}
		prefix := r.Block().PrefixText

		loc := t.Locate.render(prefix, r.ContextText, r.Locate)
		loc.Output = strings.TrimSpace(r.Locate)
		out = append(out, loc)

		exp := t.LocateExplain.render(prefix, r.ContextText, r.Locate)
		exp.Output = strings.TrimSpace(r.Explain)
		out = append(out, exp)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// FileName is the export file name for repoID.
func FileName(repoID string) string {
	return strings.ReplaceAll(repoID, "/", "-") + "_train_instruction_list.json"
}

// Write stores examples at path as JSON indented by four spaces.
func Write(path string, examples []Example) error {
	if examples == nil {
		examples = []Example{}
	}
	return output.WriteFile(path, examples, 4)
}
