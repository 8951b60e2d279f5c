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

package oracle

import (
	"fmt"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/llm"
)

// Task names an oracle prompt family.
type Task string

const (
	TaskIntent   Task = "intent"
	TaskElements Task = "elements"
	TaskClassify Task = "classify"
	TaskLocate   Task = "locate"
	TaskExplain  Task = "explain"
)

// Sampling controls generation for one prompt.
type Sampling struct {
	Temperature float64 `yaml:"temperature,omitempty"`
	TopP        float64 `yaml:"top_p,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// Merge returns s with every non-zero field of o applied on top.
func (s Sampling) Merge(o Sampling) Sampling {
	if o.Temperature > 0 {
		s.Temperature = o.Temperature
	}
	if o.TopP > 0 {
		s.TopP = o.TopP
	}
	if o.MaxTokens > 0 {
		s.MaxTokens = o.MaxTokens
	}
	return s
}

// Defaults per task.
var defaultSampling = map[Task]Sampling{
	TaskIntent:   {Temperature: 0.8, TopP: 0.9, MaxTokens: 20480},
	TaskElements: {Temperature: 0.8, TopP: 0.95, MaxTokens: 40960},
	TaskClassify: {Temperature: 0.8, TopP: 0.95, MaxTokens: 40960},
	TaskLocate:   {Temperature: 0.8, TopP: 0.9, MaxTokens: 10240},
	TaskExplain:  {Temperature: 0.8, TopP: 0.9, MaxTokens: 8096},
}

// DefaultSampling returns the sampling parameters a task runs with unless
// overridden.
func DefaultSampling(t Task) Sampling {
	return defaultSampling[t]
}

// Prompt is one system/user pair ready to be sent.
type Prompt struct {
	Task     Task
	System   string
	User     string
	Sampling Sampling
}

func (p Prompt) request(model string, override Sampling) llm.GenerateRequest {
	s := p.Sampling.Merge(override)
	return llm.GenerateRequest{
		System:      p.System,
		User:        p.User,
		Model:       model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		TopP:        s.TopP,
	}
}

func newPrompt(t Task, system, user string) Prompt {
	return Prompt{Task: t, System: system, User: user, Sampling: DefaultSampling(t)}
}

// fenced renders a value the way every prompt embeds code: inside a bare
// fence with blank lines around it.
func fenced(open, s string) string {
	return open + "\n\n" + strings.TrimSpace(s) + "\n\n```"
}

const intentSystem = `You are a security expert specializing in vulnerability analysis. Your task is to analyze a given commit, including its message and code diff, to determine if the commit addresses a security vulnerability exists in prefix code. Follow the steps below for your analysis.

1. Read the commit message and note any description of a flaw, crash, overflow, leak or missing check.
2. Read the code diff and decide whether the change removes a weakness in the code before the commit.
3. Ignore refactoring, formatting, documentation and feature work that do not affect security.
4. Finish with a single line of the form **Answer: yes**, **Answer: no** or **Answer: cannot decide**.`

const intentUser = `
I am providing you with a commit message and the corresponding code diff. Your task is to analyze whether this commit is fixing a security vulnerability based on the following step-by-step process:

1. Check if the commit is a merge commit or if there is no code diff. If either is true, return **Answer: no**.
2. If not, proceed to analyze the commit message for security-related keywords.
3. Examine the code changes based on:
   - Variable Type Analysis
   - Pointer Handling
   - Buffer Management
   - Memory Management
   - Permission and Access Control
   - User Input Validation
   - Data Integrity and Overflow Protection
   - Race Condition Prevention
4. Provide your answer in the following format: **Answer: [yes, no, cannot decide]**.

Here is the commit information:

#### Commit Content:
%s
`

// IntentPrompt asks whether a commit fixes a security vulnerability.
func IntentPrompt(commit string) Prompt {
	return newPrompt(TaskIntent, intentSystem, fmt.Sprintf(intentUser, commit))
}

const elementsSystem = `
Assume you are a software expert specializing in C code. I will provide you with two code snippets:

1) Pre-version code snippet
2) After-version code snippet

### Task 1: Element Extraction
- Identify all elements (functions, structures, variables, constants, etc.) mentioned in both snippets.
- Exclude duplicates.
- Annotate each element with its type:
  - Variable: regular variable
  - Variable, Pointer: pointer variable (e.g., ptr->member)
  - Variable, Member: struct member variable
  - Struct: struct definition
  - Function: function name

**Output format**:  
[name] (type description), one per line.
`

// ElementsPrompt asks for every element mentioned in the prefix and fix
// function snippets.
func ElementsPrompt(prefixSnippet, fixSnippet string) Prompt {
	user := "Here are the snippets:\n\nPre-version code snippet:\n" + fenced("```", prefixSnippet) +
		"\n\nAfter-version code snippet:\n" + fenced("```", fixSnippet)
	return newPrompt(TaskElements, elementsSystem, user)
}

const classifySystem = `
Assume you are a software expert specializing in C code. I will provide you with:

1) A list of elements (functions, structures, variables, constants)
2) The full pre-version code file
3) The full after-version code file

### Task 2: Definition & Origin Location
- Only process elements from input (1).
- Remove all struct member variables from the working set.
- For each remaining element:
  - If it is a regular variable:
    - Find its definition or assignment line in either full code file.
      - If found: output the exact code line and remove it from the variables list.
      - If not found: keep it in the variables list.
  - If it is a pointer variable:
    - Find the line where the pointer is defined; extract the struct type it points to.
    - Add that struct type to the Structures list and remove the pointer variable from Variables.

**Output**:
` + "```" + `

Functions = \[...,]
Variables = \[...,]
Structures = \[...,]

` + "```" + `
`

// ClassifyPrompt asks the oracle to group an element list against the full
// prefix and fix files.
func ClassifyPrompt(elements, prefixFile, fixFile string) Prompt {
	user := "Here is the input:\n\n1) List of elements:\n" + fenced("```", elements) +
		"\n2) Full pre-version code:\n" + fenced("```", prefixFile) +
		"\n3) Full after-version code:\n" + fenced("```", fixFile)
	return newPrompt(TaskClassify, classifySystem, user)
}

const locateSystem = `
You are a software security expert. Your task is to analyze commit information and code diffs to pinpoint the vulnerable segments in the prefix code. Focus only on the vulnerabilities the commit intends to fix, using the commit message, prefix code, and supplied context.

Key requirements:
1. **Assume fix code is unavailable**: infer vulnerability purely from prefix code and commit description.
2. **Sensitive operations**: Pay attention to memory handling, input processing, file/network operations.
3. **Data flow**: Trace untrusted data paths to potential misuse.
4. **Control points**: Highlight conditionals, loops, or branches that may be insecure.

**Line Number Rules**:
- Line numbers must refer **only to the prefix code** provided.
- Do **not** use diff-based or commit-based line numbers.
- If you cannot determine line numbers, use ` + "`[unknown]`" + `.

**Response Format**:
` + "```" + `

1. Vulnerable Code Blocks and Lines:

* **Code Block 1**:

  * Function Name: <name or [unknown]>
  * Code Snippet:

    ` + "```" + `
    <exact lines from prefix code>
    ` + "```" + `
  * Line Numbers: [start-end] or [unknown]
    ...

` + "```" + `
`

// LabelInput is what the locate and explain prompts are built from.
type LabelInput struct {
	Commit  string
	Prefix  string
	Fix     string
	Context string
}

// LocatePrompt asks for the vulnerable code blocks of the prefix function.
func LocatePrompt(in LabelInput) Prompt {
	user := "\nI will provide:\n1) Commit information (message + diff)\n2) Prefix code (complete function before the fix)\n" +
		"3) Fix code (complete function after the fix)\n4) Context List (definitions of all functions referenced)\n\nInputs:\n\n" +
		"1) Commit Information:\n" + fenced("```", in.Commit) +
		"\n\n2) Prefix Code:\n" + fenced("```", in.Prefix) +
		"\n\n3) Fix Code:\n" + fenced("```", in.Fix) +
		"\n\n4) Context List:\n" + fenced("```", in.Context) + "\n"
	return newPrompt(TaskLocate, locateSystem, user)
}

const explainSystem = `
You are a software security expert. Your task is to explain why identified code segments are vulnerable, based solely on their prefix code context.  

### Analysis Guidelines  
1. **Independent Analysis**  
   - Focus on inherent security weaknesses in the provided code segment.  
   - Do not reference fixes or commit messages.  

2. **Technical Depth**  
   - State the root cause of the vulnerability in precise terms.  
   - Describe potential security impacts if exploited.  

3. **Direct Style**  
   - Omit introductory phrases; present analysis as concise conclusions.  

### Response Format  

1) Code Segment Details:  
   - Function Name: ` + "`<name or [unknown]>`" + `  
   - Code Snippet:  
     ` + "```" + `  
     <exact lines from prefix code>  
     ` + "```" + `  

2) Explanation:  
   - Root Cause: ` + "`<...>`" + `  
   - Impact: ` + "`<...>`" + `  
`

// ExplainPrompt asks for the root cause and impact of located segments.
func ExplainPrompt(in LabelInput, segments string) Prompt {
	user := "\nI will provide you with:  \n1) Commit information (message + diff)  \n2) Identified vulnerable code segments  \n" +
		"3) Prefix code (before fix)  \n4) Fix code (after fix)  \n5) Context list (definitions from prefix & fix)  \n\nInputs:\n\n" +
		"1) Commit Information:\n" + fenced("````", in.Commit) +
		"\n\n2) Vulnerable Code Segments:\n" + fenced("```", segments) +
		"\n\n3) Prefix Code:\n" + fenced("```", in.Prefix) +
		"\n\n4) Fix Code:\n" + fenced("```", in.Fix) +
		"\n\n5) Context List:\n" + fenced("```", in.Context) + "\n"
	return newPrompt(TaskExplain, explainSystem, user)
}
