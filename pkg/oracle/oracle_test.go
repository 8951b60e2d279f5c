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

package oracle_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/llm"
	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/record"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want oracle.Answer
	}{
		{"bold", "Analysis...\n**Answer: yes**", oracle.AnswerYes},
		{"plain no", "Answer: no", oracle.AnswerNo},
		{"cannot decide", "Answer: Cannot  Decide", oracle.AnswerCannotDecide},
		{"bracketed", "Answer: [no]", oracle.AnswerNo},
		{"last wins", "Answer: no\nOn reflection, Answer: cannot decide", oracle.AnswerCannotDecide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.ParseAnswer(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := oracle.ParseAnswer("I am not sure.")
	assert.ErrorIs(t, err, oracle.ErrFormat)
}

func TestJudge(t *testing.T) {
	assert.True(t, oracle.Judge("**Answer: yes**").Positive)
	assert.True(t, oracle.Judge("YES, this fixes an overflow").Positive)
	assert.False(t, oracle.Judge("Answer: no").Positive)
	assert.False(t, oracle.Judge("Answer: cannot decide").Positive)
	assert.False(t, oracle.Judge("garbage").Positive)
	assert.Equal(t, "Answer: no", oracle.Judge("Answer: no").Response)
}

func TestParseLocate(t *testing.T) {
	text := `1. Vulnerable Code Blocks and Lines:

* **Code Block 1**:
  * Function Name: copy
  * Code Snippet:
    ` + "```" + `
    memcpy(dst, src, n);
    ` + "```" + `
  * Line Numbers: [4-5]

* **Code Block 2**:
  * Function Name: [unknown]
  * Line Numbers: [unknown]

* **Code Block 3**:
  * **Line Numbers**: [2]
`
	got, err := oracle.ParseLocate(text, 7)
	require.NoError(t, err)
	assert.Equal(t, []record.LineRange{{Start: 4, End: 5}, {Start: 2, End: 2}}, got)
}

func TestParseLocate_Rejects(t *testing.T) {
	_, err := oracle.ParseLocate("  ", 10)
	assert.ErrorIs(t, err, oracle.ErrFormat)

	_, err = oracle.ParseLocate("the bug is in the loop", 10)
	assert.ErrorIs(t, err, oracle.ErrFormat)

	_, err = oracle.ParseLocate("Code Block 1:\n Line Numbers: [8-12]", 10)
	assert.ErrorIs(t, err, oracle.ErrOutOfRange)

	_, err = oracle.ParseLocate("Code Block 1:\n Line Numbers: [5-3]", 10)
	assert.ErrorIs(t, err, oracle.ErrOutOfRange)

	_, err = oracle.ParseLocate("Code Block 1:\n Line Numbers: [lines five]", 10)
	assert.ErrorIs(t, err, oracle.ErrFormat)
}

func TestCheckExplain(t *testing.T) {
	assert.NoError(t, oracle.CheckExplain("2) Explanation:\n - Root Cause: unchecked length"))
	assert.ErrorIs(t, oracle.CheckExplain(""), oracle.ErrFormat)
	assert.ErrorIs(t, oracle.CheckExplain("looks fine"), oracle.ErrFormat)
}

func TestPrompts(t *testing.T) {
	p := oracle.IntentPrompt("commit abc\n\ndiff --git a/x.c b/x.c")
	assert.Equal(t, oracle.TaskIntent, p.Task)
	assert.Contains(t, p.User, "#### Commit Content:\ncommit abc")
	assert.Contains(t, p.User, "**Answer: [yes, no, cannot decide]**")
	assert.Equal(t, oracle.Sampling{Temperature: 0.8, TopP: 0.9, MaxTokens: 20480}, p.Sampling)

	p = oracle.ElementsPrompt("  int a;  ", "int b;")
	assert.Contains(t, p.User, "Pre-version code snippet:\n```\n\nint a;\n\n```")
	assert.Contains(t, p.System, "Variable, Pointer")

	p = oracle.ClassifyPrompt("len (Variable)", "file A", "file B")
	assert.Contains(t, p.User, "1) List of elements:\n```\n\nlen (Variable)\n\n```")
	assert.Contains(t, p.System, `Functions = \[...,]`)
	assert.Equal(t, 0.95, p.Sampling.TopP)

	in := oracle.LabelInput{Commit: "commit", Prefix: "void f() {}", Fix: "void f() { }", Context: "Functions:\n"}
	p = oracle.LocatePrompt(in)
	assert.Contains(t, p.User, "2) Prefix Code:\n```\n\nvoid f() {}\n\n```")
	assert.Contains(t, p.System, "Line Numbers: [start-end] or [unknown]")

	p = oracle.ExplainPrompt(in, "Code Block 1")
	assert.Contains(t, p.User, "1) Commit Information:\n````\n\ncommit\n\n```")
	assert.Contains(t, p.User, "2) Vulnerable Code Segments:\n```\n\nCode Block 1\n\n```")
	assert.Equal(t, 8096, p.Sampling.MaxTokens)
}

func TestSamplingMerge(t *testing.T) {
	base := oracle.DefaultSampling(oracle.TaskLocate)
	got := base.Merge(oracle.Sampling{Temperature: 0.2})
	assert.Equal(t, oracle.Sampling{Temperature: 0.2, TopP: 0.9, MaxTokens: 10240}, got)
}

func TestBatcher(t *testing.T) {
	reqs := make([]oracle.Request, 5)
	for i := range reqs {
		reqs[i] = oracle.Request{ID: fmt.Sprint(i), Prompt: oracle.Prompt{User: strings.Repeat("x", 10)}}
	}

	batches := oracle.NewBatcher(2, 0).Batch(reqs)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, "4", batches[2][0].ID)

	batches = oracle.NewBatcher(0, 25).Batch(reqs)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)

	big := []oracle.Request{{ID: "a", Prompt: oracle.Prompt{User: strings.Repeat("x", 100)}}, reqs[0]}
	batches = oracle.NewBatcher(0, 25).Batch(big)
	require.Len(t, batches, 2)

	assert.Nil(t, oracle.NewBatcher(2, 0).Batch(nil))
}

func requests(n int) []oracle.Request {
	out := make([]oracle.Request, n)
	for i := range out {
		out[i] = oracle.Request{ID: fmt.Sprintf("id-%d", i), Prompt: oracle.IntentPrompt(fmt.Sprintf("commit %d", i))}
	}
	return out
}

func TestRunner_JoinsByID(t *testing.T) {
	mock := &llm.MockProvider{GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		if strings.Contains(req.User, "commit 3") {
			return nil, errors.New("connection reset")
		}
		return &llm.GenerateResponse{Text: "  Answer: no  "}, nil
	}}

	var mu sync.Mutex
	seen := 0
	r := oracle.NewRunner(mock, oracle.RunnerConfig{BatchSize: 2, OnResult: func(oracle.Result) {
		mu.Lock()
		seen++
		mu.Unlock()
	}}, nil)

	got, err := r.Run(context.Background(), requests(5))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 5, mock.Calls())
	assert.Equal(t, 5, seen)

	assert.True(t, got["id-0"].OK())
	assert.Equal(t, "Answer: no", got["id-0"].Text)
	assert.Equal(t, oracle.TaskIntent, got["id-0"].Task)
	assert.False(t, got["id-3"].OK())
	assert.Equal(t, oracle.FailureTransport, got["id-3"].Failure)
	assert.Empty(t, got["id-3"].Text)
}

func TestRunner_BatchTimeout(t *testing.T) {
	mock := &llm.MockProvider{GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		if strings.Contains(req.User, "commit 1") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &llm.GenerateResponse{Text: "Answer: yes"}, nil
	}}
	r := oracle.NewRunner(mock, oracle.RunnerConfig{BatchSize: 4, BatchTimeout: 50 * time.Millisecond}, nil)

	got, err := r.Run(context.Background(), requests(3))
	require.NoError(t, err)
	assert.True(t, got["id-0"].OK())
	assert.True(t, got["id-2"].OK())
	assert.Equal(t, oracle.FailureTimeout, got["id-1"].Failure)
}

func TestRunner_PassesSampling(t *testing.T) {
	var got llm.GenerateRequest
	mock := &llm.MockProvider{GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		got = req
		return &llm.GenerateResponse{Text: "ok"}, nil
	}}
	r := oracle.NewRunner(mock, oracle.RunnerConfig{Model: "m", Sampling: oracle.Sampling{MaxTokens: 64}}, nil)
	_, err := r.Run(context.Background(), []oracle.Request{{ID: "x", Prompt: oracle.ElementsPrompt("a", "b")}})
	require.NoError(t, err)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
	assert.Equal(t, 0.95, got.TopP)
	assert.NotEmpty(t, got.System)
}

func TestRunner_DuplicateIDs(t *testing.T) {
	r := oracle.NewRunner(&llm.MockProvider{}, oracle.RunnerConfig{}, nil)
	_, err := r.Run(context.Background(), []oracle.Request{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestRunner_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := oracle.NewRunner(&llm.MockProvider{}, oracle.RunnerConfig{}, nil)
	_, err := r.Run(ctx, requests(2))
	assert.ErrorIs(t, err, context.Canceled)
}
