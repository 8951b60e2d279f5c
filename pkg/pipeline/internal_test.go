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
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/record"
)

func TestJoin(t *testing.T) {
	recs := []record.CommitRecord{{ID: "a"}, {ID: "b"}}
	results := map[string]oracle.Result{
		"b": {ID: "b", Text: "second"},
		"a": {ID: "a", Text: "first"},
	}

	got, err := join(record.StageIntent, oracle.TaskIntent, recs, results)
	require.NoError(t, err)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}

func TestJoin_Misaligned(t *testing.T) {
	recs := []record.CommitRecord{{ID: "a"}, {ID: "b"}}
	results := map[string]oracle.Result{
		"a": {ID: "a"},
		"z": {ID: "z"},
	}

	_, err := join(record.StageLabel, oracle.TaskLocate, recs, results)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, []string{"b"}, ae.Missing)
	assert.Equal(t, []string{"z"}, ae.Extra)
	assert.Contains(t, err.Error(), "locate results misaligned")
}

func TestMapOrdered(t *testing.T) {
	in := []int{5, 1, 4, 2, 3}
	var running, peak atomic.Int64

	out, err := MapOrdered(context.Background(), 2, in, func(_ context.Context, i int, v int) int {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		return v*10 + i
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 11, 42, 23, 34}, out)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestMapOrdered_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MapOrdered(ctx, 1, []int{1, 2, 3}, func(context.Context, int, int) int { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageReport_Drops(t *testing.T) {
	var r StageReport
	r.drop("noop")
	r.drop("noop")
	r.dropN("duplicate", 3)
	r.dropN("ignored", 0)
	assert.Equal(t, map[string]int{"noop": 2, "duplicate": 3}, r.Drops)
	assert.Equal(t, 5, r.Dropped())
}

func TestClamp(t *testing.T) {
	s, e := clamp(-1, 10, 4)
	assert.Equal(t, 0, s)
	assert.Equal(t, 4, e)

	s, e = clamp(6, 8, 4)
	assert.Equal(t, 4, s)
	assert.Equal(t, 4, e)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "repository name missing")

	cfg.RepoID = "example/copy"
	require.NoError(t, cfg.Validate())

	cfg.Filter.MaxDiffTokens = 0
	cfg.Context.Scanner = "clang"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_diff_tokens")
	assert.Contains(t, err.Error(), "scanner")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.observeStage(StageReport{Stage: "filter"})
	m.observeOracle(oracle.Result{Task: oracle.TaskIntent})

	m = NewMetrics(nil)
	m.observeStage(StageReport{Stage: "filter", Input: 3, Output: 1, Drops: map[string]int{"noop": 2}})
	m.observeOracle(oracle.Result{Task: oracle.TaskIntent, Failure: oracle.FailureTimeout})
}
