// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/record"
)

func labelled() record.CommitRecord {
	r := record.New("acme/codec", strings.Repeat("ab", 20), "commit ...\ndiff --git a/x.c b/x.c")
	r.ChangedFile = "x.c"
	r.Intent = &record.Verdict{Response: "Answer: yes", Positive: true}
	r.Hunks = []record.Hunk{{OldStart: 3, OldCount: 1, NewStart: 3, NewCount: 1}}
	r.Blocks = []record.Block{{
		Function:    "f",
		PrefixRange: record.LineRange{Start: 1, End: 5},
		FixRange:    record.LineRange{Start: 1, End: 5},
		Changes:     []record.Change{{Removed: []string{"a"}, Added: []string{"b"}, OldLine: 3, NewLine: 3}},
	}}
	r.CommitYear = 2019
	r.MaskSnippet = "void f() {\n<MASK_1>\n}"
	r.UndefinedPrefix = map[string]record.Element{"len": {Kind: record.KindVariable}}
	r.Context = &record.ContextGroups{Variables: []string{"len"}}
	r.ContextText = "Variables:\nlen"
	r.Locate = "Code Block 1: Line Numbers: [2-3]"
	r.LocateRanges = []record.LineRange{{Start: 2, End: 3}}
	r.Explain = "Root Cause: ..."
	r.Stage = record.StageLabel
	return r
}

func TestValidateRecord_Accumulates(t *testing.T) {
	r := labelled()
	assert.True(t, ValidateRecord(record.StageLabel, r).OK)

	tests := []struct {
		name   string
		mutate func(*record.CommitRecord)
		want   string
	}{
		{"bad sha", func(r *record.CommitRecord) { r.SHA = "xyz" }, "invalid sha"},
		{"id mismatch", func(r *record.CommitRecord) { r.ID = "0000" }, "does not match"},
		{"no file", func(r *record.CommitRecord) { r.ChangedFile = "" }, "no changed file"},
		{"negative verdict", func(r *record.CommitRecord) { r.Intent.Positive = false }, "not a positive"},
		{"two blocks", func(r *record.CommitRecord) { r.Blocks = append(r.Blocks, r.Blocks[0]) }, "2 blocks"},
		{"two masks", func(r *record.CommitRecord) { r.MaskSnippet += "<MASK_2>" }, "2 mask placeholders"},
		{"no undefined", func(r *record.CommitRecord) { r.UndefinedPrefix = nil }, "no undefined"},
		{"empty context", func(r *record.CommitRecord) { r.Context = &record.ContextGroups{} }, "empty context"},
		{"range outside", func(r *record.CommitRecord) { r.LocateRanges = []record.LineRange{{Start: 4, End: 9}} }, "outside function"},
		{"no explain", func(r *record.CommitRecord) { r.Explain = " " }, "no explain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := labelled()
			v := *r.Intent
			r.Intent = &v
			tt.mutate(&r)
			res := ValidateRecord(record.StageLabel, r)
			assert.False(t, res.OK)
			assert.Contains(t, res.Message, tt.want)
		})
	}
}

func TestValidateRecord_EarlyStageIgnoresLaterFields(t *testing.T) {
	r := record.New("acme/codec", strings.Repeat("cd", 20), "commit text")
	r.ChangedFile = "x.c"
	r.Stage = record.StageFilter
	assert.True(t, ValidateRecord(record.StageFilter, r).OK)

	res := ValidateRecord(record.StageIntent, r)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "stage tag")
}

func TestValidateSnapshot(t *testing.T) {
	r := labelled()
	require.NoError(t, ValidateSnapshot(record.StageLabel, []record.CommitRecord{r}))

	err := ValidateSnapshot(record.StageLabel, []record.CommitRecord{r, r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSoftLimitBytes(t *testing.T) {
	t.Setenv("SECCORPUS_SOFT_LIMIT_BYTES", "")
	assert.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())

	t.Setenv("SECCORPUS_SOFT_LIMIT_BYTES", "1024")
	assert.Equal(t, 1024, SoftLimitBytes())

	t.Setenv("SECCORPUS_SOFT_LIMIT_BYTES", "-5")
	assert.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())
}
