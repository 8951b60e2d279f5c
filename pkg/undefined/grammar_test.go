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

package undefined_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/record"
	"github.com/kraklabs/seccorpus/pkg/undefined"
)

func TestParseElements(t *testing.T) {
	resp := "Here are the elements:\n```\nlookup (Function)\nh (Variable, Pointer)\ncur (Variable, Member)\n- [H264Context] (Struct)\nMAX_LEN (Variable)\nnot an element\nlookup (Function)\n```\n"

	els, err := undefined.ParseElements(resp)
	require.NoError(t, err)
	assert.Equal(t, []record.ListedElement{
		{Name: "lookup", Kind: record.KindFunction},
		{Name: "h", Kind: record.KindPointer},
		{Name: "cur", Kind: record.KindMember},
		{Name: "H264Context", Kind: record.KindStruct},
		{Name: "MAX_LEN", Kind: record.KindVariable},
	}, els)
	assert.Equal(t, "lookup (Function)\nh (Pointer)\n", undefined.RenderElements(els[:2]))
}

func TestParseElements_Unfenced(t *testing.T) {
	els, err := undefined.ParseElements("len (Variable)\nav_log (Function)")
	require.NoError(t, err)
	assert.Len(t, els, 2)

	_, err = undefined.ParseElements("I could not find any elements.")
	assert.ErrorIs(t, err, undefined.ErrOracleFormat)
}

func TestParseGroups(t *testing.T) {
	resp := "After analysis:\n```\nFunctions = [lookup, av_log()]\nVariables = ['MAX_LEN', \"count\"]\nStructures = [struct H264Context, AVFrame,]\n```\nDone."

	g, err := undefined.ParseGroups(resp)
	require.NoError(t, err)
	assert.Equal(t, record.ContextGroups{
		Functions:  []string{"lookup", "av_log"},
		Variables:  []string{"MAX_LEN", "count"},
		Structures: []string{"H264Context", "AVFrame"},
	}, g)
}

func TestParseGroups_Rejects(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{name: "no fence", resp: "Functions = [a]\nVariables = [b]\nStructures = [c]"},
		{name: "missing closing fence", resp: "```\nFunctions = [lookup]\nVariables = [len]\nStructures = [ctx]\n"},
		{name: "missing group", resp: "```\nFunctions = [lookup]\nVariables = [len]\n```"},
		{name: "empty", resp: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := undefined.ParseGroups(tt.resp)
			assert.ErrorIs(t, err, undefined.ErrOracleFormat)
		})
	}
}

func TestParseGroups_EscapedBracketsAndEmptyGroups(t *testing.T) {
	g, err := undefined.ParseGroups("```\nFunctions = \\[lookup,]\nVariables = \\[]\nStructures = []\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"lookup"}, g.Functions)
	assert.Empty(t, g.Variables)
	assert.Empty(t, g.Structures)
}

func TestBlacklist(t *testing.T) {
	b := undefined.NewBlacklist(undefined.DefaultBlacklist(), 0)

	assert.False(t, b.Allowed("memcpy"))
	assert.False(t, b.Allowed("EINVAL"))
	assert.False(t, b.Allowed("fd"))
	assert.True(t, b.Allowed("len"))
	assert.True(t, b.Allowed("av_log"))

	g := b.FilterGroups(record.ContextGroups{
		Functions:  []string{"memcpy", "lookup"},
		Variables:  []string{"i", "ENOMEM"},
		Structures: []string{"size_t"},
	})
	assert.Equal(t, []string{"lookup"}, g.Functions)
	assert.Empty(t, g.Variables)
	assert.Empty(t, g.Structures)
	assert.False(t, g.Empty())

	m := b.FilterElements(map[string]record.Element{"NULL": {}, "ctx": {}, "priv": {Kind: record.KindMember}})
	assert.Equal(t, map[string]record.Element{"ctx": {}, "priv": {Kind: record.KindMember}}, m)
}

func TestBuildContext(t *testing.T) {
	g := record.ContextGroups{
		Functions:  []string{"lookup", "missing_fn"},
		Variables:  []string{"MAX_LEN"},
		Structures: []string{"lookup_table"},
	}
	got := undefined.BuildContext(g, undefined.Sources{Prefix: decodeFile})

	want := "Functions:\n" +
		"static int lookup(H264Context *h, int i)\n{\n    return h->tab[i];\n}\n" +
		"missing_fn\n" +
		"\n" +
		"Structures:\n" +
		"struct lookup_table {\n    int v;\n};\n" +
		"\n" +
		"Variables:\n" +
		"MAX_LEN: #define MAX_LEN 64"
	assert.Equal(t, want, got)
}

func TestBuildContext_FallsBackToFixFile(t *testing.T) {
	fix := "static void helper(void)\n{\n}\n"
	got := undefined.BuildContext(record.ContextGroups{Functions: []string{"helper"}}, undefined.Sources{Prefix: "", Fix: fix})
	assert.Equal(t, "Functions:\nstatic void helper(void)\n{\n}", got)
}
