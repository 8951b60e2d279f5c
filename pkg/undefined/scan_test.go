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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/record"
	"github.com/kraklabs/seccorpus/pkg/undefined"
)

const decodeFn = `static int decode(H264Context *h, int len)
{
    int i;
    AVFrame *frame = h->cur;
    if (len > MAX_LEN)
        return AVERROR_INVALIDDATA;
    for (i = 0; i < len; i++)
        frame->data[i] = lookup(h, i);
    return 0;
}`

const decodeFile = `#include "h264.h"

#define MAX_LEN 64

struct lookup_table {
    int v;
};

static int lookup(H264Context *h, int i)
{
    return h->tab[i];
}

` + decodeFn + "\n"

func TestScanner_Free(t *testing.T) {
	want := map[string]record.Element{
		"H264Context":         {Kind: record.KindStruct},
		"AVFrame":             {Kind: record.KindStruct},
		"cur":                 {Kind: record.KindMember},
		"data":                {Kind: record.KindMember},
		"MAX_LEN":             {Kind: record.KindVariable, Origin: 3},
		"AVERROR_INVALIDDATA": {Kind: record.KindVariable},
		"lookup":              {Kind: record.KindFunction, Origin: 9},
	}

	for _, mode := range []undefined.Mode{undefined.ModeSimplified, undefined.ModeTreeSitter, undefined.ModeAuto} {
		t.Run(string(mode), func(t *testing.T) {
			got, err := undefined.NewScanner(mode, nil).Free(context.Background(), decodeFn, decodeFile)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestScanner_AutoFallsBackOnSyntaxErrors(t *testing.T) {
	masked := "int f(void) {\n<MASK_1>\n    return g(counter);\n}"

	_, err := undefined.NewScanner(undefined.ModeTreeSitter, nil).Free(context.Background(), masked, "")
	require.Error(t, err)

	got, err := undefined.NewScanner(undefined.ModeAuto, nil).Free(context.Background(), masked, "")
	require.NoError(t, err)
	assert.Equal(t, record.KindFunction, got["g"].Kind)
	assert.Equal(t, record.KindVariable, got["counter"].Kind)
	assert.NotContains(t, got, "f")
}

func TestScanner_PointerWinsOverVariable(t *testing.T) {
	src := "void f(void) {\n    use(ctx);\n    ctx->len = 0;\n}"
	got, err := undefined.NewScanner(undefined.ModeSimplified, nil).Free(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, record.KindPointer, got["ctx"].Kind)
	assert.Equal(t, record.KindMember, got["len"].Kind)
}

func TestParseMode(t *testing.T) {
	m, err := undefined.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, undefined.ModeAuto, m)

	m, err = undefined.ParseMode(" TreeSitter ")
	require.NoError(t, err)
	assert.Equal(t, undefined.ModeTreeSitter, m)

	_, err = undefined.ParseMode("clang")
	assert.Error(t, err)
}
