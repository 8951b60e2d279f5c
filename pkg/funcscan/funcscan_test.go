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

package funcscan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/seccorpus/pkg/funcscan"
	"github.com/kraklabs/seccorpus/pkg/record"
)

const cFile = `/* header { comment */
#include <stdio.h>
#define BRACE {

struct point {
    int x, y;
};

static const int table[] = {
    1, 2, 3,
};

// helper
static int
add(int a,
    int b)
{
    const char *s = "}";
    char c = '{';
    if (a > b) {
        return a;
    }
    return a + b;
}

int main(void) {
    return add(1, 2);
}`

func TestScan_Functions(t *testing.T) {
	table := funcscan.ScanText(cFile)
	fns := table.Functions()
	require.Len(t, fns, 2)

	assert.Equal(t, "add", fns[0].Name)
	assert.Equal(t, record.LineRange{Start: 14, End: 24}, fns[0].Range)
	assert.Equal(t, 17, fns[0].BodyStart)

	assert.Equal(t, "main", fns[1].Name)
	assert.Equal(t, record.LineRange{Start: 26, End: 28}, fns[1].Range)
}

func TestTable_Enclosing(t *testing.T) {
	table := funcscan.ScanText(cFile)

	tests := []struct {
		line  int
		found bool
		name  string
	}{
		{line: 1},
		{line: 6},
		{line: 10},
		{line: 13},
		{line: 14, found: true, name: "add"},
		{line: 21, found: true, name: "add"},
		{line: 24, found: true, name: "add"},
		{line: 25},
		{line: 27, found: true, name: "main"},
		{line: 99},
	}
	for _, tt := range tests {
		fn, ok := table.Enclosing(tt.line).Get()
		assert.Equal(t, tt.found, ok, "line %d", tt.line)
		if tt.found {
			assert.Equal(t, tt.name, fn.Name, "line %d", tt.line)
		}
	}
}

func TestTable_ByNameAndText(t *testing.T) {
	table := funcscan.ScanText(cFile)

	fn, ok := table.ByName("main").Get()
	require.True(t, ok)
	assert.Equal(t, "int main(void) {\n    return add(1, 2);\n}", table.Text(fn.Range))

	_, ok = table.ByName("point").Get()
	assert.False(t, ok)

	assert.Empty(t, table.Text(record.LineRange{Start: 40, End: 50}))
}

func TestScan_TransparentBlocks(t *testing.T) {
	src := `namespace media {
extern "C" {
int Decoder::Reset(int flags) const {
  return flags;
}
}
}  // namespace media`

	table := funcscan.ScanText(src)
	fn, ok := table.Enclosing(4).Get()
	require.True(t, ok)
	assert.Equal(t, "Decoder::Reset", fn.Name)
	assert.Equal(t, record.LineRange{Start: 3, End: 5}, fn.Range)

	byName, ok := table.ByName("Reset").Get()
	require.True(t, ok)
	assert.Equal(t, fn, byName)
}

func TestScan_NotFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "packed struct", src: "__attribute__((packed)) struct hdr {\n  int len;\n};"},
		{name: "designated initializer", src: "static struct ops o = {\n  .open = open_fn(1),\n};"},
		{name: "enum", src: "enum color {\n  RED,\n};"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, funcscan.ScanText(tt.src).Functions())
		})
	}
}

func TestScan_ConditionalSignatures(t *testing.T) {
	src := `#ifdef X
int f(int a) {
#else
int f(int a, int b) {
#endif
  return a;
}

int g(void)
{
#if defined(A)
  if (a) {
#elif defined(B)
  if (b) {
#else
  {
#endif
    return 1;
  }
  return 0;
}`

	fns := funcscan.ScanText(src).Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "f", fns[0].Name)
	assert.Equal(t, record.LineRange{Start: 2, End: 7}, fns[0].Range)
	assert.Equal(t, "g", fns[1].Name)
	assert.Equal(t, record.LineRange{Start: 9, End: 21}, fns[1].Range)

	fn, ok := funcscan.ScanText(src).Enclosing(20).Get()
	require.True(t, ok)
	assert.Equal(t, "g", fn.Name)
}

func TestScan_UnnamedSignature(t *testing.T) {
	src := "int (*get_handler(int id))(void) {\n  return 0;\n}"
	fns := funcscan.ScanText(src).Functions()
	require.Len(t, fns, 1)
	assert.Equal(t, record.UnknownFunction, fns[0].Name)
}

func TestResult_NotFound(t *testing.T) {
	fn, ok := funcscan.NotFound().Get()
	assert.False(t, ok)
	assert.Equal(t, funcscan.Function{}, fn)
}
