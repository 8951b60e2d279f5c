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

package diff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	md := ParseMetadata(twoFileCommit)
	assert.Equal(t, "1111111111111111111111111111111111111111", md.SHA)
	assert.Equal(t, "Jane Dev <jane@example.org>", md.Author)
	assert.Equal(t, "Tue Mar 5 10:12:01 2019 +0100", md.Date)
	assert.False(t, md.Merge)
	assert.Equal(t, "avcodec/h264: fix out of bounds read\n\nFound-by: fuzzer", md.Message)
}

func TestParseMetadata_Merge(t *testing.T) {
	md := ParseMetadata("commit 2222222222222222222222222222222222222222\nMerge: abc def\nAuthor: x\nDate:   Mon Jan 2 15:04:05 2006 -0700\n\n    Merge branch\n")
	assert.True(t, md.Merge)
}

func TestCommitYear(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{name: "git default format", text: twoFileCommit, want: 2019},
		{name: "two digit day", text: "Date:   Sat Dec 31 23:59:59 2022 -0800\n", want: 2022},
		{name: "zero padded day from go-git", text: "Date:   Mon Jan 02 15:04:05 2023 +0000\n", want: 2023},
		{name: "missing", text: "commit abc\nAuthor: x\n", wantErr: true},
		{name: "iso format is not accepted", text: "Date:   2021-04-01T10:00:00Z\n", wantErr: true},
		{name: "date inside the diff does not count", text: "commit x\n\ndiff --git a/x b/x\n+Date:   Mon Jan 2 15:04:05 2006 -0700\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommitYear(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrDateParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommitYear_UsesCommitterOffset(t *testing.T) {
	year, err := CommitYear("Date:   Sun Jan 1 00:30:00 2023 +0100\n")
	require.NoError(t, err)
	assert.Equal(t, 2023, year, "year must not shift to UTC")
}
