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

package testing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_Commit(t *testing.T) {
	repo := NewRepo(t)
	first := repo.Commit(t, "initial import", Date(2019), map[string]string{"src/copy.c": CopyPrefix})
	second := repo.Commit(t, "Fix buffer overflow in copy", Date(2019), map[string]string{"src/copy.c": CopyFix})

	assert.Len(t, first, 40)
	assert.NotEqual(t, first, second)

	data, err := os.ReadFile(filepath.Join(repo.Path, "src", "copy.c"))
	require.NoError(t, err)
	assert.Equal(t, CopyFix, string(data))

	r, err := git.PlainOpen(repo.Path)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head.Hash().String())
}

func TestCommitFixtures(t *testing.T) {
	assert.True(t, strings.HasPrefix(CopyCommit, "commit "+CopySHA+"\n"))
	assert.Contains(t, CopyCommit, "    Fix buffer overflow in copy\n")
	assert.Contains(t, CopyCommit, "diff --git a/src/copy.c b/src/copy.c\n")
	assert.Equal(t, 1, strings.Count(ParseCommit, "diff --git"))
	assert.Equal(t, 2, strings.Count(ParseCommit, "\n@@ "))
}
