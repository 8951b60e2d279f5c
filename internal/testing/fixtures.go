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
	"fmt"
	"strings"
)

// CopySHA is the commit id used by CopyCommit.
const CopySHA = "8f3c2a1b9d0e4f5a6b7c8d9e0f1a2b3c4d5e6f70"

// CopyPrefix is src/copy.c before the fix.
const CopyPrefix = `#include <string.h>

static int copy(char *dst, const char *src, int n)
{
    int i;
    for (i = 0; i <= n; i++)
        dst[i] = src[i];
    return i;
}

int main(void)
{
    return 0;
}
`

// CopyFix is src/copy.c after the fix.
const CopyFix = `#include <string.h>

static int copy(char *dst, const char *src, int n)
{
    int i;
    for (i = 0; i < n; i++)
        dst[i] = src[i];
    return i;
}

int main(void)
{
    return 0;
}
`

// CopyHunk is the single hunk turning CopyPrefix into CopyFix.
const CopyHunk = `@@ -3,7 +3,7 @@ static int copy(char *dst, const char *src, int n)
 static int copy(char *dst, const char *src, int n)
 {
     int i;
-    for (i = 0; i <= n; i++)
+    for (i = 0; i < n; i++)
         dst[i] = src[i];
     return i;
 }
`

// CopyCommit is git-show output for the off-by-one fix in src/copy.c.
var CopyCommit = Commit(CopySHA, "Tue Mar 5 10:12:01 2019 +0100",
	"Fix buffer overflow in copy", FileDiff("src/copy.c", CopyHunk))

// ParsePrefix is src/parse.c before a fix touching two places in one
// function.
const ParsePrefix = `int parse(const char *buf, int len)
{
    int a = 0;
    char tmp[8];
    if (len < 0)
        return -1;
    a = buf[0];
    a += 1;
    a += 2;
    a += 3;
    a += 4;
    a += 5;
    a += 6;
    a += 7;
    memcpy(tmp, buf, len);
    return a;
}
`

// ParseFix is src/parse.c after the fix.
const ParseFix = `int parse(const char *buf, int len)
{
    int a = 0;
    char tmp[8];
    if (len <= 0)
        return -1;
    a = buf[0];
    a += 1;
    a += 2;
    a += 3;
    a += 4;
    a += 5;
    a += 6;
    a += 7;
    memcpy(tmp, buf, len > 8 ? 8 : len);
    return a;
}
`

// ParseHunks are the two hunks turning ParsePrefix into ParseFix.
const ParseHunks = `@@ -3,5 +3,5 @@ int parse(const char *buf, int len)
     int a = 0;
     char tmp[8];
-    if (len < 0)
+    if (len <= 0)
         return -1;
     a = buf[0];
@@ -13,5 +13,5 @@ int parse(const char *buf, int len)
     a += 6;
     a += 7;
-    memcpy(tmp, buf, len);
+    memcpy(tmp, buf, len > 8 ? 8 : len);
     return a;
 }
`

// ParseCommit is git-show output for the two-hunk fix in src/parse.c.
var ParseCommit = Commit("aa11bb22cc33dd44ee55ff6600112233445566ab", "Wed Jun 12 08:00:00 2020 +0000",
	"Fix heap overflow in parse", FileDiff("src/parse.c", ParseHunks))

// Commit renders git-show style text: header, indented message, then the
// file diffs.
func Commit(sha, date, message string, files ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", sha)
	b.WriteString("Author: Jane Dev <jane@example.org>\n")
	fmt.Fprintf(&b, "Date:   %s\n\n", date)
	for _, l := range strings.Split(message, "\n") {
		b.WriteString("    " + l + "\n")
	}
	b.WriteString("\n")
	for _, f := range files {
		b.WriteString(f)
	}
	return b.String()
}

// FileDiff renders the section for one modified file.
func FileDiff(path, hunks string) string {
	return fmt.Sprintf("diff --git a/%s b/%s\nindex 1111111..2222222 100644\n--- a/%s\n+++ b/%s\n%s",
		path, path, path, path, hunks)
}
