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
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrDateParse marks commit text whose Date: line is missing or unreadable.
// The date gate treats such commits as undated and drops them.
var ErrDateParse = errors.New("commit date unavailable")

// DateLayout is git's default "Date:" format, e.g.
// "Tue Mar 5 10:12:01 2019 +0100".
const DateLayout = "Mon Jan 2 15:04:05 2006 -0700"

var (
	commitLine = regexp.MustCompile(`(?m)^commit ([0-9a-f]{40})`)
	dateLine   = regexp.MustCompile(`(?m)^Date:\s+(.*)$`)
	authorLine = regexp.MustCompile(`(?m)^Author:\s+(.*)$`)
	mergeLine  = regexp.MustCompile(`(?m)^Merge:\s+`)
)

// Metadata is the commit header git prints before the diff.
type Metadata struct {
	SHA     string
	Author  string
	Date    string
	Merge   bool
	Message string
}

// ParseMetadata reads the header of one commit block. Fields that are not
// present are left empty.
func ParseMetadata(text string) Metadata {
	head := Header(text)

	var md Metadata
	if m := commitLine.FindStringSubmatch(head); m != nil {
		md.SHA = m[1]
	}
	if m := authorLine.FindStringSubmatch(head); m != nil {
		md.Author = strings.TrimSpace(m[1])
	}
	if m := dateLine.FindStringSubmatch(head); m != nil {
		md.Date = strings.TrimSpace(m[1])
	}
	md.Merge = mergeLine.MatchString(head)

	// The message is the indented block after the first blank line.
	if idx := strings.Index(head, "\n\n"); idx >= 0 {
		var msg []string
		for _, l := range strings.Split(head[idx+2:], "\n") {
			msg = append(msg, strings.TrimPrefix(l, "    "))
		}
		md.Message = strings.TrimSpace(strings.Join(msg, "\n"))
	}
	return md
}

// Header returns the commit text before the first file section.
func Header(text string) string {
	if i := strings.Index(text, "\ndiff --"); i >= 0 {
		return text[:i+1]
	}
	if strings.HasPrefix(text, "diff --") {
		return ""
	}
	return text
}

// CommitTime parses the commit's Date: line.
func CommitTime(text string) (time.Time, error) {
	m := dateLine.FindStringSubmatch(Header(text))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: no Date: line", ErrDateParse)
	}
	raw := strings.Join(strings.Fields(m[1]), " ")
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrDateParse, raw, err)
	}
	return t, nil
}

// CommitYear is the year of the commit's Date: line, in the committer's
// own offset.
func CommitYear(text string) (int, error) {
	t, err := CommitTime(text)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
}
