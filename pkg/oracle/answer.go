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

package oracle

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// ErrFormat marks an oracle response that does not follow its grammar.
var ErrFormat = errors.New("oracle response format")

// ErrOutOfRange marks a located line range outside the prefix function.
var ErrOutOfRange = errors.New("located range outside function")

// Answer is the intent oracle's verdict in grammar "Answer: x".
type Answer string

const (
	AnswerYes          Answer = "yes"
	AnswerNo           Answer = "no"
	AnswerCannotDecide Answer = "cannot decide"
)

var answerPattern = regexp.MustCompile(`(?i)answer\s*:\s*[*\[\s]*(yes|no|cannot\s+decide)`)

// ParseAnswer extracts the last "Answer: yes|no|cannot decide" line.
func ParseAnswer(text string) (Answer, error) {
	m := answerPattern.FindAllStringSubmatch(text, -1)
	if len(m) == 0 {
		return "", fmt.Errorf("%w: no answer line", ErrFormat)
	}
	v := strings.Join(strings.Fields(strings.ToLower(m[len(m)-1][1])), " ")
	return Answer(v), nil
}

// Judge turns an intent response into a verdict. Any occurrence of "yes"
// makes the commit a positive; otherwise the answer line decides, and a
// response without one is negative.
func Judge(text string) record.Verdict {
	v := record.Verdict{Response: text}
	if strings.Contains(strings.ToLower(text), "yes") {
		v.Positive = true
		return v
	}
	if a, err := ParseAnswer(text); err == nil {
		v.Positive = a == AnswerYes
	}
	return v
}

var (
	codeBlockPattern = regexp.MustCompile(`(?i)code\s+block\s+\d+`)
	lineNumbers      = regexp.MustCompile(`(?i)line\s+numbers?\s*:?\**\s*:?\s*\[\s*([^\]]*)\]`)
	rangePattern     = regexp.MustCompile(`^(\d+)\s*(?:[-–]\s*(\d+))?$`)
)

// ParseLocate reads the "Line Numbers: [start-end]" entries of a locate
// response. Entries marked [unknown] yield no range. Every range must lie in
// 1..lines, the prefix function's line count.
func ParseLocate(text string, lines int) ([]record.LineRange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty locate response", ErrFormat)
	}
	if !codeBlockPattern.MatchString(text) {
		return nil, fmt.Errorf("%w: no code block in locate response", ErrFormat)
	}

	var out []record.LineRange
	for _, m := range lineNumbers.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" || strings.EqualFold(part, "unknown") {
				continue
			}
			rm := rangePattern.FindStringSubmatch(part)
			if rm == nil {
				return nil, fmt.Errorf("%w: line numbers %q", ErrFormat, part)
			}
			start, _ := strconv.Atoi(rm[1])
			end := start
			if rm[2] != "" {
				end, _ = strconv.Atoi(rm[2])
			}
			if start < 1 || end < start || end > lines {
				return nil, fmt.Errorf("%w: [%d-%d] not in 1-%d", ErrOutOfRange, start, end, lines)
			}
			out = append(out, record.LineRange{Start: start, End: end})
		}
	}
	return out, nil
}

// CheckExplain validates an explain response. It must be non-empty and
// name a root cause.
func CheckExplain(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty explain response", ErrFormat)
	}
	if !strings.Contains(strings.ToLower(text), "root cause") {
		return fmt.Errorf("%w: explain response has no root cause", ErrFormat)
	}
	return nil
}
