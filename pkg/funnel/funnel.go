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

// Package funnel holds the per-record steps of the mining funnel: admission
// gates, function block extraction, no-op detection, block collapsing and
// mask injection.
//
// Every function here is pure. A step either returns an enriched value or an
// error explaining why the record leaves the funnel; callers count the
// reason and move on. Nothing is retried.
package funnel

import (
	"errors"
	"fmt"
)

// Drop reasons. They label metrics and the per-stage manifest counts.
const (
	ReasonDiffTooLarge     = "diff_too_large"
	ReasonDiffTooLong      = "diff_too_long"
	ReasonMultiFile        = "multi_file"
	ReasonExtension        = "extension"
	ReasonNotSecurity      = "not_security"
	ReasonOracleFailure    = "oracle_failure"
	ReasonOracleFormat     = "oracle_format"
	ReasonFetch            = "fetch_failed"
	ReasonParse            = "parse_error"
	ReasonNoHunks          = "no_hunks"
	ReasonNoFunction       = "no_enclosing_function"
	ReasonNoop             = "noop"
	ReasonMultiBlock       = "multi_block"
	ReasonFunctionTooLong  = "function_too_long"
	ReasonNoDeletion       = "no_deletion"
	ReasonDateUnparseable  = "date_unparseable"
	ReasonDateCutoff       = "date_cutoff"
	ReasonMaskNotFound     = "mask_not_found"
	ReasonMaskCount        = "mask_count"
	ReasonNoUndefined      = "no_undefined_elements"
	ReasonEmptyContext     = "empty_context"
	ReasonLocateOutOfRange = "locate_out_of_range"
)

// ErrParse matches every ParseError.
var ErrParse = errors.New("unparseable input")

// ParseError reports diff, hunk or function-boundary text that could not be
// interpreted.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse: " + e.Reason
	}
	return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// DropError reports a record rejected by a gate or a step.
type DropError struct {
	Reason string
	Detail string
}

func (e *DropError) Error() string {
	if e.Detail == "" {
		return "dropped: " + e.Reason
	}
	return fmt.Sprintf("dropped: %s: %s", e.Reason, e.Detail)
}

// Drop builds a DropError.
func Drop(reason, format string, args ...any) *DropError {
	return &DropError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the drop reason from err. Errors that are neither drops
// nor parse failures report as "error".
func ReasonOf(err error) string {
	var d *DropError
	if errors.As(err, &d) {
		return d.Reason
	}
	var p *ParseError
	if errors.As(err, &p) {
		if p.Reason != "" {
			return p.Reason
		}
		return ReasonParse
	}
	return "error"
}
