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

// Package undefined finds the identifiers a function snippet uses without
// declaring them, and validates what the element and classification oracles
// say about those identifiers.
//
// The local scan runs in one of three modes, mirroring the ingestion parser
// modes: tree-sitter (C grammar), a simplified lexical scanner, or auto,
// which prefers tree-sitter and falls back when the snippet does not parse
// cleanly.
package undefined

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/funcscan"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// Mode selects the scanner implementation.
type Mode string

const (
	// ModeTreeSitter parses snippets with the tree-sitter C grammar.
	ModeTreeSitter Mode = "treesitter"

	// ModeSimplified uses a token-level scan. No cgo needed, weaker on
	// unusual declarations.
	ModeSimplified Mode = "simplified"

	// ModeAuto tries tree-sitter first and falls back to the simplified
	// scanner on syntax errors.
	ModeAuto Mode = "auto"
)

// DefaultMode is the scanner mode used when none is configured.
const DefaultMode = ModeAuto

// ParseMode validates a configured mode name. Empty selects DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultMode, nil
	case ModeTreeSitter, ModeSimplified, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown scanner mode %q (valid: auto, treesitter, simplified)", s)
	}
}

var errSyntax = errors.New("snippet has syntax errors")

// ref is one identifier use inside a snippet.
type ref struct {
	name string
	kind record.ElementKind
}

// Scanner enumerates free identifiers. It is safe for concurrent use; each
// call builds its own parser.
type Scanner struct {
	mode   Mode
	logger *slog.Logger
}

// NewScanner creates a scanner. A nil logger uses slog.Default().
func NewScanner(mode Mode, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = DefaultMode
	}
	return &Scanner{mode: mode, logger: logger}
}

// Mode reports the configured mode.
func (s *Scanner) Mode() Mode { return s.mode }

// Free returns the identifiers snippet uses but does not declare, each with
// its kind and the line of file that defines or assigns it (zero when none
// is found).
func (s *Scanner) Free(ctx context.Context, snippet, file string) (map[string]record.Element, error) {
	refs, err := s.refs(ctx, snippet)
	if err != nil {
		return nil, err
	}

	lines := funcscan.Lines(file)
	table := funcscan.Scan(lines)
	out := make(map[string]record.Element, len(refs))
	for _, r := range refs {
		if cur, ok := out[r.name]; ok && kindRank[cur.Kind] >= kindRank[r.kind] {
			continue
		}
		out[r.name] = record.Element{Kind: r.kind}
	}
	for name, el := range out {
		el.Origin = origin(name, el.Kind, lines, table)
		out[name] = el
	}
	return out, nil
}

func (s *Scanner) refs(ctx context.Context, snippet string) ([]ref, error) {
	switch s.mode {
	case ModeSimplified:
		return lexicalRefs(snippet), nil
	case ModeTreeSitter:
		return treeSitterRefs(ctx, []byte(snippet))
	default:
		refs, err := treeSitterRefs(ctx, []byte(snippet))
		if err == nil {
			return refs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug("undefined.scan.fallback", "error", err)
		return lexicalRefs(snippet), nil
	}
}

// kindRank decides the kind of a name used in several ways: p->x and p
// make p a pointer.
var kindRank = map[record.ElementKind]int{
	record.KindMember:   0,
	record.KindVariable: 1,
	record.KindStruct:   2,
	record.KindFunction: 3,
	record.KindPointer:  4,
}
