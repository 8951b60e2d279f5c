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

package funcscan

import (
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

type braceKind int

const (
	braceOther braceKind = iota
	braceTransparent
	braceFunction
)

// scanner is a single forward pass over the file. It only recognises
// definitions at file scope; anything nested inside a non-transparent brace
// belongs to the enclosing construct.
type scanner struct {
	lines []string
	funcs []Function

	stack  []braceKind
	opaque int

	header      strings.Builder
	headerStart int

	inComment bool
	open      Function

	// conds holds one entry per open #if; true once it has reached an
	// #elif or #else branch. Only the first branch of a conditional is
	// scanned, so alternative signatures cannot unbalance the braces.
	conds []bool
}

func (s *scanner) run() {
	for i := 0; i < len(s.lines); i++ {
		line := s.lines[i]
		if !s.inComment && isPreprocessor(line) {
			s.directive(line)
			for strings.HasSuffix(strings.TrimRight(s.lines[i], " \t"), "\\") && i+1 < len(s.lines) {
				i++
			}
			if s.opaque == 0 {
				s.resetHeader()
			}
			continue
		}
		if s.inAlternative() {
			continue
		}
		s.scanLine(line, i+1)
		if s.opaque == 0 {
			s.header.WriteByte(' ')
		}
	}
}

// directive updates the conditional stack for one preprocessor line.
func (s *scanner) directive(line string) {
	word := strings.TrimLeft(strings.TrimPrefix(strings.TrimLeft(line, " \t"), "#"), " \t")
	if end := strings.IndexFunc(word, func(r rune) bool { return !isIdentByte(byte(r)) || r > 0x7f }); end >= 0 {
		word = word[:end]
	}
	switch word {
	case "if", "ifdef", "ifndef":
		s.conds = append(s.conds, false)
	case "elif", "elifdef", "elifndef", "else":
		if len(s.conds) > 0 {
			s.conds[len(s.conds)-1] = true
		}
	case "endif":
		if len(s.conds) > 0 {
			s.conds = s.conds[:len(s.conds)-1]
		}
	}
}

// inAlternative reports whether the current line lies in an #elif or #else
// branch of any enclosing conditional.
func (s *scanner) inAlternative() bool {
	for _, alt := range s.conds {
		if alt {
			return true
		}
	}
	return false
}

func (s *scanner) scanLine(line string, lineNo int) {
	for j := 0; j < len(line); j++ {
		c := line[j]
		if s.inComment {
			if c == '*' && j+1 < len(line) && line[j+1] == '/' {
				s.inComment = false
				j++
			}
			continue
		}
		switch {
		case c == '/' && j+1 < len(line) && line[j+1] == '/':
			return
		case c == '/' && j+1 < len(line) && line[j+1] == '*':
			s.inComment = true
			j++
			s.appendHeader(' ', lineNo)
		case c == '"' || c == '\'':
			end := skipLiteral(line, j)
			if s.opaque == 0 {
				for k := j; k <= end && k < len(line); k++ {
					s.appendHeader(line[k], lineNo)
				}
			}
			j = end
		case c == '{':
			s.openBrace(lineNo)
		case c == '}':
			s.closeBrace(lineNo)
		case c == ';':
			if s.opaque == 0 {
				s.resetHeader()
			}
		default:
			s.appendHeader(c, lineNo)
		}
	}
}

func (s *scanner) appendHeader(c byte, lineNo int) {
	if s.opaque != 0 {
		return
	}
	if s.headerStart == 0 && c != ' ' && c != '\t' {
		s.headerStart = lineNo
	}
	s.header.WriteByte(c)
}

func (s *scanner) resetHeader() {
	s.header.Reset()
	s.headerStart = 0
}

func (s *scanner) openBrace(lineNo int) {
	if s.opaque != 0 {
		s.stack = append(s.stack, braceOther)
		s.opaque++
		return
	}

	kind, name := classify(s.header.String())
	switch kind {
	case braceTransparent:
		s.stack = append(s.stack, braceTransparent)
	case braceFunction:
		start := s.headerStart
		if start == 0 {
			start = lineNo
		}
		s.open = Function{Name: name, Range: record.LineRange{Start: start}, BodyStart: lineNo}
		s.stack = append(s.stack, braceFunction)
		s.opaque++
	default:
		s.stack = append(s.stack, braceOther)
		s.opaque++
	}
	s.resetHeader()
}

func (s *scanner) closeBrace(lineNo int) {
	if len(s.stack) == 0 {
		return
	}
	kind := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if kind != braceTransparent {
		s.opaque--
	}
	if kind == braceFunction {
		s.open.Range.End = lineNo
		s.funcs = append(s.funcs, s.open)
		s.open = Function{}
	}
	if s.opaque == 0 {
		s.resetHeader()
	}
}

// skipLiteral returns the index of the quote closing the literal opened at
// line[start], or the last index of the line when it is unterminated.
func skipLiteral(line string, start int) int {
	quote := line[start]
	for k := start + 1; k < len(line); k++ {
		switch line[k] {
		case '\\':
			k++
		case quote:
			return k
		}
	}
	return len(line) - 1
}

func isPreprocessor(line string) bool {
	t := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(t, "#")
}

var (
	attributeWords = map[string]bool{
		"__attribute__": true, "__declspec": true, "alignas": true,
		"_Alignas": true, "__asm__": true, "asm": true,
	}
	notNames = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "return": true,
		"sizeof": true, "int": true, "void": true, "char": true, "long": true,
		"short": true, "unsigned": true, "signed": true, "float": true, "double": true,
	}
	controlWords = map[string]bool{
		"if": true, "else": true, "for": true, "while": true, "do": true,
		"switch": true, "case": true, "return": true, "goto": true,
	}
)

// classify decides what the brace following header opens. For functions it
// also returns the defined name, record.UnknownFunction when the signature
// carries none.
func classify(header string) (braceKind, string) {
	h := strings.Join(strings.Fields(header), " ")
	if h == "" {
		return braceOther, ""
	}

	first := leadingWord(h)
	if first == "namespace" || (first == "inline" && strings.HasPrefix(h, "inline namespace")) {
		return braceTransparent, ""
	}
	if first == "extern" {
		rest := strings.TrimSpace(strings.TrimPrefix(h, "extern"))
		if rest == `"C"` || rest == `"C++"` {
			return braceTransparent, ""
		}
	}
	if controlWords[first] || !strings.Contains(h, "(") {
		return braceOther, ""
	}
	if !strings.Contains(h, "operator") && hasTopLevelAssign(h) {
		return braceOther, ""
	}

	last := h[len(h)-1]
	if last != ')' && last != '>' && !isIdentByte(last) {
		return braceOther, ""
	}

	name, groups := signatureName(h)
	if groups == 0 {
		return braceOther, ""
	}
	if name == "" {
		name = record.UnknownFunction
	}
	return braceFunction, name
}

func leadingWord(h string) string {
	end := 0
	for end < len(h) && isIdentByte(h[end]) {
		end++
	}
	return h[:end]
}

func hasTopLevelAssign(h string) bool {
	depth := 0
	for i := 0; i < len(h); i++ {
		switch h[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			prev, next := byte(0), byte(0)
			if i > 0 {
				prev = h[i-1]
			}
			if i+1 < len(h) {
				next = h[i+1]
			}
			if next == '=' || prev == '=' || prev == '!' || prev == '<' || prev == '>' {
				continue
			}
			return true
		}
	}
	return false
}

// signatureName returns the identifier in front of the first top-level
// parameter list, skipping attribute groups, and how many non-attribute
// groups the header has.
func signatureName(h string) (string, int) {
	var name string
	groups := 0
	depth := 0
	for i := 0; i < len(h); i++ {
		switch h[i] {
		case '(':
			if depth == 0 {
				ident := identBefore(h, i)
				if !attributeWords[ident] {
					groups++
					if name == "" && ident != "" && !notNames[ident] {
						name = ident
					}
				}
			}
			depth++
		case ')':
			depth--
		}
	}
	return name, groups
}

// identBefore reads the (possibly ::-qualified) identifier ending just before
// position i, ignoring spaces.
func identBefore(h string, i int) string {
	end := i
	for end > 0 && h[end-1] == ' ' {
		end--
	}
	start := end
	for start > 0 && (isIdentByte(h[start-1]) || h[start-1] == ':' || h[start-1] == '~') {
		start--
	}
	return strings.TrimLeft(h[start:end], ":")
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
