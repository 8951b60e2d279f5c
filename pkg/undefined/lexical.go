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

package undefined

import (
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokPunct
)

type token struct {
	text string
	kind tokKind
}

var cKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "const": true, "continue": true,
	"default": true, "do": true, "else": true, "extern": true, "for": true,
	"goto": true, "if": true, "inline": true, "register": true, "restrict": true,
	"return": true, "sizeof": true, "static": true, "switch": true, "typedef": true,
	"volatile": true, "while": true, "struct": true, "union": true, "enum": true,
	"true": true, "false": true, "NULL": true, "nullptr": true,
}

var primitiveTypes = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "bool": true,
	"_Bool": true,
}

// lexicalRefs is the simplified scanner. It recognises declarations by
// shape: a statement that opens with a type (primitive, struct/union/enum
// or a lone identifier followed by another identifier) declares the names
// that follow it.
func lexicalRefs(src string) []ref {
	toks := lex(src)
	declared := make(map[string]bool)
	types := make(map[string]bool)

	bodyStart := indexOf(toks, "{")
	if bodyStart < 0 {
		bodyStart = len(toks)
	}
	declareSignature(toks[:bodyStart], declared, types)
	declareLocals(toks, bodyStart, declared, types)

	var refs []ref
	for i, t := range toks {
		if t.kind != tokIdent || cKeywords[t.text] || primitiveTypes[t.text] {
			continue
		}
		prev, next := peek(toks, i-1), peek(toks, i+1)
		var kind record.ElementKind
		switch {
		case prev == "->" || prev == ".":
			kind = record.KindMember
		case prev == "struct" || prev == "union" || prev == "enum" || types[t.text]:
			kind = record.KindStruct
		case next == "(":
			kind = record.KindFunction
		case next == "->":
			kind = record.KindPointer
		default:
			kind = record.KindVariable
		}
		if kind != record.KindMember && declared[t.text] {
			continue
		}
		refs = append(refs, ref{name: t.text, kind: kind})
	}
	return refs
}

// declareSignature marks the function name and parameter names.
func declareSignature(toks []token, declared, types map[string]bool) {
	open := indexOf(toks, "(")
	if open <= 0 {
		return
	}
	if toks[open-1].kind == tokIdent {
		declared[toks[open-1].text] = true
	}
	markTypes(toks[:open-1], types)

	depth := 0
	var param []token
	for _, t := range toks[open:] {
		switch t.text {
		case "(":
			depth++
			if depth == 1 {
				continue
			}
		case ")":
			depth--
			if depth == 0 {
				declareParam(param, declared, types)
				return
			}
		case ",":
			if depth == 1 {
				declareParam(param, declared, types)
				param = param[:0]
				continue
			}
		}
		param = append(param, t)
	}
}

func declareParam(param []token, declared, types map[string]bool) {
	last := -1
	for i, t := range param {
		if t.kind == tokIdent && !cKeywords[t.text] && !primitiveTypes[t.text] {
			last = i
		}
	}
	if last < 0 {
		return
	}
	// A lone identifier is a type-only parameter ("(AVFrame)").
	idents := 0
	for _, t := range param {
		if t.kind == tokIdent {
			idents++
		}
	}
	if idents > 1 {
		declared[param[last].text] = true
		markTypes(param[:last], types)
	}
}

// declareLocals walks the body statement by statement.
func declareLocals(toks []token, from int, declared, types map[string]bool) {
	start := from + 1
	for i := from + 1; i < len(toks); i++ {
		switch toks[i].text {
		case ";", "{", "}":
			declareStatement(toks[start:i], declared, types)
			start = i + 1
		case "(":
			// for (int i = 0; ...) declares inside the parens.
			if i > 0 && toks[i-1].text == "for" {
				start = i + 1
			}
		}
	}
}

func declareStatement(stmt []token, declared, types map[string]bool) {
	i := 0
	for i < len(stmt) && (stmt[i].text == "static" || stmt[i].text == "const" ||
		stmt[i].text == "volatile" || stmt[i].text == "register") {
		i++
	}
	if i >= len(stmt) || stmt[i].kind != tokIdent {
		return
	}

	switch {
	case stmt[i].text == "struct" || stmt[i].text == "union" || stmt[i].text == "enum":
		if i+1 >= len(stmt) {
			return
		}
		types[stmt[i+1].text] = true
		i += 2
	case primitiveTypes[stmt[i].text]:
		for i < len(stmt) && primitiveTypes[stmt[i].text] {
			i++
		}
	case !cKeywords[stmt[i].text] && i+1 < len(stmt) && (stmt[i+1].kind == tokIdent || stmt[i+1].text == "*"):
		if stmt[i+1].kind == tokIdent && (cKeywords[stmt[i+1].text] || primitiveTypes[stmt[i+1].text]) {
			return
		}
		types[stmt[i].text] = true
		i++
	default:
		return
	}

	// Declarators: skip pointer stars, take the name, then skip to the next
	// top-level comma.
	depth := 0
	expectName := true
	for ; i < len(stmt); i++ {
		t := stmt[i]
		switch t.text {
		case "(", "[":
			depth++
			continue
		case ")", "]":
			depth--
			continue
		case ",":
			if depth == 0 {
				expectName = true
			}
			continue
		case "*", "const":
			continue
		}
		if expectName && depth == 0 && t.kind == tokIdent {
			declared[t.text] = true
			expectName = false
		}
	}
}

func markTypes(toks []token, types map[string]bool) {
	for i, t := range toks {
		if t.kind != tokIdent || cKeywords[t.text] || primitiveTypes[t.text] {
			continue
		}
		if i > 0 && (toks[i-1].text == "struct" || toks[i-1].text == "union" || toks[i-1].text == "enum") {
			types[t.text] = true
			continue
		}
		if i+1 < len(toks) && (toks[i+1].kind == tokIdent || toks[i+1].text == "*") {
			types[t.text] = true
		}
	}
}

func peek(toks []token, i int) string {
	if i < 0 || i >= len(toks) {
		return ""
	}
	return toks[i].text
}

func indexOf(toks []token, text string) int {
	for i, t := range toks {
		if t.text == text {
			return i
		}
	}
	return -1
}

// lex splits C source into identifiers, numbers and punctuation, dropping
// comments, literals and preprocessor lines.
func lex(src string) []token {
	var toks []token
	lineStart := true
	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case ch == '\n':
			lineStart = true
			i++
			continue
		case ch == ' ' || ch == '\t' || ch == '\r':
			i++
			continue
		case ch == '#' && lineStart:
			for i < len(src) && src[i] != '\n' {
				if src[i] == '\\' && i+1 < len(src) && src[i+1] == '\n' {
					i++
				}
				i++
			}
			continue
		}
		lineStart = false

		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return toks
			}
			i += end + 4
		case ch == '"' || ch == '\'':
			i++
			for i < len(src) && src[i] != ch && src[i] != '\n' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case isIdentStart(ch):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{text: src[i:j], kind: tokIdent})
			i = j
		case ch >= '0' && ch <= '9':
			j := i
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{text: src[i:j], kind: tokNumber})
			i = j
		case strings.HasPrefix(src[i:], "->"):
			toks = append(toks, token{text: "->", kind: tokPunct})
			i += 2
		default:
			toks = append(toks, token{text: src[i : i+1], kind: tokPunct})
			i++
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
