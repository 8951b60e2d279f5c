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
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/kraklabs/seccorpus/pkg/record"
)

// treeSitterRefs parses snippet as a C translation unit and returns every
// identifier use not bound by a parameter or local declaration.
func treeSitterRefs(ctx context.Context, src []byte) ([]ref, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errSyntax
	}

	declared := make(map[string]bool)
	collectDeclared(root, src, declared)

	var refs []ref
	collectRefs(root, src, &refs)

	out := refs[:0]
	for _, r := range refs {
		if !declared[r.name] || r.kind == record.KindMember {
			out = append(out, r)
		}
	}
	return out, nil
}

func collectDeclared(n *sitter.Node, src []byte, declared map[string]bool) {
	switch n.Type() {
	case "function_definition", "parameter_declaration":
		if d := n.ChildByFieldName("declarator"); d != nil {
			if name := declaratorName(d, src); name != "" {
				declared[name] = true
			}
		}
	case "declaration":
		typ := n.ChildByFieldName("type")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if typ != nil && sameNode(child, typ) {
				continue
			}
			if name := declaratorName(child, src); name != "" {
				declared[name] = true
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectDeclared(n.NamedChild(i), src, declared)
	}
}

// declaratorName digs through pointer, array, init and function declarators
// to the declared identifier.
func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n.Content(src)
		case "init_declarator", "pointer_declarator", "array_declarator",
			"function_declarator", "attributed_declarator":
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			if n.NamedChildCount() == 0 {
				return ""
			}
			n = n.NamedChild(0)
		default:
			return ""
		}
	}
	return ""
}

func collectRefs(n *sitter.Node, src []byte, refs *[]ref) {
	switch n.Type() {
	case "identifier":
		*refs = append(*refs, ref{name: n.Content(src), kind: identifierKind(n, src)})
	case "field_identifier":
		if p := n.Parent(); p != nil && p.Type() == "field_expression" {
			*refs = append(*refs, ref{name: n.Content(src), kind: record.KindMember})
		}
	case "type_identifier":
		*refs = append(*refs, ref{name: n.Content(src), kind: record.KindStruct})
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectRefs(n.NamedChild(i), src, refs)
	}
}

func identifierKind(n *sitter.Node, src []byte) record.ElementKind {
	p := n.Parent()
	if p == nil {
		return record.KindVariable
	}
	switch p.Type() {
	case "call_expression":
		if fn := p.ChildByFieldName("function"); fn != nil && sameNode(fn, n) {
			return record.KindFunction
		}
	case "field_expression":
		arg := p.ChildByFieldName("argument")
		field := p.ChildByFieldName("field")
		if arg != nil && field != nil && sameNode(arg, n) {
			op := string(src[arg.EndByte():field.StartByte()])
			if strings.Contains(op, "->") {
				return record.KindPointer
			}
		}
	}
	return record.KindVariable
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
