// Package schema turns a flat credential payload into a structured record.
//
// A schema text names the payload fields in order. Its first line lists the
// top-level tokens separated by "/". Each further line defines a group:
//
//	label:child1/child2/...
//
// A token matching a defined label is a Group. In the payload, a group is
// preceded by a repetition count and then repeats its children that many
// times. Children may themselves be groups.
package schema

import (
	"strings"

	"xdao.co/cred/cred"
)

// MaxDepth bounds group nesting in a parsed schema.
const MaxDepth = 16

// Node is a Scalar (Children == nil) or a Group.
type Node struct {
	Name     string
	Group    bool
	Children []Node
}

// Scalar returns a scalar node.
func Scalar(name string) Node { return Node{Name: name} }

// Group returns a group node.
func Group(label string, children ...Node) Node {
	return Node{Name: label, Group: true, Children: children}
}

// Parse reads schema text into its top-level nodes. Empty text yields no
// nodes, which callers treat as having no schema.
//
// Group definitions that nothing references are ignored. A label defined
// twice, or one that contains itself, is a cred.KindDecode error.
func Parse(text string) ([]Node, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	top := strings.TrimSpace(lines[0])
	if top == "" {
		return nil, nil
	}

	defs := make(map[string][]string)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, children, ok := strings.Cut(line, ":")
		if !ok {
			return nil, cred.NewError(cred.KindDecode, "CRED-SCH-001", "schema group line has no ':'")
		}
		if _, dup := defs[label]; dup {
			return nil, cred.NewError(cred.KindDecode, "CRED-SCH-003", "schema group "+label+" defined twice")
		}
		defs[label] = strings.Split(children, "/")
	}

	p := parser{defs: defs, active: make(map[string]bool)}
	return p.resolve(strings.Split(top, "/"), 0)
}

type parser struct {
	defs   map[string][]string
	active map[string]bool
}

func (p *parser) resolve(tokens []string, depth int) ([]Node, error) {
	if depth > MaxDepth {
		return nil, cred.NewError(cred.KindDecode, "CRED-SCH-004", "schema nesting too deep")
	}
	nodes := make([]Node, 0, len(tokens))
	for _, tok := range tokens {
		children, ok := p.defs[tok]
		if !ok {
			nodes = append(nodes, Scalar(tok))
			continue
		}
		if p.active[tok] {
			return nil, cred.NewError(cred.KindDecode, "CRED-SCH-005", "schema group "+tok+" contains itself")
		}
		p.active[tok] = true
		sub, err := p.resolve(children, depth+1)
		delete(p.active, tok)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Group(tok, sub...))
	}
	return nodes, nil
}

// String renders nodes back to schema text. Group definitions follow the
// top-level line in first-use order.
func String(nodes []Node) string {
	var defs []string
	seen := make(map[string]bool)
	var walk func([]Node) string
	walk = func(ns []Node) string {
		names := make([]string, len(ns))
		for i, n := range ns {
			names[i] = n.Name
			if n.Group && !seen[n.Name] {
				seen[n.Name] = true
				idx := len(defs)
				defs = append(defs, "")
				defs[idx] = n.Name + ":" + walk(n.Children)
			}
		}
		return strings.Join(names, "/")
	}
	top := walk(nodes)
	return strings.Join(append([]string{top}, defs...), "\n")
}
