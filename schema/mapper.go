package schema

import (
	"fmt"
	"strconv"

	"xdao.co/cred/cred"
)

// Record is a decoded payload. Values are string or []Record.
type Record map[string]any

// cursor is the shared read position over the payload tokens.
type cursor struct {
	tokens []string
	pos    int
}

func (c *cursor) done() bool { return c.pos >= len(c.tokens) }

func (c *cursor) next() string {
	tok := c.tokens[c.pos]
	c.pos++
	return tok
}

// Map assigns tokens to nodes in order.
//
// An empty token is consumed together with its node and the field is left
// out of the record. A group reads a count token and then maps its children
// that many times from the same token stream. Mapping stops quietly when
// either tokens or nodes run out, so shorter payloads from older versions
// decode to partial records.
func Map(tokens []string, nodes []Node) (Record, error) {
	c := &cursor{tokens: tokens}
	return c.mapNodes(nodes)
}

func (c *cursor) mapNodes(nodes []Node) (Record, error) {
	rec := Record{}
	for i := 0; i < len(nodes) && !c.done(); i++ {
		tok := c.next()
		if tok == "" {
			continue
		}
		n := nodes[i]
		if !n.Group {
			rec[n.Name] = tok
			continue
		}
		count, err := parseCount(tok)
		if err != nil {
			return nil, err
		}
		items := []Record{}
		for k := 0; k < count && !c.done(); k++ {
			start := c.pos
			sub, err := c.mapNodes(n.Children)
			if err != nil {
				return nil, err
			}
			if c.pos == start {
				break
			}
			items = append(items, sub)
		}
		rec[n.Name] = items
	}
	return rec, nil
}

func parseCount(tok string) (int, error) {
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, cred.NewError(cred.KindDecode, "CRED-SCH-002", fmt.Sprintf("group count %q is not a non-negative integer", tok))
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, cred.WrapError(cred.KindDecode, "CRED-SCH-002", "group count out of range", err)
	}
	return n, nil
}

// MapPositional names each token "Undefined NN" by its index. It is the
// decoding used when no schema exists.
func MapPositional(tokens []string) Record {
	rec := make(Record, len(tokens))
	for i, tok := range tokens {
		rec[fmt.Sprintf("Undefined %02d", i)] = tok
	}
	return rec
}
