package cmdtree

import (
	"strings"
)

// MaxLine is the longest line the shell accepts.
const MaxLine = 4096

// Tokenize splits line on whitespace into a flat node. Anything after the
// first newline is ignored. Empty and whitespace-only lines produce an empty
// node.
func Tokenize(line string) *Node {
	line, _, _ = cut(line, "\n")
	node := FromTokens(strings.Fields(line))
	node.RawLine = line
	return node
}

// FromTokens builds a flat node from pre-split tokens. Tokens that exactly
// match an operator are stored as operators.
func FromTokens(tokens []string) *Node {
	node := newNode(strings.Join(tokens, " "), len(tokens))
	for i, tok := range tokens {
		if op, ok := ParseOperator(tok); ok {
			node.Ops[i] = op
		} else {
			node.Args[i] = tok
		}
	}
	node.setLength()
	return node
}

// cut is strings.Cut, which isn't available in go1.17.
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
