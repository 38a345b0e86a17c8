// Package cmdtree parses shell lines into a binary tree of operators and
// evaluates that tree as a set of OS processes.
package cmdtree

import (
	"strings"
)

// Operator is a single character shell operator.
type Operator rune

const (
	OpNone        Operator = 0
	OpPipe        Operator = '|'
	OpRedirectIn  Operator = '<'
	OpRedirectOut Operator = '>'
	OpBackground  Operator = '&'
)

// NoSplit is returned by LocateSplit for leaf nodes.
const NoSplit = -1

// String implements fmt.Stringer.
func (o Operator) String() string {
	if o == OpNone {
		return ""
	}
	return string(o)
}

// ParseOperator returns the operator spelled by tok. Only exact matches count,
// ">out" is an argument.
func ParseOperator(tok string) (Operator, bool) {
	switch op := Operator(firstRune(tok)); {
	case len(tok) != 1:
		return OpNone, false
	case op == OpPipe, op == OpRedirectIn, op == OpRedirectOut, op == OpBackground:
		return op, true
	default:
		return OpNone, false
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// Node is one level of a command tree.
//
// Args and Ops are index aligned: each populated slot holds either an
// argument or an operator, never both. Children only exist after Split.
type Node struct {
	// RawLine holds the text the node was parsed from.
	RawLine string
	// Args holds argument tokens, "" where the slot is an operator.
	Args []string
	// Ops holds operator tokens, OpNone where the slot is an argument.
	Ops []Operator
	// Length is the number of populated slots.
	Length int
	// OwnerPID is the process responsible for running the node.
	OwnerPID int

	Left  *Node
	Right *Node
}

// IsLeaf reports whether the node can be executed directly.
func (n *Node) IsLeaf() bool {
	return n.LocateSplit() == NoSplit
}

// Empty reports whether the node has nothing to execute.
func (n *Node) Empty() bool {
	return n == nil || n.Length == 0
}

// Program returns the first argument of the node, or "" if the first slot
// isn't an argument.
func (n *Node) Program() string {
	if n.Empty() {
		return ""
	}
	return n.Args[0]
}

// Argv returns the populated arguments of the node in order.
func (n *Node) Argv() []string {
	var out []string
	for i := 0; i < n.Length; i++ {
		if n.Args[i] != "" {
			out = append(out, n.Args[i])
		}
	}
	return out
}

// Has reports whether op occurs anywhere in the node.
func (n *Node) Has(op Operator) bool {
	for i := 0; i < n.Length; i++ {
		if n.Ops[i] == op {
			return true
		}
	}
	return false
}

// LocateSplit returns the index of the rightmost operator of any kind, or
// NoSplit if the node is a leaf.
func (n *Node) LocateSplit() int {
	for i := n.Length - 1; i >= 0; i-- {
		if n.Ops[i] != OpNone {
			return i
		}
	}
	return NoSplit
}

// Split builds Left from the slots before index and Right from the slots
// after it. Existing children are discarded. The receiver's own slots are not
// modified.
func (n *Node) Split(index int) {
	n.Left, n.Right = nil, nil

	left := newNode(n.RawLine, index)
	copy(left.Args, n.Args[:index])
	copy(left.Ops, n.Ops[:index])
	left.setLength()

	rightSize := n.Length - index - 1
	if rightSize < 0 {
		rightSize = 0
	}
	right := newNode(n.RawLine, rightSize)
	if rightSize > 0 {
		copy(right.Args, n.Args[index+1:n.Length])
		copy(right.Ops, n.Ops[index+1:n.Length])
	}
	right.setLength()

	n.Left, n.Right = left, right
}

// Free drops the children of the node.
func (n *Node) Free() {
	n.Left, n.Right = nil, nil
}

// Leaves fully decomposes a copy of the tree rooted at n and returns its
// leaves left to right.
func (n *Node) Leaves() []*Node {
	cp := n.clone()
	var out []*Node
	var walk func(*Node)
	walk = func(node *Node) {
		index := node.LocateSplit()
		if index == NoSplit {
			out = append(out, node)
			return
		}
		node.Split(index)
		walk(node.Left)
		walk(node.Right)
	}
	walk(cp)
	return out
}

// Tokens serializes the populated slots back to tokens.
func (n *Node) Tokens() []string {
	out := make([]string, 0, n.Length)
	for i := 0; i < n.Length; i++ {
		if n.Ops[i] != OpNone {
			out = append(out, n.Ops[i].String())
		} else {
			out = append(out, n.Args[i])
		}
	}
	return out
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return strings.Join(n.Tokens(), " ")
}

// newNode allocates a node with size slots plus the terminator slot.
func newNode(rawLine string, size int) *Node {
	return &Node{
		RawLine: rawLine,
		Args:    make([]string, size+1),
		Ops:     make([]Operator, size+1),
	}
}

// setLength counts slots up to the first one that is neither an argument nor
// an operator.
func (n *Node) setLength() {
	length := 0
	for length < len(n.Args) && (n.Args[length] != "" || n.Ops[length] != OpNone) {
		length++
	}
	n.Length = length
}

func (n *Node) clone() *Node {
	out := newNode(n.RawLine, n.Length)
	copy(out.Args, n.Args[:n.Length])
	copy(out.Ops, n.Ops[:n.Length])
	out.Length = n.Length
	out.OwnerPID = n.OwnerPID
	return out
}
