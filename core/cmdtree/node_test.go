package cmdtree

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleTokenize() {
	node := Tokenize("cat < in.txt | sort > out.txt &\n")

	fmt.Println(node.Length)
	fmt.Println(node.LocateSplit())
	fmt.Println(node.Argv())

	// Output: 8
	// 7
	// [cat in.txt sort out.txt]
}

func TestTokenize(t *testing.T) {
	cases := map[string]struct {
		line string
		args []string
		ops  []Operator
	}{
		"empty": {
			line: "",
		},
		"whitespace": {
			line: " \t  \n",
		},
		"leaf": {
			line: "echo hi there\n",
			args: []string{"echo", "hi", "there"},
			ops:  []Operator{OpNone, OpNone, OpNone},
		},
		"operators": {
			line: "a | b < c > d &",
			args: []string{"a", "", "b", "", "c", "", "d", ""},
			ops:  []Operator{OpNone, OpPipe, OpNone, OpRedirectIn, OpNone, OpRedirectOut, OpNone, OpBackground},
		},
		"operator-prefix-is-argument": {
			line: "echo >out",
			args: []string{"echo", ">out"},
			ops:  []Operator{OpNone, OpNone},
		},
		"tabs-and-runs": {
			line: "ls\t-l   |\twc",
			args: []string{"ls", "-l", "", "wc"},
			ops:  []Operator{OpNone, OpNone, OpPipe, OpNone},
		},
		"stops-at-newline": {
			line: "echo one\necho two",
			args: []string{"echo", "one"},
			ops:  []Operator{OpNone, OpNone},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			node := Tokenize(tc.line)

			assert.Equal(t, len(tc.args), node.Length)
			assert.Equal(t, tc.args, nilIfEmpty(node.Args[:node.Length]))
			assert.Equal(t, tc.ops, nilIfEmptyOps(node.Ops[:node.Length]))

			// The terminator slot is always present and empty.
			assert.Equal(t, "", node.Args[node.Length])
			assert.Equal(t, OpNone, node.Ops[node.Length])
		})
	}
}

func TestTokenize_leafProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		n := rng.Intn(20)
		var tokens []string
		for j := 0; j < n; j++ {
			tokens = append(tokens, fmt.Sprintf("arg%d", rng.Intn(1000)))
		}

		node := Tokenize(strings.Join(tokens, " ") + "\n")
		assert.Equal(t, n, node.Length)
		assert.Equal(t, n, len(node.Argv()))
		assert.Equal(t, NoSplit, node.LocateSplit())
		for j := 0; j < node.Length; j++ {
			assert.Equal(t, OpNone, node.Ops[j])
		}
	}
}

func TestParseOperator(t *testing.T) {
	for _, tok := range []string{"|", "<", ">", "&"} {
		op, ok := ParseOperator(tok)
		assert.True(t, ok, tok)
		assert.Equal(t, tok, op.String())
	}

	for _, tok := range []string{"", "||", ">>", "&&", "a", ">x", "2>"} {
		_, ok := ParseOperator(tok)
		assert.False(t, ok, tok)
	}
}

func TestLocateSplit(t *testing.T) {
	cases := map[string]int{
		"ls":                 NoSplit,
		"ls -l":              NoSplit,
		"a | b":              1,
		"a | b | c":          3,
		"a > out &":          3,
		"sort < in > out":    3,
		"a & b | c < d":      5,
		"cat < in.txt | wc":  3,
		"a | b > c":          3,
		"> out":              0,
		"echo hi > out.txt":  2,
		"sleep 5 &":          2,
		"false | true":       1,
		"x y z < a b c > d ": 7,
	}

	for line, expected := range cases {
		t.Run(line, func(t *testing.T) {
			assert.Equal(t, expected, Tokenize(line).LocateSplit())
		})
	}
}

func TestLocateSplit_synthetic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 200; i++ {
		tokens, lastOp := randomTokens(rng)
		node := FromTokens(tokens)
		assert.Equal(t, lastOp, node.LocateSplit(), "tokens: %q", tokens)
	}
}

func TestSplit(t *testing.T) {
	node := Tokenize("cat in.txt | sort -r > out.txt")
	node.Split(node.LocateSplit())

	assert.Equal(t, []string{"cat", "in.txt", "|", "sort", "-r"}, node.Left.Tokens())
	assert.Equal(t, []string{"out.txt"}, node.Right.Tokens())

	// The receiver isn't modified.
	assert.Equal(t, 7, node.Length)
	assert.Equal(t, "cat in.txt | sort -r > out.txt", node.String())

	// Splitting again replaces the children.
	oldLeft := node.Left
	node.Split(2)
	assert.NotSame(t, oldLeft, node.Left)
	assert.Equal(t, []string{"cat", "in.txt"}, node.Left.Tokens())
	assert.Equal(t, []string{"sort", "-r", ">", "out.txt"}, node.Right.Tokens())

	node.Free()
	assert.Nil(t, node.Left)
	assert.Nil(t, node.Right)
}

func TestSplit_edges(t *testing.T) {
	t.Run("trailing-operator", func(t *testing.T) {
		node := Tokenize("sleep 5 &")
		node.Split(2)

		assert.Equal(t, 2, node.Left.Length)
		assert.Equal(t, 0, node.Right.Length)
		assert.True(t, node.Right.Empty())
	})

	t.Run("leading-operator", func(t *testing.T) {
		node := Tokenize("> out")
		node.Split(0)

		assert.Equal(t, 0, node.Left.Length)
		assert.Equal(t, "", node.Left.Program())
		assert.Equal(t, "out", node.Right.Program())
	})
}

func TestSplit_preservesSize(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		tokens, _ := randomTokens(rng)
		node := FromTokens(tokens)

		for index := 0; index < node.Length; index++ {
			node.Split(index)
			assert.Equal(t, node.Length-1, node.Left.Length+node.Right.Length, "tokens: %q index: %d", tokens, index)
		}
	}
}

func TestLeaves_roundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	check := func(t *testing.T, node *Node) {
		t.Helper()
		var joined []string
		for _, leaf := range node.Leaves() {
			assert.True(t, leaf.IsLeaf())
			joined = append(joined, leaf.Argv()...)
		}
		assert.Equal(t, node.Argv(), joined)
		// Decomposition works on a copy.
		assert.Nil(t, node.Left)
	}

	check(t, Tokenize("a b | c d | e > f &"))

	for i := 0; i < 200; i++ {
		tokens, _ := randomTokens(rng)
		check(t, FromTokens(tokens))
	}
}

func TestFromTokens_roundTrip(t *testing.T) {
	line := "grep -v foo < in | sort | uniq -c > out &"
	node := Tokenize(line)

	assert.Equal(t, strings.Fields(line), node.Tokens())
	assert.Equal(t, node.Tokens(), FromTokens(node.Tokens()).Tokens())
	assert.True(t, node.Has(OpBackground))
	assert.False(t, Tokenize("ls -l").Has(OpBackground))
}

// randomTokens builds a random token list and returns the index of its last
// operator.
func randomTokens(rng *rand.Rand) ([]string, int) {
	ops := []string{"|", "<", ">", "&"}
	lastOp := NoSplit

	var tokens []string
	for j, n := 0, rng.Intn(15); j < n; j++ {
		if rng.Intn(3) == 0 {
			tokens = append(tokens, ops[rng.Intn(len(ops))])
			lastOp = j
		} else {
			tokens = append(tokens, fmt.Sprintf("w%d", j))
		}
	}
	return tokens, lastOp
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func nilIfEmptyOps(s []Operator) []Operator {
	if len(s) == 0 {
		return nil
	}
	return s
}
