// Package cmdtreetest lets a test binary stand in for the shell executable
// when command trees spawn new processes.
package cmdtreetest

import (
	"os"

	"github.com/josephlewis42/jobsh/core/cmdtree"
)

// EnvChild marks a re-entered test binary.
const EnvChild = "JOBSH_CMDTREE_TEST_CHILD"

// Evaluator returns an Evaluator that re-enters the running test binary.
func Evaluator() *cmdtree.Evaluator {
	return cmdtree.NewEvaluator([]string{os.Args[0]}, EnvChild+"=1")
}

// RunChild evaluates the process arguments as a command tree and exits if
// the test binary was started by an Evaluator. Call it first in TestMain.
func RunChild() {
	if os.Getenv(EnvChild) != "1" {
		return
	}
	os.Exit(Evaluator().Main(os.Args[1:]))
}
