package cmdtree

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// LaunchFailure is the exit status of a process that couldn't start its
// program. Pipe parents exit with it if either side reports it, so it reaches
// the root of the tree however deep the pipeline is.
const LaunchFailure = 10

// Evaluator runs command trees.
//
// Go can't fork without exec, so every process the tree needs is created by
// starting Self again with the subtree's tokens appended to the arguments.
// The new process is expected to call Main with those tokens.
type Evaluator struct {
	// Self is the argv prefix that re-enters Main in a new process,
	// Self[0] is the executable path.
	Self []string
	// Env is added to the environment of re-entered processes and removed
	// from the environment of programs.
	Env []string

	// Stdin and Stdout are the streams the current process inherited.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	lookPath func(file string) (string, error)
	execve   func(argv0 string, argv []string, envv []string) error
}

// NewEvaluator creates an Evaluator for the current process.
func NewEvaluator(self []string, env ...string) *Evaluator {
	return &Evaluator{
		Self:     self,
		Env:      env,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		lookPath: exec.LookPath,
		execve:   unix.Exec,
	}
}

// StartOptions changes how the top-level process of a line is created.
type StartOptions struct {
	// NewGroup puts the process in its own process group so signals can be
	// sent to everything it spawns.
	NewGroup bool
}

// Start creates the top-level process for node with the given streams. The
// caller owns the returned process and must wait for it.
func (e *Evaluator) Start(node *Node, stdin, stdout *os.File, opts StartOptions) (*os.Process, error) {
	var sys *syscall.SysProcAttr
	if opts.NewGroup {
		sys = &syscall.SysProcAttr{Setpgid: true}
	}

	proc, err := e.spawn(node, stdin, stdout, sys)
	if err != nil {
		return nil, fmt.Errorf("start %q: %w", node.RawLine, err)
	}
	node.OwnerPID = proc.Pid
	return proc, nil
}

// Main evaluates tokens in the current process against its inherited
// streams and returns the exit status. It only returns if the tree didn't
// replace the process image.
func (e *Evaluator) Main(tokens []string) int {
	node := FromTokens(tokens)
	node.OwnerPID = os.Getpid()
	return e.Evaluate(node, e.Stdin, e.Stdout)
}

// Evaluate runs node with the given input and output.
//
// Leaves replace the current process with their program, so on success a
// leaf never returns. Operators are handled in the current process except
// for pipes, whose two sides each run in a new process.
func (e *Evaluator) Evaluate(node *Node, input, output *os.File) int {
	index := node.LocateSplit()
	if index == NoSplit {
		return e.execLeaf(node, input, output)
	}

	node.Split(index)
	defer node.Free()

	switch op := node.Ops[index]; op {
	case OpBackground:
		// Backgrounding is decided by whoever created this process.
		node.Left.OwnerPID = node.OwnerPID
		return e.Evaluate(node.Left, input, output)

	case OpRedirectIn:
		node.Left.OwnerPID = node.OwnerPID
		fd, err := e.openRedirect(op, node.Right, os.O_RDONLY)
		if err != nil {
			return LaunchFailure
		}
		defer fd.Close()
		return e.Evaluate(node.Left, fd, output)

	case OpRedirectOut:
		node.Left.OwnerPID = node.OwnerPID
		fd, err := e.openRedirect(op, node.Right, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
		if err != nil {
			return LaunchFailure
		}
		defer fd.Close()
		return e.Evaluate(node.Left, input, fd)

	case OpPipe:
		return e.pipe(node, input, output)

	default:
		fmt.Fprintf(e.Stderr, "jobsh: unknown operator %q\n", op.String())
		return LaunchFailure
	}
}

func (e *Evaluator) openRedirect(op Operator, target *Node, flag int) (*os.File, error) {
	name := target.Program()
	if name == "" {
		fmt.Fprintf(e.Stderr, "jobsh: syntax error: expected file after %q\n", op.String())
		return nil, os.ErrInvalid
	}

	fd, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		fmt.Fprintf(e.Stderr, "jobsh: %s: %v\n", name, unwrapPathError(err))
		return nil, err
	}
	return fd, nil
}

func (e *Evaluator) pipe(node *Node, input, output *os.File) int {
	r, w, err := os.Pipe()
	if err != nil {
		fmt.Fprintf(e.Stderr, "jobsh: pipe: %v\n", err)
		return LaunchFailure
	}

	left, err := e.spawn(node.Left, input, w, nil)
	// The write end must only stay open in the writer or the reader never
	// sees EOF.
	w.Close()
	if err != nil {
		r.Close()
		fmt.Fprintf(e.Stderr, "jobsh: %v\n", err)
		return LaunchFailure
	}
	node.Left.OwnerPID = left.Pid

	right, err := e.spawn(node.Right, r, output, nil)
	r.Close()
	if err != nil {
		fmt.Fprintf(e.Stderr, "jobsh: %v\n", err)
		waitExitStatus(left)
		return LaunchFailure
	}
	node.Right.OwnerPID = right.Pid

	leftStatus := waitExitStatus(left)
	rightStatus := waitExitStatus(right)
	if leftStatus == LaunchFailure || rightStatus == LaunchFailure {
		return LaunchFailure
	}
	return rightStatus
}

func (e *Evaluator) execLeaf(node *Node, input, output *os.File) int {
	argv := node.Argv()
	if len(argv) == 0 {
		fmt.Fprintln(e.Stderr, "jobsh: syntax error: missing command")
		return LaunchFailure
	}

	path, err := e.lookPath(argv[0])
	if err != nil {
		fmt.Fprintf(e.Stderr, "jobsh: %s: command not found\n", argv[0])
		return LaunchFailure
	}

	if input != e.Stdin {
		if err := unix.Dup2(int(input.Fd()), unix.Stdin); err != nil {
			fmt.Fprintf(e.Stderr, "jobsh: %s: %v\n", argv[0], err)
			return LaunchFailure
		}
	}
	if output != e.Stdout {
		if err := unix.Dup2(int(output.Fd()), unix.Stdout); err != nil {
			fmt.Fprintf(e.Stderr, "jobsh: %s: %v\n", argv[0], err)
			return LaunchFailure
		}
	}

	err = e.execve(path, argv, e.programEnv())
	fmt.Fprintf(e.Stderr, "jobsh: %s: %v\n", argv[0], err)
	return LaunchFailure
}

func (e *Evaluator) spawn(node *Node, stdin, stdout *os.File, sys *syscall.SysProcAttr) (*os.Process, error) {
	argv := make([]string, 0, len(e.Self)+node.Length)
	argv = append(argv, e.Self...)
	argv = append(argv, node.Tokens()...)

	return os.StartProcess(e.Self[0], argv, &os.ProcAttr{
		Env:   append(os.Environ(), e.Env...),
		Files: []*os.File{stdin, stdout, e.Stderr},
		Sys:   sys,
	})
}

// programEnv is the process environment without the re-entry variables.
func (e *Evaluator) programEnv() []string {
	environ := os.Environ()
	if len(e.Env) == 0 {
		return environ
	}

	skip := make(map[string]bool)
	for _, kv := range e.Env {
		key, _, _ := cut(kv, "=")
		skip[key] = true
	}

	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if key, _, _ := cut(kv, "="); !skip[key] {
			out = append(out, kv)
		}
	}
	return out
}

// waitExitStatus waits for proc and converts its state to a shell exit
// status, signals are reported as 128+signal.
func waitExitStatus(proc *os.Process) int {
	state, err := proc.Wait()
	if err != nil {
		return LaunchFailure
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
