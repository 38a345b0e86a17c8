package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Exit quits the shell with the given status, or the last status if none
// is given.
func Exit(s *Shell, args []string) int {
	code := s.lastRet
	switch len(args) {
	case 1:
	case 2:
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %s: numeric argument required\n", args[0], args[1])
			code = 2
		} else {
			code = parsed & 0xff
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}

	s.Quit = true
	return code
}

// Jobs lists background and stopped jobs.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "list process IDs in addition to the normal information")
	pidsOnly := opts.Bool('p', "list process IDs only")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: jobs [-lp]")
		fmt.Fprintln(w, "Display status of jobs.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	s.Jobs.List(s.Stdout, jobs.ListOptions{
		Long:     *long,
		PIDsOnly: *pidsOnly,
	})
	return 0
}

// Bg resumes a stopped job in the background.
func Bg(s *Shell, args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "usage: %s ID\n", args[0])
		return 1
	}

	id, err := strconv.Atoi(strings.TrimPrefix(args[1], "%"))
	if err != nil || !s.Jobs.Resume(id) {
		fmt.Fprintln(s.Stderr, "Could Not Resume Command")
		return 1
	}
	return 0
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
		args = append(args, home)
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Display or manipulate the history list")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		if s.Readline != nil {
			s.Readline.Operation.ResetHistory()
		}
		s.history = nil
		return 0
	}

	for i, line := range s.history {
		fmt.Fprintf(s.Stdout, "% 5d  %s\n", i+1, line)
	}
	return 0
}

func Help(s *Shell, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "jobsh, a job control shell")
	fmt.Fprintln(w, "Lines are words separated by whitespace, the operators | < > & must be")
	fmt.Fprintln(w, "separate words. A line containing & runs as a background job.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(BuiltinNames(), "\n"))

	return 0
}

// BuiltinNames returns the sorted names of all builtins.
func BuiltinNames() []string {
	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)
	return builtins
}

func init() {
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
}
