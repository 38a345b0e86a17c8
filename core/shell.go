package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/jobsh/core/cmdtree"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/tty"
)

type Shell struct {
	Config     *config.Configuration
	Evaluator  *cmdtree.Evaluator
	Jobs       *jobs.Table
	Procs      jobs.Processes
	Foreground *Foreground
	Events     *logger.SessionLogger
	Readline   *readline.Instance

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	lastRet int
	history []string

	// Set to true to quit the shell
	Quit bool
}

// NewShell creates a shell that launches lines with ev and uses its streams.
func NewShell(cfg *config.Configuration, ev *cmdtree.Evaluator, events *logger.SessionLogger) *Shell {
	s := &Shell{
		Config:     cfg,
		Evaluator:  ev,
		Procs:      jobs.OS{},
		Foreground: NewForeground(),
		Events:     events,
		Stdin:      ev.Stdin,
		Stdout:     ev.Stdout,
		Stderr:     ev.Stderr,
	}

	s.Jobs = jobs.NewTable(s.Stdout, s.Procs)
	s.Jobs.Colors = tty.NewColorPrinter(cfg.Color, s.Stdout)
	s.Jobs.DrainBytesPerSecond = cfg.DrainBytesPerSecond
	s.Jobs.OnChange = s.logJobStatus

	return s
}

// initReadline sets up interactive line editing and history.
func (s *Shell) initReadline() error {
	cfg := &readline.Config{
		Prompt:          s.Config.Prompt,
		HistoryFile:     s.Config.HistoryPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           readline.NewCancelableStdin(s.Stdin),
		Stdout:          s.Stdout,
		Stderr:          s.Stderr,
	}

	if err := cfg.Init(); err != nil {
		return err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	s.Readline = rl
	return nil
}

// Run reads and executes lines until the input closes or exit is called and
// returns the shell's exit status.
func (s *Shell) Run() (int, error) {
	if err := s.initReadline(); err != nil {
		return 1, err
	}
	defer s.Close()

	stop := s.Foreground.Notify()
	defer stop()

	for !s.Quit {
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			s.Quit = true // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.

		case err != nil:
			log.Printf("Error readline: %v", err)

		default:
			s.history = append(s.history, line)
			s.RunLine(line)
		}

		s.Jobs.Poll()
	}

	return s.lastRet, nil
}

// RunCommand executes a single line the way -c does and returns its exit
// status.
func (s *Shell) RunCommand(line string) int {
	defer s.Close()

	stop := s.Foreground.Notify()
	defer stop()

	s.RunLine(line)
	s.Jobs.Poll()
	return s.lastRet
}

// Close stops every job according to the exit policy and releases the
// shell's resources.
func (s *Shell) Close() error {
	s.Jobs.RemoveAll(jobs.ExitPolicy(s.Config.OnExit))
	s.logEvent(&logger.Event{Type: logger.EventSessionEnd, ExitCode: s.lastRet})

	if s.Readline != nil {
		return s.Readline.Close()
	}
	return nil
}

// LastStatus is the exit status of the last line.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// RunLine executes one line of input. Builtins run in the shell, anything
// else is started as a new process tree.
func (s *Shell) RunLine(line string) {
	if len(line) > cmdtree.MaxLine {
		fmt.Fprintf(s.Stderr, "jobsh: line too long, the limit is %d bytes\n", cmdtree.MaxLine)
		s.lastRet = 1
		return
	}

	line, err := s.expandAlias(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "jobsh: %v\n", err)
		s.lastRet = 1
		return
	}

	node := cmdtree.Tokenize(line)
	if node.Empty() {
		return
	}

	if builtin, ok := AllBuiltins[node.Program()]; ok {
		args := builtinArgs(node)
		s.logEvent(&logger.Event{Type: logger.EventBuiltin, Command: args})
		s.lastRet = builtin.Main(s, args)
		return
	}

	if node.Has(cmdtree.OpBackground) {
		s.launchBackground(node)
	} else {
		s.runForeground(node)
	}
}

// builtinArgs returns the arguments before the first operator.
func builtinArgs(node *cmdtree.Node) []string {
	var out []string
	for i := 0; i < node.Length && node.Ops[i] == cmdtree.OpNone; i++ {
		out = append(out, node.Args[i])
	}
	return out
}

// expandAlias replaces the first word of line if it names an alias. The
// result isn't expanded again.
func (s *Shell) expandAlias(line string) (string, error) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return line, nil
	}

	value, ok := s.Config.Alias(fields[0])
	if !ok {
		return line, nil
	}

	words, err := shlex.Split(value, true)
	if err != nil {
		return "", fmt.Errorf("alias %s: %w", fields[0], err)
	}

	return strings.Join(words, " ") + trimmed[len(fields[0]):], nil
}

func (s *Shell) launchBackground(node *cmdtree.Node) {
	capture, err := jobs.OpenCapture(jobs.CaptureMode(s.Config.Capture), s.Config.CaptureDir)
	if err != nil {
		fmt.Fprintf(s.Stderr, "jobsh: %v\n", err)
		s.lastRet = 1
		return
	}

	// Jobs don't get the terminal, reading it from another process group
	// would stop them.
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		capture.Close()
		fmt.Fprintf(s.Stderr, "jobsh: %v\n", err)
		s.lastRet = 1
		return
	}
	defer devNull.Close()

	proc, err := s.Evaluator.Start(node, devNull, capture, cmdtree.StartOptions{NewGroup: true})
	if err != nil {
		capture.Close()
		fmt.Fprintf(s.Stderr, "jobsh: %v\n", err)
		s.lastRet = cmdtree.LaunchFailure
		return
	}
	// The job table waits on the pid directly.
	_ = proc.Release()

	s.logEvent(&logger.Event{
		Type:       logger.EventRunCommand,
		Command:    node.Tokens(),
		Background: true,
		PID:        node.OwnerPID,
	})

	rec := s.Jobs.Append(node, capture, node.OwnerPID, jobs.Running, true)
	s.Jobs.Launched(rec)
	s.lastRet = 0
}

func (s *Shell) runForeground(node *cmdtree.Node) {
	proc, err := s.Evaluator.Start(node, s.Stdin, s.Stdout, cmdtree.StartOptions{})
	if err != nil {
		fmt.Fprintf(s.Stderr, "jobsh: %v\n", err)
		s.lastRet = cmdtree.LaunchFailure
		return
	}
	pid := node.OwnerPID
	_ = proc.Release()

	s.Foreground.Set(pid)
	state, err := s.Procs.Wait(pid, false)
	stopRequested := s.Foreground.Clear()

	switch {
	case err != nil:
		fmt.Fprintf(s.Stderr, "jobsh: %s: %v\n", node.Program(), err)
		s.lastRet = 1
	case state.Stopped:
		rec := s.Jobs.Promote(node, pid)
		if !stopRequested {
			log.Printf("job %d stopped by %v", rec.ID, state.Signal)
		}
		s.lastRet = 128 + int(state.Signal)
	case state.Signaled:
		s.lastRet = 128 + int(state.Signal)
	default:
		s.lastRet = state.ExitCode
	}

	event := &logger.Event{
		Type:     logger.EventRunCommand,
		Command:  node.Tokens(),
		PID:      pid,
		ExitCode: s.lastRet,
	}
	if s.lastRet == cmdtree.LaunchFailure {
		event.Type = logger.EventLaunchFailure
	}
	s.logEvent(event)
}

func (s *Shell) logJobStatus(rec *jobs.Record) {
	s.logEvent(&logger.Event{
		Type:     logger.EventJobStatus,
		Command:  rec.Command.Tokens(),
		JobID:    rec.ID,
		PID:      rec.PID,
		Status:   rec.Status.String(),
		ExitCode: rec.ExitCode,
	})
}

func (s *Shell) logEvent(event *logger.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Record(event); err != nil {
		log.Printf("couldn't record event: %v", err)
	}
}
