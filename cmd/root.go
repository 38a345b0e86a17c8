package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/jobsh/core"
	"github.com/josephlewis42/jobsh/core/cmdtree"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string
	exitStatus  int
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobsh"
	}
	return filepath.Join(home, ".jobsh")
}

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("couldn't load config, did you run init?: %w", err)
	}

	return configuration, err
}

// loadConfigOrDefault falls back to the built in configuration if none was
// initialized.
func loadConfigOrDefault() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// newEvaluator creates an evaluator that re-enters this binary through the
// hidden eval command.
func newEvaluator() (*cmdtree.Evaluator, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return cmdtree.NewEvaluator([]string{self, evalCommandName}), nil
}

// openEventLog starts an event session, the returned closer must be called
// when the session ends.
func openEventLog(cfg *config.Configuration, appLogger *log.Logger) (*logger.SessionLogger, io.Closer, error) {
	if !cfg.EventLog {
		return logger.Discard().NewSession(), io.NopCloser(nil), nil
	}

	fd, err := cfg.OpenEventLog()
	if err != nil {
		return nil, nil, err
	}

	session := logger.NewJsonLinesLogRecorder(fd).NewSession()
	if err := session.Record(&logger.Event{Type: logger.EventSessionStart}); err != nil {
		appLogger.Printf("couldn't write event log: %v", err)
	}
	return session, fd, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobsh",
	Short: "A shell with pipes, redirection and job control",
	Long: `An interactive shell that runs whitespace separated commands joined by
the operators | < > and &. Lines containing & run as background jobs that
can be listed with jobs and continued with bg.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		appLogger := log.New(cmd.ErrOrStderr(), "[jobsh] ", 0)

		cfg, err := loadConfigOrDefault()
		if err != nil {
			return err
		}

		ev, err := newEvaluator()
		if err != nil {
			return err
		}

		events, eventsCloser, err := openEventLog(cfg, appLogger)
		if err != nil {
			return err
		}
		defer eventsCloser.Close()

		shell := core.NewShell(cfg, ev, events)

		if cmd.Flags().Changed("command") {
			exitStatus = shell.RunCommand(commandLine)
			return nil
		}

		exitStatus, err = shell.Run()
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single line and exit with its status")
}
