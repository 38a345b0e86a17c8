package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const evalCommandName = "__eval"

// evalCmd evaluates a command tree in a new process. The shell starts itself
// with this command whenever a line or a pipeline stage needs its own
// process; it's not meant to be run by hand.
var evalCmd = &cobra.Command{
	Use:                evalCommandName + " TOKEN...",
	Short:              "Evaluate a tokenized line in this process.",
	Hidden:             true,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		ev, err := newEvaluator()
		if err != nil {
			cmd.PrintErrln("jobsh:", err)
			os.Exit(1)
		}

		os.Exit(ev.Main(args))
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
