package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/tinkers/internal/config"
)

// errExecutionFailed marks a snippet run that completed but failed. The
// failure has already been printed, so Execute only sets the exit code.
var errExecutionFailed = errors.New("execution failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tinkers",
		Short: "Scratchpad runner for PHP and JavaScript snippets",
		Long: `tinkers - write a short PHP or JavaScript snippet, run it with the
interpreter installed on this machine, and keep the ones worth keeping.

Run code from files, inline strings, or stdin with "tinkers run", manage saved
snippets with "tinkers snippet", or start the local HTTP API with "tinkers serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to a TOML config file")

	root.AddCommand(newServeCmd(), newRunCmd(), newSnippetCmd())
	return root
}

// Execute runs the CLI and exits non-zero on any error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExecutionFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads --config (if given) plus the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
