package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/interpreter"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run code once",
		Long: `Execute PHP or JavaScript code with the local interpreter.

Code can be provided via:
  - File argument: tinkers run script.php
  - Inline flag:   tinkers run -l php -c 'echo 1+1;'
  - Stdin:         echo 'console.log(1)' | tinkers run -l javascript

The language is taken from --lang, or guessed from the file extension.
PHP code does not need an opening <?php tag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().StringP("lang", "l", "", "Language: php, javascript (default: from file extension)")
	cmd.Flags().Duration("timeout", 0, "Execution timeout (default: from config)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	languages := newLanguages(cfg)

	code, _ := cmd.Flags().GetString("code")
	lang, _ := cmd.Flags().GetString("lang")

	var source, filename string
	switch {
	case code != "":
		source = code
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		source = string(data)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		source = string(data)
	}

	lang, err = detectLanguage(languages, lang, filename)
	if err != nil {
		return err
	}

	bridge, cleanup, err := newBridge(cfg, languages, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := cfg.Execution.Timeout
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		timeout = v
	}

	res := execute(cmd.Context(), bridge, timeout, executor.Request{Code: source, Language: lang})
	return report(cmd, res)
}

// detectLanguage prefers the explicit flag, then the file extension.
func detectLanguage(languages *interpreter.Registry, lang, filename string) (string, error) {
	if lang != "" {
		return lang, nil
	}
	if filename != "" {
		if spec, ok := languages.ByExtension(filepath.Ext(filename)); ok {
			return spec.ID, nil
		}
	}
	return "", fmt.Errorf("language required: use --lang php or --lang javascript")
}

func execute(ctx context.Context, exec executor.Executor, timeout time.Duration, req executor.Request) *executor.Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return exec.Execute(ctx, req)
}

// report prints a Result the way a terminal user expects: program output on
// stdout, diagnostics on stderr, and errExecutionFailed on failure.
func report(cmd *cobra.Command, res *executor.Result) error {
	fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	if res.Success {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", res.Message)
	return errExecutionFailed
}
