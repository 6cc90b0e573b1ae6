package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/model"
	"github.com/sakif/tinkers/internal/service"
)

func newSnippetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snippet",
		Aliases: []string{"snippets", "s"},
		Short:   "Manage saved snippets",
		Long: `Save, list, select and run named snippets.

Snippets live in the SQLite database at storage.db_path (env DB_PATH). The
most recently added snippet becomes the active one; "snippet use" changes it.`,
	}

	add := &cobra.Command{
		Use:   "add <name> [file]",
		Short: "Save a snippet and make it active",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSnippetAdd,
	}
	add.Flags().StringP("code", "c", "", "Snippet code")
	add.Flags().StringP("lang", "l", "", "Language: php, javascript (default: from file extension)")

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a snippet's code (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnippetShow,
	}

	use := &cobra.Command{
		Use:   "use [id]",
		Short: "Select the active snippet",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnippetUse,
	}
	use.Flags().Bool("clear", false, "Clear the active snippet")

	run := &cobra.Command{
		Use:   "run [id]",
		Short: "Run a saved snippet (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnippetRun,
	}
	run.Flags().Duration("timeout", 0, "Execution timeout (default: from config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List saved snippets",
			Args:    cobra.NoArgs,
			RunE:    runSnippetList,
		},
		add,
		show,
		&cobra.Command{
			Use:     "rm <id>",
			Aliases: []string{"delete"},
			Short:   "Delete a snippet",
			Args:    cobra.ExactArgs(1),
			RunE:    runSnippetRemove,
		},
		use,
		run,
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(store *service.SnippetStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(store)
}

func runSnippetList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *service.SnippetStore) error {
		coll := store.List()
		if len(coll.Snippets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snippets saved.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "\tID\tNAME\tLANGUAGE\tUPDATED")
		for _, s := range coll.Snippets {
			marker := ""
			if coll.ActiveSnippetID != nil && *coll.ActiveSnippetID == s.ID {
				marker = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				marker, s.ID, s.Name, s.Language, s.UpdatedAt.Format(time.DateTime))
		}
		return tw.Flush()
	})
}

func runSnippetAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	languages := newLanguages(cfg)

	code, _ := cmd.Flags().GetString("code")
	lang, _ := cmd.Flags().GetString("lang")

	var filename string
	if len(args) == 2 {
		filename = args[1]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		code = string(data)
	}

	lang, err = detectLanguage(languages, lang, filename)
	if err != nil {
		return err
	}
	spec, err := languages.Resolve(lang)
	if err != nil {
		return err
	}
	if code == "" && filename == "" {
		code = spec.DefaultCode
	}

	return withStore(cmd, func(store *service.SnippetStore) error {
		s, err := store.Add(cmd.Context(), args[0], spec.ID, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) as %s\n", s.Name, s.Language, s.ID)
		return nil
	})
}

func runSnippetShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *service.SnippetStore) error {
		s, err := pick(store, args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), s.Code)
		return nil
	})
}

func runSnippetRemove(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *service.SnippetStore) error {
		if _, ok := store.Get(args[0]); !ok {
			return fmt.Errorf("no snippet with id %s", args[0])
		}
		store.Delete(cmd.Context(), args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runSnippetUse(cmd *cobra.Command, args []string) error {
	clearActive, _ := cmd.Flags().GetBool("clear")
	if clearActive == (len(args) == 1) {
		return fmt.Errorf("give either a snippet id or --clear")
	}

	return withStore(cmd, func(store *service.SnippetStore) error {
		if clearActive {
			store.SetActive(cmd.Context(), nil)
			fmt.Fprintln(cmd.OutOrStdout(), "No active snippet.")
			return nil
		}

		s, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("no snippet with id %s", args[0])
		}
		store.SetActive(cmd.Context(), &s.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Active snippet is now %s (%s)\n", s.Name, s.ID)
		return nil
	})
}

func runSnippetRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := pick(store, args)
	if err != nil {
		return err
	}

	bridge, cleanup, err := newBridge(cfg, newLanguages(cfg), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := cfg.Execution.Timeout
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		timeout = v
	}

	res := execute(cmd.Context(), bridge, timeout, executor.Request{Code: s.Code, Language: s.Language})
	return report(cmd, res)
}

// pick returns the snippet named by args[0], or the active one.
func pick(store *service.SnippetStore, args []string) (*model.Snippet, error) {
	if len(args) == 1 {
		s, ok := store.Get(args[0])
		if !ok {
			return nil, fmt.Errorf("no snippet with id %s", args[0])
		}
		return s, nil
	}

	s, ok := store.GetActive()
	if !ok {
		return nil, fmt.Errorf("no active snippet: pass an id or run \"tinkers snippet use <id>\"")
	}
	return s, nil
}
