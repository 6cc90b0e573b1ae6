package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/tinkers/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API",
		Long: `Start the JSON API used by editor front-ends.

The server binds to 127.0.0.1:8080 by default. Override with the [server]
section of the config file or the HOST and PORT environment variables.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config), e.g. 127.0.0.1:9000")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	languages := newLanguages(cfg)
	bridge, closeBridge, err := newBridge(cfg, languages, logger)
	if err != nil {
		return err
	}
	defer closeBridge()

	addr := cfg.Server.Addr()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	srv := server.New(server.Config{
		Addr:        addr,
		ExecTimeout: cfg.Execution.Timeout,
	}, store, bridge, languages, logger)

	return srv.Start(ctx)
}
