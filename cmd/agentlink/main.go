// Command agentlink wires the escalation adapter to a terminal chatbot
// shim for manual testing against a live contact center.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/goatkit/agentlink/internal/availability"
	"github.com/goatkit/agentlink/internal/config"
	"github.com/goatkit/agentlink/internal/incontact"
	"github.com/goatkit/agentlink/internal/session"
	"github.com/goatkit/agentlink/internal/store"
)

const version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "agentlink",
		Short:         "Chatbot to contact-center live-agent escalation bridge",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newCheckCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentlink %s\n", version)
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the adapter with a terminal chatbot shim",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			client := incontact.NewClient(cfg.TokenURL, cfg.APIVersion, incontact.WithLogger(logger))
			console := newConsole(cmd.OutOrStdout(), cmd.InOrStdin())
			gate := availability.NewGate(client, cfg,
				availability.WithLogger(logger),
				availability.WithSink(console),
			)

			opts := []session.Option{
				session.WithLogger(logger),
				session.WithGate(gate),
			}
			if cfg.Redis.Addr != "" {
				rdb := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				opts = append(opts, session.WithStore(store.NewRedisStore(rdb)))
			}

			ctrl := session.New(cfg, client, console, opts...)
			ctrl.Attach(console)
			console.ready()
			return console.loop(cmd.Context())
		},
	}
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a one-shot availability decision and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			client := incontact.NewClient(cfg.TokenURL, cfg.APIVersion, incontact.WithLogger(logger))
			console := newConsole(cmd.OutOrStdout(), cmd.InOrStdin())
			gate := availability.NewGate(client, cfg,
				availability.WithLogger(logger),
				availability.WithSink(console),
			)

			decision := gate.Check(cmd.Context())
			if decision.Proceed {
				fmt.Fprintln(cmd.OutOrStdout(), "escalation would proceed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "escalation blocked: %s\n", decision.Reason)
			return nil
		},
	}
}

func setup(configPath string) (*config.Settings, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if cfg.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
