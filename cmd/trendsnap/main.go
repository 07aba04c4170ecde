package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TrendSnapshot/internal/app"
	"TrendSnapshot/internal/config"
	"TrendSnapshot/internal/logging"
	"TrendSnapshot/internal/usecase"
)

var (
	dryRun bool
	draft  bool
)

var rootCmd = &cobra.Command{
	Use:   "trendsnap",
	Short: "Weekly trending-news snapshot builder",
	Long: `Builds immutable, ranked snapshots of trending news items and
serves the latest published snapshot to downstream consumers.`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one snapshot build",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		result, err := application.Build(cmd.Context(), usecase.BuildOptions{
			DryRun:  dryRun,
			Publish: !draft,
		})
		if err != nil {
			return err
		}

		printJSON(result)
		if !result.Success {
			application.Close()
			os.Exit(2)
		}
		return nil
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recently published snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		snap, err := application.Latest(cmd.Context())
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no published snapshot exists")
		}
		printJSON(snap)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a published snapshot by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		snap, err := application.ByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no published snapshot with id %s", args[0])
		}
		printJSON(snap)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots past the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		pruned, err := application.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d snapshots\n", pruned)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the snapshot store schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Migrate(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only snapshot API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Serve(signalContext(cmd.Context()))
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run recurring builds on the configured interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		return application.RunScheduler(signalContext(cmd.Context()),
			usecase.BuildOptions{Publish: !draft})
	},
}

func newApp() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, logger)
}

func signalContext(parent context.Context) context.Context {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	_ = cancel // released on process exit
	return ctx
}

func printJSON(payload any) {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return
	}
	fmt.Println(string(encoded))
}

func init() {
	buildCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"compute the snapshot without persisting anything")
	buildCmd.Flags().BoolVar(&draft, "draft", false,
		"finish the snapshot as draft instead of published")
	runCmd.Flags().BoolVar(&draft, "draft", false,
		"finish snapshots as draft instead of published")

	rootCmd.AddCommand(buildCmd, latestCmd, showCmd, pruneCmd,
		migrateCmd, serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
