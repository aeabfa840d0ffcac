package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-indexer/internal/startup"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:          "media-indexer",
	Short:        "Index a media directory tree and render thumbnails",
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan <root>",
	Short: "Run one scan cycle of root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyWorkers(cmd, indexWorkersOverride, &cfg.IndexWorkers); err != nil {
			return err
		}
		cfg.MediaDir = args[0]

		ctx, stop := signal.NotifyContext(withContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := runScan(ctx, cfg)
		if report != nil {
			printScanReport(cmd.OutOrStdout(), report)
		}
		return err
	},
}

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "Render missing thumbnails for indexed images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyWorkers(cmd, thumbnailWorkersOverride, &cfg.ThumbnailWorkers); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(withContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := runThumbnails(ctx, cfg, force)
		if report != nil {
			printThumbnailReport(cmd.OutOrStdout(), report)
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan and render thumbnails periodically with a status server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and report the schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := openApp(withContext(cmd.Context()), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.db.SchemaStatus()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (latest %d)\n", a.db.Dialect(), status.Version, status.Latest)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := startup.GetBuildInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "media-indexer %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		fmt.Fprintf(out, "  platform:   %s/%s\n", info.OS, info.Arch)
	},
}

// Raw --workers values; parsed by loadConfig so "auto" is accepted.
var (
	indexWorkersOverride     string
	thumbnailWorkersOverride string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml, .yaml or .yml)")

	scanCmd.Flags().StringVar(&indexWorkersOverride, "workers", "", `parallel file workers, a number or "auto"`)
	thumbnailsCmd.Flags().StringVar(&thumbnailWorkersOverride, "workers", "", `parallel decode workers, a number or "auto"`)
	thumbnailsCmd.Flags().Bool("force", false, "regenerate thumbnails that already exist")

	rootCmd.AddCommand(scanCmd, thumbnailsCmd, serveCmd, migrateCmd, versionCmd)
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*startup.Config, error) {
	cfg, err := startup.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyWorkers overrides target with the --workers flag when it was given.
func applyWorkers(cmd *cobra.Command, raw string, target *startup.WorkerCount) error {
	if !cmd.Flags().Changed("workers") {
		return nil
	}
	n, err := startup.ParseWorkerCount(raw)
	if err != nil {
		return fmt.Errorf("--workers: %w", err)
	}
	*target = n
	return nil
}

func withContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
