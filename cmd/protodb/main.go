// Package main provides the protodb binary entry point.
// protodb lists and iterates the protocols declared in a database.yml
// catalog and locates dataset files through a db.yml search space.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/c360studio/protodb/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "protodb"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	catalogPath string
	finderPath  string
	logLevel    string
}

func rootCmd() *cobra.Command {
	var (
		flags globalFlags
		app   *App
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Protocol catalog for speaker and audio datasets",
		Long: `protodb reads protocol declarations from a database.yml catalog and
exposes their train, development and test subsets as record streams.

The catalog is looked up in this order:
- --config flag
- $PROTODB_DATABASE_CONFIG
- database.yml in the current or a parent directory
- ~/.protodb/database.yml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = newAppFromFlags(flags, cmd.ErrOrStderr())
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.catalogPath, "config", "c", "", "Catalog document path (database.yml)")
	cmd.PersistentFlags().StringVar(&flags.finderPath, "finder-config", "", "File finder search space path (db.yml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	appFn := func() *App { return app }

	cmd.AddCommand(
		databasesCmd(appFn),
		tasksCmd(appFn),
		protocolsCmd(appFn),
		iterCmd(appFn),
		findCmd(appFn),
		watchCmd(appFn),
		configCmd(appFn),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newAppFromFlags loads the layered configuration, applies flag overrides and
// configures logging.
func newAppFromFlags(flags globalFlags, stderr io.Writer) (*App, error) {
	// Bootstrap logger used while loading configuration.
	logger := newLogger(stderr, flags.logLevel)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.catalogPath != "" {
		cfg.Catalog.Path = flags.catalogPath
	}
	if flags.finderPath != "" {
		cfg.Finder.Path = flags.finderPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = strings.ToLower(flags.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger = newLogger(stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	return NewApp(cfg, logger), nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
