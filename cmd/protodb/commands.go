package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/c360studio/protodb/annotation"
	"github.com/c360studio/protodb/catalog"
	"github.com/c360studio/protodb/config"
	"github.com/c360studio/protodb/finder"
	"github.com/c360studio/protodb/protocol"
	"github.com/c360studio/protodb/record"
	"github.com/spf13/cobra"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func databasesCmd(app func() *App) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List registered databases and their tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app().LoadCatalog(); err != nil {
				return err
			}
			names, err := catalog.GetDatabases(task)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			for _, name := range names {
				db, err := catalog.GetDatabase(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(db.SortedTasks(), ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Only list databases declaring this task")
	return cmd
}

func tasksCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List tasks and the databases declaring them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app().LoadCatalog(); err != nil {
				return err
			}
			tasks, err := catalog.GetTasks()
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			for _, task := range tasks {
				names, err := catalog.GetDatabases(task)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", task, strings.Join(names, ", "))
			}
			return tw.Flush()
		},
	}
}

func protocolsCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "protocols <database>",
		Short: "List the protocols of a database with their subsets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app().LoadCatalog(); err != nil {
				return err
			}
			db, err := catalog.GetDatabase(args[0])
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			for _, task := range db.Tasks() {
				for _, name := range db.Protocols(task) {
					p, err := db.Protocol(task, name)
					if err != nil {
						return err
					}
					subsets := make([]string, 0, len(p.Subsets()))
					for _, s := range p.Subsets() {
						subsets = append(subsets, string(s))
					}
					fmt.Fprintf(tw, "%s.%s\t%s\t%s\n", task, name, p.Capability, strings.Join(subsets, ", "))
				}
			}
			return tw.Flush()
		},
	}
}

type iterOptions struct {
	fields    []string
	unique    bool
	audio     bool
	annotated bool
}

func iterCmd(app func() *App) *cobra.Command {
	var opts iterOptions

	cmd := &cobra.Command{
		Use:   "iter <Database.Task.Protocol> <subset>",
		Short: "Print the records of a protocol subset",
		Long: `Print one line per record of a protocol subset: its uri followed by the
requested fields. Accessing a field runs its loader, so missing files are
reported here.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.LoadCatalog(); err != nil {
				return err
			}
			p, err := catalog.GetProtocol(args[0])
			if err != nil {
				return err
			}
			subset, ok := protocol.ParseMethodName(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", catalog.ErrUnsupportedSubset, args[1])
			}

			var audio *finder.Finder
			if opts.audio {
				if audio, err = a.Finder(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for r, err := range p.Iter(subset) {
				if err != nil {
					return err
				}
				if audio != nil {
					r.SetLazy(annotation.FieldAudio, audio.Loader())
				}
				line, err := formatRecord(a, r, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", r.URI(), err)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.fields, "field", "f", nil, "Field to print after the uri (repeatable)")
	cmd.Flags().BoolVar(&opts.unique, "unique", false, "Print the unique identifier instead of the uri")
	cmd.Flags().BoolVar(&opts.audio, "audio", false, "Bind the audio field through the file finder")
	cmd.Flags().BoolVar(&opts.annotated, "annotated", false, "Print the annotated duration")
	return cmd
}

func formatRecord(a *App, r *record.Record, opts iterOptions) (string, error) {
	id := r.URI()
	if opts.unique {
		var err error
		if id, err = record.UniqueIdentifier(r); err != nil {
			return "", err
		}
	}

	parts := []string{id}
	for _, field := range opts.fields {
		v, err := r.Get(field)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprint(v))
	}
	if opts.annotated {
		t, err := annotation.Annotated(r, nil, a.logger)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%.3f", t.Duration()))
	}
	return strings.Join(parts, "\t"), nil
}

func findCmd(app func() *App) *cobra.Command {
	var (
		databases []string
		channels  []string
	)

	cmd := &cobra.Command{
		Use:   "find <uri>...",
		Short: "Locate the file of one or more uris",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app().Finder()
			if err != nil {
				return err
			}
			paths, err := f.FindAll(finder.BatchQuery{
				URIs:      args,
				Databases: databases,
				Channels:  channels,
			})
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&databases, "database", "d", nil, "Database of the uri (one value, or one per uri)")
	cmd.Flags().StringSliceVar(&channels, "channel", nil, "Channel of the uri (one value, or one per uri)")
	return cmd
}

func watchCmd(app func() *App) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the catalog whenever database.yml changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if metricsAddr != "" {
				go func() {
					if err := a.ServeMetrics(ctx, metricsAddr); err != nil {
						a.logger.Error("Metrics server failed", "error", err)
					}
				}()
			}

			return a.Watch(ctx, func(event catalog.ReloadEvent) {
				if event.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", event.Err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s: %d databases\n",
					event.Registry.ConfigPath, len(event.Registry.Databases()))
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func configCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage protodb configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(app().logger).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := newTable(cmd.OutOrStdout())
			cfg := app().cfg
			fmt.Fprintf(tw, "catalog.path\t%s\n", cfg.Catalog.Path)
			fmt.Fprintf(tw, "catalog.cache_eager_loaders\t%t\n", cfg.Catalog.CacheEagerLoaders)
			fmt.Fprintf(tw, "catalog.memoize_fields\t%t\n", cfg.Catalog.MemoizeFields)
			fmt.Fprintf(tw, "finder.path\t%s\n", cfg.Finder.Path)
			fmt.Fprintf(tw, "watch.debounce_delay\t%s\n", cfg.Watch.DebounceDelay)
			fmt.Fprintf(tw, "log.level\t%s\n", cfg.Log.Level)
			return tw.Flush()
		},
	})

	return cmd
}
