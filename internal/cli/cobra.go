package cli

import (
	"fmt"
	"log/slog"

	"coverforge/internal/config"
	"coverforge/internal/pipeline"
	"coverforge/internal/server"
	"coverforge/internal/storage"
	"coverforge/internal/web"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root Cobra command
func NewRootCmd(cfg *config.Config, log *slog.Logger, store *storage.Store, pipe *pipeline.Pipeline) *cobra.Command {
	root := NewRoot(pipe, cfg, log, store)

	rootCmd := &cobra.Command{
		Use:   "coverforge",
		Short: "Coverforge renders book cover mockups",
		Long: `Coverforge composites flat book cover images onto photographic book
templates, picking the template whose color best matches each cover.`,
	}

	rootCmd.AddCommand(newRenderCmd(root))
	rootCmd.AddCommand(newBatchCmd(root))
	rootCmd.AddCommand(newScanCmd(root))
	rootCmd.AddCommand(newWatchCmd(root))
	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newWebCmd(root))
	rootCmd.AddCommand(newTemplatesCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))

	return rootCmd
}

func newRenderCmd(root *Root) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <cover_image>",
		Short: "Render a mockup for a single cover image",
		Long: `Sample the cover's dominant color, pick the closest template, warp the
cover into the template's book face, and write <name>_book.png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = root.cfg.Paths.OutputDir
			}

			job := pipeline.Job{
				ID:        newID("render"),
				Type:      pipeline.JobMockup,
				InputPath: input,
				Output:    output,
				Options:   map[string]any{"source": "cli"},
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")

	return cmd
}

func newBatchCmd(root *Root) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "batch [covers_directory]",
		Short: "Render mockups for every cover in a directory",
		Long: `Render a mockup for each cover image found under the directory.
Failures are logged and counted; the batch always runs to completion.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := root.cfg.Paths.CoversDir
			if len(args) > 0 {
				input = args[0]
			}
			if output == "" {
				output = root.cfg.Paths.OutputDir
			}

			job := pipeline.Job{
				ID:        newID("batch"),
				Type:      pipeline.JobBatch,
				InputPath: input,
				Output:    output,
				Options:   map[string]any{"source": "cli"},
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")

	return cmd
}

func newScanCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <directory>",
		Short: "Count renderable covers under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := pipeline.Job{
				ID:        newID("scan"),
				Type:      pipeline.JobScan,
				InputPath: args[0],
				Options:   map[string]any{"source": "cli"},
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}
}

func newWatchCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Watch directories and render new covers automatically",
		Long: `Monitor directories for new or changed cover images and queue a render
for each one. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{root.cfg.Paths.CoversDir}
			}
			root.log.Info("watching for new covers", "dirs", dirs)
			return root.watchFn(cmd.Context(), dirs, root.pipeline, root.log)
		},
	}

	return cmd
}

func newServeCmd(root *Root) *cobra.Command {
	var (
		addr       string
		watchPaths []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server with cover monitoring",
		Long: `Start an HTTP server providing APIs for render jobs, results, and cover
uploads. Optionally monitors directories for new covers.

Examples:
  # Basic server
  coverforge serve --addr :8080

  # Server with cover monitoring
  coverforge serve --addr :8080 --watch /covers/incoming`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root.log.Info("starting server", "addr", addr, "watch_paths", watchPaths)

			realPipeline, ok := root.pipeline.(*pipeline.Pipeline)
			if !ok {
				return fmt.Errorf("pipeline unavailable for server startup")
			}

			srv, err := server.NewServer(addr, root.store, realPipeline, watchPaths, root.cfg, root.log)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			root.log.Info("server ready",
				"addr", addr,
				"endpoints", []string{"/healthz", "/jobs", "/renders", "/templates", "/covers", "/stream"},
			)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "server address (host:port)")
	cmd.Flags().StringSliceVar(&watchPaths, "watch", nil, "directories to monitor for new covers")

	return cmd
}

func newWebCmd(root *Root) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start the web dashboard",
		Long: `Start the web dashboard with a live render feed over WebSocket and a
recent-renders view backed by the job database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			realPipeline, ok := root.pipeline.(*pipeline.Pipeline)
			if !ok {
				return fmt.Errorf("pipeline unavailable for dashboard startup")
			}
			dashboard := web.NewWebServer(port, root.store, realPipeline, root.log)
			return dashboard.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8081, "web server port")

	return cmd
}

func newTemplatesCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the configured template palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.cmdTemplates()
		},
	}
}

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  "Show or validate coverforge configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configShow()
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configValidate()
		},
	}

	cmd.AddCommand(showCmd, validateCmd)
	return cmd
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.cmdVersion()
		},
	}
}
