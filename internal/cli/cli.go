package cli

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"coverforge/internal/config"
	"coverforge/internal/pipeline"
	"coverforge/internal/server"
	"coverforge/internal/storage"
	"coverforge/internal/watch"
)

type pipelineClient interface {
	Submit(job pipeline.Job) error
	Subscribe() (<-chan pipeline.Result, func())
}

type serverFunc func(ctx context.Context, addr string, store *storage.Store, pipe pipelineClient, cfg *config.Config, log *slog.Logger) error

type watchFunc func(ctx context.Context, dirs []string, sub watch.Submitter, log *slog.Logger) error

func defaultServe(ctx context.Context, addr string, store *storage.Store, pipe pipelineClient, cfg *config.Config, log *slog.Logger) error {
	if real, ok := pipe.(*pipeline.Pipeline); ok {
		return server.Serve(ctx, addr, store, real, cfg, log)
	}
	return fmt.Errorf("pipeline does not support server operation")
}

func defaultWatch(ctx context.Context, dirs []string, sub watch.Submitter, log *slog.Logger) error {
	w, err := watch.New(dirs, log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	w.AutoSubmit(ctx, sub)
	return nil
}

// Root wires CLI commands to the pipeline.
type Root struct {
	pipeline pipelineClient
	cfg      *config.Config
	log      *slog.Logger
	store    *storage.Store
	serveFn  serverFunc
	watchFn  watchFunc
}

// NewRoot constructs the CLI root command.
func NewRoot(pl *pipeline.Pipeline, cfg *config.Config, logger *slog.Logger, store *storage.Store) *Root {
	return &Root{
		pipeline: pl,
		cfg:      cfg,
		log:      logger,
		store:    store,
		serveFn:  defaultServe,
		watchFn:  defaultWatch,
	}
}

// Run parses args and dispatches to subcommands.
func (r *Root) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		r.usage()
		return nil
	}

	if args[0] == "--help" || args[0] == "-h" || args[0] == "help" {
		r.usage()
		return nil
	}

	switch args[0] {
	case "render":
		return r.cmdRender(ctx, args[1:])
	case "batch":
		return r.cmdBatch(ctx, args[1:])
	case "scan":
		return r.cmdScan(ctx, args[1:])
	case "watch":
		return r.cmdWatch(ctx, args[1:])
	case "serve":
		return r.cmdServe(ctx, args[1:])
	case "templates":
		return r.cmdTemplates()
	case "config":
		return r.cmdConfig(ctx, args[1:])
	case "version":
		return r.cmdVersion()
	default:
		r.log.Error("unknown command", "command", args[0])
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (r *Root) cmdRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	output := fs.String("output", r.cfg.Paths.OutputDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cover := fs.Arg(0)
	if cover == "" {
		return fmt.Errorf("render requires a cover image")
	}

	job := pipeline.Job{
		ID:        newID("render"),
		Type:      pipeline.JobMockup,
		InputPath: cover,
		Output:    *output,
		Options:   map[string]any{"source": "cli"},
	}
	return r.enqueueAndWait(ctx, job)
}

func (r *Root) cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	output := fs.String("output", r.cfg.Paths.OutputDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	covers := fs.Arg(0)
	if covers == "" {
		covers = r.cfg.Paths.CoversDir
	}

	job := pipeline.Job{
		ID:        newID("batch"),
		Type:      pipeline.JobBatch,
		InputPath: covers,
		Output:    *output,
		Options:   map[string]any{"source": "cli"},
	}
	return r.enqueueAndWait(ctx, job)
}

func (r *Root) cmdScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	input := fs.Arg(0)
	if input == "" {
		return fmt.Errorf("scan requires an input directory")
	}

	job := pipeline.Job{
		ID:        newID("scan"),
		Type:      pipeline.JobScan,
		InputPath: input,
		Options:   map[string]any{"source": "cli"},
	}
	return r.enqueueAndWait(ctx, job)
}

func (r *Root) cmdWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = []string{r.cfg.Paths.CoversDir}
	}
	r.log.Info("watching for new covers", "dirs", dirs)
	return r.watchFn(ctx, dirs, r.pipeline, r.log)
}

func (r *Root) cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return r.serveFn(ctx, *addr, r.store, r.pipeline, r.cfg, r.log)
}

func (r *Root) cmdTemplates() error {
	if len(r.cfg.Render.Palette) == 0 {
		fmt.Fprintln(os.Stdout, "No templates configured")
		return nil
	}
	fmt.Fprintln(os.Stdout, "Configured templates:")
	for _, entry := range r.cfg.Render.Palette {
		fmt.Fprintf(os.Stdout, "  %-8s %-12s %s\n", entry.Name, entry.File, entry.Color)
	}
	return nil
}

func (r *Root) enqueueAndWait(ctx context.Context, job pipeline.Job) error {
	resCh, unsubscribe := r.pipeline.Subscribe()
	defer unsubscribe()
	if err := r.enqueue(ctx, job); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-resCh:
			if !ok {
				return fmt.Errorf("pipeline stopped before completion")
			}
			if res.Job.ID == job.ID {
				if res.Error != nil {
					return res.Error
				}
				return nil
			}
		}
	}
}

func (r *Root) enqueue(ctx context.Context, job pipeline.Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.pipeline.Submit(job); err != nil {
		return err
	}

	r.log.Info("job queued", "type", job.Type, "id", job.ID, "input", job.InputPath)
	return nil
}

func (r *Root) usage() {
	fmt.Fprintf(os.Stdout, `Coverforge - Book Cover Mockup Pipeline

Usage:
  coverforge <command> [options] [arguments]

Processing Commands:
  render       Render a mockup for a single cover image
  batch        Render mockups for every cover in a directory
  scan         Count renderable covers under a directory
  watch        Watch directories and render new covers automatically

Utility Commands:
  serve        Start the HTTP API server
  templates    List the configured template palette
  config       Manage configuration settings
  version      Show version information

Global Options:
  --help, -h      Show help

Examples:
  coverforge render /covers/novel.jpg
  coverforge batch /covers/ --output /mockups/
  coverforge watch /covers/incoming/
  coverforge serve --addr :8080
`)
}

func newID(prefix string) string {
	ts := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s-%s-%04d", prefix, ts, rand.Intn(10000))
}
