package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

func (r *Root) cmdConfig(ctx context.Context, args []string) error {
	_ = ctx
	if len(args) == 0 {
		return r.configShow()
	}
	switch args[0] {
	case "show":
		return r.configShow()
	case "validate":
		return r.configValidate()
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (r *Root) configShow() error {
	fmt.Printf("Current configuration:\n")
	cfgPath := os.Getenv("COVERFORGE_CONFIG")
	if cfgPath == "" {
		cfgPath = "(default) ~/.config/coverforge/config.json"
	}
	fmt.Printf("Config file: %s\n", cfgPath)
	fmt.Printf("\nPaths:\n")
	fmt.Printf("  Covers: %s\n", r.cfg.Paths.CoversDir)
	fmt.Printf("  Templates: %s\n", r.cfg.Paths.TemplatesDir)
	fmt.Printf("  Mask: %s\n", r.cfg.Paths.MaskPath)
	fmt.Printf("  Output: %s\n", r.cfg.Paths.OutputDir)
	fmt.Printf("  Database: %s\n", r.cfg.Paths.DatabasePath)
	fmt.Printf("\nRender:\n")
	fmt.Printf("  Templates: %d\n", len(r.cfg.Render.Palette))
	fmt.Printf("  Edge expand: %.3f\n", r.cfg.Render.EdgeExpand)
	fmt.Printf("  Splat radius: %d\n", r.cfg.Render.SplatRadius)
	fmt.Printf("  Sampler: %s\n", r.cfg.Render.Sampler)
	fmt.Printf("  Output suffix: %s\n", r.cfg.Render.OutputSuffix)
	fmt.Printf("\nProcessing:\n")
	fmt.Printf("  Parallel jobs: %d\n", r.cfg.Processing.ParallelJobs)
	return nil
}

func (r *Root) configValidate() error {
	if len(r.cfg.Render.Palette) == 0 {
		return fmt.Errorf("configuration invalid: palette has no templates")
	}
	if r.cfg.Render.EdgeExpand < 0 || r.cfg.Render.EdgeExpand >= 0.5 {
		return fmt.Errorf("configuration invalid: edge_expand must be in [0, 0.5)")
	}
	if r.cfg.Processing.ParallelJobs < 1 {
		return fmt.Errorf("configuration invalid: parallel_jobs must be at least 1")
	}
	fmt.Println("Configuration is valid")
	return nil
}

func (r *Root) cmdVersion() error {
	fmt.Printf("Coverforge v1.0.0-dev\n")
	fmt.Printf("Built with Go %s\n", runtime.Version())
	fmt.Printf("Templates configured: %d\n", len(r.cfg.Render.Palette))
	return nil
}
