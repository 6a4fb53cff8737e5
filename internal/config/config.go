package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"coverforge/internal/imaging"
)

const (
	defaultConfigPath = "~/.config/coverforge/config.json"
	defaultParallel   = 4
)

// Config holds user-editable settings for the renderer and service.
type Config struct {
	Processing Processing `json:"processing"`
	Logging    Logging    `json:"logging"`
	Paths      Paths      `json:"paths"`
	Render     Render     `json:"render"`
}

// Processing captures execution preferences.
type Processing struct {
	ParallelJobs int    `json:"parallel_jobs"`
	TempDir      string `json:"temp_dir"`
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // text, json
	FileOutput bool   `json:"file_output"` // Enable file logging
	LogDir     string `json:"log_dir"`     // Directory for log files
}

// Paths configures where covers, templates and results live.
type Paths struct {
	CoversDir    string `json:"covers_dir"`
	TemplatesDir string `json:"templates_dir"`
	MaskPath     string `json:"mask_path"`
	OutputDir    string `json:"output_dir"`
	DatabasePath string `json:"database_path"`
}

// Render tunes the compositing pipeline. The defaults reproduce the stock
// template set; change them together with the template images.
type Render struct {
	Palette      imaging.Palette `json:"palette"`
	Quad         imaging.Quad    `json:"quad"`
	EdgeExpand   float64         `json:"edge_expand"`
	SplatRadius  int             `json:"splat_radius"`
	Sampler      string          `json:"sampler"` // frequency, dominant
	OutputSuffix string          `json:"output_suffix"`
}

// WarpOptions converts the render tunables for the warper.
func (r Render) WarpOptions() imaging.WarpOptions {
	opts := imaging.WarpOptions{EdgeExpand: r.EdgeExpand, SplatRadius: r.SplatRadius}
	if opts.SplatRadius < 1 {
		opts.SplatRadius = 1
	}
	return opts
}

// Load reads configuration from disk, falling back to sensible defaults.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("COVERFORGE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Processing: Processing{
			ParallelJobs: defaultParallel,
			TempDir:      os.TempDir(),
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: true,
			LogDir:     "./logs",
		},
		Paths: Paths{
			CoversDir:    "./covers",
			TemplatesDir: "./templates",
			MaskPath:     "./templates/mask.png",
			OutputDir:    "./output",
			DatabasePath: filepath.Join(os.TempDir(), "coverforge.db"),
		},
		Render: Render{
			Palette:      imaging.DefaultPalette(),
			Quad:         imaging.DefaultQuad(),
			EdgeExpand:   0.02,
			SplatRadius:  1,
			Sampler:      "frequency",
			OutputSuffix: "_book",
		},
	}
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
