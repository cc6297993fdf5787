package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/yaml"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	OpenSession func(cfg listscrape.Config) (listscrape.Session, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Run    RunCmd    `cmd:"" default:"withargs" help:"Crawl the list and collect every detail page (default)"`
	Show   ShowCmd   `cmd:"" help:"Summarize a collected dataset"`
	Config ConfigCmd `cmd:"" help:"Print the effective configuration as YAML"`
}

// RunCmd is the "run" subcommand. Flags left at their zero value keep the
// value from the config file or the built-in defaults.
type RunCmd struct {
	Config       string `short:"c" type:"path" help:"YAML config file"`
	BaseURL      string `name:"base-url" help:"List page URL"`
	Output       string `short:"o" type:"path" help:"Dataset file"`
	BackupDir    string `name:"backup-dir" type:"path" help:"Directory for snapshots and diagnostics"`
	StartPage    int    `name:"start-page" help:"First list page"`
	MaxPages     int    `name:"max-pages" help:"Last list page"`
	ItemsPerPage int    `name:"items-per-page" help:"Maximum items collected per page"`
	Headful      bool   `help:"Show the browser window"`
	BrowserBin   string `name:"browser-bin" type:"path" help:"Chrome binary to launch"`
	Verbose      bool   `short:"v" help:"Log browser operations"`
	MetricsFile  string `name:"metrics-file" type:"path" help:"Write Prometheus metrics to this file when done"`
	Journal      string `type:"path" help:"SQLite file recording runs and page outcomes"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Output  string `short:"o" type:"path" default:"data.json" help:"Dataset file"`
	Journal string `type:"path" help:"SQLite journal file"`
	RunID   string `name:"run" help:"Run ID to list page outcomes for (requires --journal)"`
}

// ConfigCmd is the "config" subcommand.
type ConfigCmd struct {
	Config string `short:"c" type:"path" help:"YAML config file to merge over the defaults"`
}

// loadConfig returns the defaults overlaid with the file at path, if any.
func loadConfig(path string) (listscrape.Config, error) {
	cfg := listscrape.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	return yaml.LoadConfig(path, cfg)
}

// config resolves the run configuration from defaults, file and flags.
func (c *RunCmd) config() (listscrape.Config, error) {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return cfg, err
	}
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.Output != "" {
		cfg.OutputPath = c.Output
	}
	if c.BackupDir != "" {
		cfg.BackupDir = c.BackupDir
	}
	if c.StartPage != 0 {
		cfg.StartPage = c.StartPage
	}
	if c.MaxPages != 0 {
		cfg.MaxPages = c.MaxPages
	}
	if c.ItemsPerPage != 0 {
		cfg.ItemsPerPage = c.ItemsPerPage
	}
	if c.Headful {
		cfg.Headless = false
	}
	if c.BrowserBin != "" {
		cfg.BrowserBin = c.BrowserBin
	}
	return cfg, cfg.Validate()
}

func (c *RunCmd) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
