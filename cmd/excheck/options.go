package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"excheck/internal/config"
	"excheck/internal/diagfmt"
	"excheck/internal/driver"
)

// globalOptions collects the persistent flags shared by all commands.
type globalOptions struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
	pathMode       diagfmt.PathMode
	configPath     string
	noConfig       bool
}

func readGlobalOptions(cmd *cobra.Command) (globalOptions, error) {
	var opts globalOptions
	flags := cmd.Root().PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(colorFlag)) {
	case "on":
		opts.color = true
	case "off":
		opts.color = false
	case "", "auto":
		opts.color = isTerminal(os.Stdout)
	default:
		return opts, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}

	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.configPath, err = flags.GetString("config"); err != nil {
		return opts, fmt.Errorf("failed to get config flag: %w", err)
	}
	if opts.noConfig, err = flags.GetBool("no-config"); err != nil {
		return opts, fmt.Errorf("failed to get no-config flag: %w", err)
	}
	if opts.noConfig && opts.configPath != "" {
		return opts, fmt.Errorf("--config and --no-config are mutually exclusive")
	}

	pathMode, err := flags.GetString("path-mode")
	if err != nil {
		return opts, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	mode, ok := diagfmt.ParsePathMode(strings.ToLower(pathMode))
	if !ok {
		return opts, fmt.Errorf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", pathMode)
	}
	opts.pathMode = mode
	return opts, nil
}

// loadConfig resolves the configuration for a run over target. A missing or
// malformed file is not an error here: the analyzer reports it.
func (g globalOptions) loadConfig(target string) config.Result {
	switch {
	case g.noConfig:
		return config.Loaded(config.Default())
	case g.configPath != "":
		return config.Load(g.configPath)
	}
	start := target
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		start = filepath.Dir(target)
	}
	return config.Discover(start)
}

// driverOptions builds the run options for target, opening the result
// cache when the configuration enables it.
func (g globalOptions) driverOptions(cmd *cobra.Command, target string, withCache bool) driver.Options {
	cfg := g.loadConfig(target)
	opts := driver.Options{
		Config:         cfg,
		MaxDiagnostics: g.maxDiagnostics,
		Timings:        g.timings,
	}
	if !withCache || !cfg.OK() {
		return opts
	}
	if dir := cfg.CacheDir(); dir != "" {
		cache, err := driver.OpenDiskCache(dir)
		if err != nil {
			// кэш необязателен
			if !g.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "excheck: cache disabled: %v\n", err)
			}
			return opts
		}
		opts.Cache = cache
	}
	return opts
}
