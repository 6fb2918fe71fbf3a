// Package config loads the .excheck.toml configuration file.
//
// Loading never panics and never returns a bare error: the outcome is a
// Result value the host builds once and hands to the analyzer. A failed
// Result makes the analyzer report configuration-missing and stop.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the analyzed path.
const FileName = ".excheck.toml"

var (
	ErrMissing   = errors.New("configuration file not found")
	ErrMalformed = errors.New("malformed configuration")
)

type Config struct {
	Analysis Analysis `toml:"analysis"`
	Types    Types    `toml:"types"`
	Fix      Fix      `toml:"fix"`
	Cache    Cache    `toml:"cache"`
}

type Analysis struct {
	Severity string   `toml:"severity"` // info|warning|error
	Ignore   []string `toml:"ignore"`
	Jobs     int      `toml:"jobs"` // 0 = GOMAXPROCS
}

type Types struct {
	Catalogs []string `toml:"catalogs"` // relative to the config file
}

type Fix struct {
	IndentWidth int  `toml:"indent_width"`
	UseTabs     bool `toml:"use_tabs"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the configuration written by `excheck init`.
func Default() Config {
	return Config{
		Analysis: Analysis{
			Severity: "warning",
			Ignore:   []string{},
		},
		Types: Types{Catalogs: []string{}},
		Fix: Fix{
			IndentWidth: 4,
		},
	}
}

// Result is the outcome of loading a configuration.
type Result struct {
	Config Config
	Path   string // file the config was read from, empty when none
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Loaded wraps an in-memory configuration as a successful Result.
func Loaded(cfg Config) Result {
	return Result{Config: cfg}
}

// Failed builds a failed Result.
func Failed(path string, err error) Result {
	return Result{Config: Default(), Path: path, Err: err}
}

// Load reads and validates the file at path.
func Load(path string) Result {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Failed(path, fmt.Errorf("%s: %w", path, ErrMissing))
		}
		return Failed(path, fmt.Errorf("%s: %w", path, err))
	}
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Failed(path, fmt.Errorf("%s: %w: %w", path, ErrMalformed, err))
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Failed(path, fmt.Errorf("%s: %w: unknown keys %s", path, ErrMalformed, strings.Join(keys, ", ")))
	}
	if err := cfg.Validate(); err != nil {
		return Failed(path, fmt.Errorf("%s: %w", path, err))
	}
	return Result{Config: cfg, Path: path}
}

// Discover walks up from startDir looking for FileName and loads it.
func Discover(startDir string) Result {
	path, ok, err := Find(startDir)
	if err != nil {
		return Failed("", err)
	}
	if !ok {
		return Failed("", fmt.Errorf("%s in %s or any parent: %w", FileName, startDir, ErrMissing))
	}
	return Load(path)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Analysis.Severity {
	case "info", "warning", "error":
	default:
		return fmt.Errorf("%w: [analysis].severity %q must be info, warning or error", ErrMalformed, c.Analysis.Severity)
	}
	if c.Analysis.Jobs < 0 {
		return fmt.Errorf("%w: [analysis].jobs must not be negative", ErrMalformed)
	}
	if c.Fix.IndentWidth < 1 || c.Fix.IndentWidth > 16 {
		return fmt.Errorf("%w: [fix].indent_width must be within 1..16", ErrMalformed)
	}
	for _, name := range c.Analysis.Ignore {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: [analysis].ignore contains an empty name", ErrMalformed)
		}
	}
	return nil
}

// CatalogPaths returns the extension catalogs resolved against the
// directory of the config file.
func (r Result) CatalogPaths() []string {
	base := "."
	if r.Path != "" {
		base = filepath.Dir(r.Path)
	}
	out := make([]string, 0, len(r.Config.Types.Catalogs))
	for _, p := range r.Config.Types.Catalogs {
		p = filepath.FromSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}

// CacheDir returns the cache directory, or "" when caching is off.
func (r Result) CacheDir() string {
	if !r.Config.Cache.Enabled {
		return ""
	}
	dir := strings.TrimSpace(r.Config.Cache.Dir)
	if dir == "" {
		if cache, err := os.UserCacheDir(); err == nil {
			return filepath.Join(cache, "excheck")
		}
		return ""
	}
	if !filepath.IsAbs(dir) && r.Path != "" {
		dir = filepath.Join(filepath.Dir(r.Path), dir)
	}
	return dir
}
