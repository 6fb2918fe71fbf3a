// Package driver runs the checker over C# source trees: it loads files into
// a FileSet, parses them in parallel, binds all trees together, analyzes
// every file and optionally hands the findings to the fix engine.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"excheck/internal/ast"
	"excheck/internal/check"
	"excheck/internal/config"
	"excheck/internal/diag"
	"excheck/internal/frontend/csharp"
	"excheck/internal/observ"
	"excheck/internal/source"
	"excheck/internal/trace"
	"excheck/internal/types"
)

// SourceExt is the extension of the files the driver picks up.
const SourceExt = ".cs"

var ErrNoSources = errors.New("no C# sources found")

// Options configures a run.
type Options struct {
	Config         config.Result
	Jobs           int // 0 = config, then GOMAXPROCS
	MaxDiagnostics int
	Cache          *DiskCache // nil disables the result cache
	Timings        bool
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Path        string
	File        source.FileID
	Tree        *ast.Tree // nil when served from the cache
	Diagnostics []diag.Diagnostic
}

// Result is the outcome of Check.
type Result struct {
	FileSet *source.FileSet
	Files   []FileResult // sorted by path
	Bag     *diag.Bag    // every diagnostic of the run, sorted
	Binder  *csharp.Binder
	Cached  bool
	Timing  observ.Report
}

// ListSources expands paths into the sorted list of C# files they name.
// Directories are walked recursively; build output and VCS directories are
// skipped.
func ListSources(paths ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), SourceExt) {
				add(filepath.Clean(path))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

func skipDir(name string) bool {
	switch strings.ToLower(name) {
	case "bin", "obj", ".git", ".vs", "node_modules":
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}

// LoadCatalog returns the builtin exception types merged with the extension
// catalogs named by cfg, linked and ready to use.
func LoadCatalog(cfg config.Result) (*types.Catalog, error) {
	c := types.Builtin()
	if !cfg.OK() {
		return c, nil
	}
	for _, p := range cfg.CatalogPaths() {
		ext, err := types.LoadFile(p)
		if err != nil {
			return nil, fmt.Errorf("type catalog: %w", err)
		}
		c.Merge(ext)
	}
	c.Link()
	return c, nil
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	if o.Config.OK() && o.Config.Config.Analysis.Jobs > 0 {
		return o.Config.Config.Analysis.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// Check analyzes every C# file under paths.
func Check(ctx context.Context, paths []string, opts Options) (*Result, error) {
	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "check")
	defer span.End("")

	var files []string
	err := timer.Measure("list", func() (string, error) {
		var err error
		files, err = ListSources(paths...)
		return "files=" + strconv.Itoa(len(files)), err
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(paths, ", "), ErrNoSources)
	}

	fileSet, ids, err := load(files, baseDir(paths))
	if err != nil {
		return nil, err
	}

	catalog, err := LoadCatalog(opts.Config)
	if err != nil {
		return nil, err
	}

	var key Digest
	if opts.Cache != nil {
		key = runDigest(opts.Config, fileSet, ids)
		var payload DiskPayload
		if ok, err := opts.Cache.Get(key, &payload); err == nil && ok {
			if res, ok := payload.restore(fileSet, ids, opts.MaxDiagnostics); ok {
				span.WithExtra("cache", "hit")
				res.Timing = timer.Report()
				return res, nil
			}
		}
	}

	res, err := analyze(ctx, fileSet, ids, catalog, opts, timer)
	if err != nil {
		return nil, err
	}
	if opts.Cache != nil {
		// кэш вспомогательный: ошибка записи не должна ломать прогон
		_ = opts.Cache.Put(key, newPayload(res))
	}
	res.Timing = timer.Report()
	return res, nil
}

func baseDir(paths []string) string {
	if len(paths) != 1 {
		return ""
	}
	if info, err := os.Stat(paths[0]); err == nil && info.IsDir() {
		if abs, err := source.AbsolutePath(paths[0]); err == nil {
			return abs
		}
	}
	return ""
}

func load(files []string, base string) (*source.FileSet, []source.FileID, error) {
	fileSet := source.NewFileSetWithBase(base)
	ids := make([]source.FileID, 0, len(files))
	for _, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		ids = append(ids, id)
	}
	return fileSet, ids, nil
}

// analyze parses, binds and checks the loaded files.
func analyze(ctx context.Context, fileSet *source.FileSet, ids []source.FileID, catalog *types.Catalog, opts Options, timer *observ.Timer) (*Result, error) {
	jobs := opts.jobs()
	front := csharp.NewFrontend(catalog)

	trees := make([]*ast.Tree, len(ids))
	err := timer.Measure("parse", func() (string, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(ids)))
		for i, id := range ids {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tree, err := front.Parse(gctx, id, fileSet.Get(id).Content)
				if err != nil {
					return fmt.Errorf("%s: %w", fileSet.Get(id).Path, err)
				}
				trees[i] = tree
				return nil
			})
		}
		return "files=" + strconv.Itoa(len(ids)), g.Wait()
	})
	if err != nil {
		return nil, err
	}

	var b *csharp.Binder
	err = timer.Measure("bind", func() (string, error) {
		var err error
		b, err = front.BindIndex(ctx, trees)
		if err != nil {
			return "", err
		}
		return "methods=" + strconv.Itoa(len(b.Methods())), nil
	})
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg.OK() {
		// задания внутри файла делят тот же лимит
		cfg.Config.Analysis.Jobs = jobs
	}
	analyzer := check.NewAnalyzer(b, b.Universe(), cfg)
	perFile := make([][]diag.Diagnostic, len(ids))
	var global []diag.Diagnostic
	err = timer.Measure("analyze", func() (string, error) {
		if !cfg.OK() {
			ds, err := analyzer.Analyze(ctx, nil)
			global = ds
			return "config missing", err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(ids)))
		for i, tree := range trees {
			g.Go(func() error {
				ds, err := analyzer.Analyze(gctx, tree)
				perFile[i] = ds
				return err
			})
		}
		return "", g.Wait()
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		FileSet: fileSet,
		Files:   make([]FileResult, len(ids)),
		Binder:  b,
	}
	for i, id := range ids {
		res.Files[i] = FileResult{
			Path:        fileSet.Get(id).Path,
			File:        id,
			Tree:        trees[i],
			Diagnostics: perFile[i],
		}
	}
	res.Bag = collect(global, res.Files, opts.MaxDiagnostics)
	return res, nil
}

// collect merges location-less and per-file diagnostics into one sorted bag
// honoring the limit.
func collect(global []diag.Diagnostic, files []FileResult, limit int) *diag.Bag {
	all := diag.NewBag(0)
	for _, d := range global {
		all.Add(d)
	}
	for _, f := range files {
		for _, d := range f.Diagnostics {
			all.Add(d)
		}
	}
	all.Sort()
	bag := diag.NewBag(limit)
	for _, d := range all.Items() {
		if !bag.Add(d) {
			break
		}
	}
	return bag
}
