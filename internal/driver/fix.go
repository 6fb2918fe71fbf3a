package driver

import (
	"context"
	"errors"

	"excheck/internal/fix"
	"excheck/internal/trace"
)

// ErrConfigMissing stops a fix run: without a configuration nothing is
// analyzed, so there is nothing to fix.
var ErrConfigMissing = errors.New("configuration missing, run `excheck init`")

// FixResult pairs the analysis a fix run started from with what it changed.
type FixResult struct {
	Check *Result
	Fix   *fix.ApplyResult
}

// Fix analyzes paths and applies the selected fixes to the in-memory
// FileSet. Nothing is written; see Commit. The result cache is never used
// because fixes need the trees.
func Fix(ctx context.Context, paths []string, opts Options, apply fix.ApplyOptions) (*FixResult, error) {
	opts.Cache = nil
	res, err := Check(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	out := &FixResult{Check: res}
	if !opts.Config.OK() {
		return out, errors.Join(ErrConfigMissing, opts.Config.Err)
	}
	if apply.Fix == (fix.Options{}) {
		apply.Fix = fix.OptionsFromConfig(opts.Config.Config)
	}
	if apply.Jobs <= 0 {
		apply.Jobs = opts.jobs()
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "fix")
	defer span.End("")

	docs := make([]fix.Document, 0, len(res.Files))
	for _, f := range res.Files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		docs = append(docs, fix.Document{File: f.File, Tree: f.Tree, Diagnostics: f.Diagnostics})
	}
	out.Fix, err = fix.Apply(ctx, res.FileSet, docs, apply)
	return out, err
}

// Commit writes the files changed by r to disk.
func (r *FixResult) Commit() error {
	if r == nil || r.Fix == nil {
		return nil
	}
	return fix.Commit(r.Check.FileSet, r.Fix.FileChanges)
}
