package fix

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"excheck/internal/ast"
	"excheck/internal/diag"
	"excheck/internal/source"
)

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected and laid out.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	Fix      Options
	Jobs     int // 0 = GOMAXPROCS
}

// Document is one parsed file together with the diagnostics reported on it.
type Document struct {
	File        source.FileID
	Tree        *ast.Tree
	Diagnostics []diag.Diagnostic
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID          string
	Title       string
	Code        diag.Code
	Message     string
	Kind        EditKind
	PrimaryPath string
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file. File is the new
// revision registered in the FileSet; Tree is bound to it.
type FileChange struct {
	Path      string
	File      source.FileID
	Tree      *ast.Tree
	EditCount int
	Before    []byte
	After     []byte
}

// Diff renders the change as a unified diff.
func (c FileChange) Diff() ([]byte, error) {
	return Unified(c.Path, c.Before, c.After)
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	doc   int
	diag  diag.Diagnostic
	id    string
	order int
}

// FixID is the stable identifier `fix --id` selects a diagnostic by.
func FixID(d diag.Diagnostic) string {
	typeName, _ := d.Property(diag.PropExceptionType)
	return fmt.Sprintf("%s-%d-%d-%s", d.Code.ID(), d.Primary.File, d.Primary.Start, typeName)
}

// Title describes the edit a fix for d makes.
func Title(d diag.Diagnostic) string {
	typeName, _ := d.Property(diag.PropExceptionType)
	return fmt.Sprintf("catch %s", typeName)
}

// Apply selects fixes from the diagnostics of docs according to opts and
// applies them. Documents are rewritten in parallel; the rewritten text of
// every changed document is registered as a new revision in fs. Nothing is
// written to disk, see Commit.
func Apply(ctx context.Context, fs *source.FileSet, docs []Document, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, buildSkips := gatherCandidates(docs)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	perDoc := make([][]candidate, len(docs))
	for _, c := range selected {
		perDoc[c.doc] = append(perDoc[c.doc], c)
	}

	type outcome struct {
		tree   *ast.Tree
		report Report
	}
	outcomes := make([]outcome, len(docs))
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, cands := range perDoc {
		if len(cands) == 0 {
			continue
		}
		g.Go(func() error {
			ds := make([]diag.Diagnostic, len(cands))
			for j, c := range cands {
				ds[j] = c.diag
			}
			tree, report, err := FixAll(gctx, docs[i].Tree, ds, opts.Fix)
			if err != nil {
				return err
			}
			outcomes[i] = outcome{tree: tree, report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	baseDir := fs.BaseDir()
	for i, out := range outcomes {
		if out.tree == nil {
			continue
		}
		for _, s := range out.report.Skipped {
			result.Skipped = append(result.Skipped, SkippedFix{
				ID:     FixID(s.Diagnostic),
				Title:  Title(s.Diagnostic),
				Reason: s.Reason,
			})
		}
		if !out.report.Changed() {
			continue
		}
		file := fs.Get(docs[i].File)
		if file == nil {
			return result, fmt.Errorf("fix: unknown file %d", docs[i].File)
		}
		for _, a := range out.report.Applied {
			result.Applied = append(result.Applied, AppliedFix{
				ID:          FixID(a.Diagnostic),
				Title:       Title(a.Diagnostic),
				Code:        a.Diagnostic.Code,
				Message:     a.Diagnostic.Message,
				Kind:        a.Op.Kind,
				PrimaryPath: file.FormatPath("auto", baseDir),
			})
		}
		after := out.tree.Text()
		revision := fs.Revise(docs[i].File, after)
		result.FileChanges = append(result.FileChanges, FileChange{
			Path:      file.FormatPath("relative", baseDir),
			File:      revision,
			Tree:      out.tree.WithFile(revision),
			EditCount: len(out.report.Applied),
			Before:    file.Content,
			After:     after,
		})
	}

	slices.SortStableFunc(result.FileChanges, func(a, b FileChange) int {
		return cmp.Compare(a.Path, b.Path)
	})

	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// Commit writes the changed files back to disk. Virtual files are left
// alone.
func Commit(fs *source.FileSet, changes []FileChange) error {
	for _, c := range changes {
		file := fs.Get(c.File)
		if file == nil || file.Flags&source.FileVirtual != 0 {
			continue
		}
		if err := fs.Save(c.File); err != nil {
			return err
		}
	}
	return nil
}

// gatherCandidates collects the fixable diagnostics of docs. Diagnostics of
// other codes are ignored; fixable ones without an exception type or without
// a location are recorded as skipped.
func gatherCandidates(docs []Document) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0)
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})

	order := 0
	for i, doc := range docs {
		for _, d := range doc.Diagnostics {
			if d.Code != diag.ExcDocumentedNotCaught {
				continue
			}
			id := FixID(d)
			if _, ok := d.Property(diag.PropExceptionType); !ok {
				skips = append(skips, SkippedFix{ID: id, Title: d.Message, Reason: "diagnostic has no exception type"})
				continue
			}
			if !d.Located() {
				skips = append(skips, SkippedFix{ID: id, Title: Title(d), Reason: "diagnostic has no location"})
				continue
			}
			if _, dup := seen[id]; dup {
				skips = append(skips, SkippedFix{ID: id, Title: Title(d), Reason: "duplicate fix id"})
				continue
			}
			seen[id] = struct{}{}
			cands = append(cands, candidate{doc: i, diag: d, id: id, order: order})
			order++
		}
	}
	return cands, skips
}

// sortCandidates orders candidates by file, span start, span end and then
// insertion order, so documentation order survives for one call site.
func sortCandidates(candidates []candidate) {
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		da, db := a.diag.Primary, b.diag.Primary
		return cmp.Or(
			cmp.Compare(da.File, db.File),
			cmp.Compare(da.Start, db.Start),
			cmp.Compare(da.End, db.End),
			cmp.Compare(a.order, b.order),
		)
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.id == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{
			ID:     opts.TargetID,
			Reason: "fix id not found",
		}}
	case ApplyModeAll:
		return candidates, nil
	case ApplyModeOnce:
		return candidates[:1], nil
	default:
		return nil, nil
	}
}
