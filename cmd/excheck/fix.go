package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"excheck/internal/driver"
	"excheck/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] [file.cs|directory]...",
	Short: "Wrap uncaught documented calls in try/catch",
	Long: `Run the analysis, then add a catch clause for each reported exception:
the nearest enclosing try gains a clause, or the statement holding the call
is wrapped in a new try statement.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply all fixes")
	fixCmd.Flags().Bool("once", false, "apply the first available fix (default)")
	fixCmd.Flags().String("id", "", "apply fix with a specific identifier")
	fixCmd.Flags().Int("jobs", 0, "max parallel workers (0=config, then auto)")
	fixCmd.Flags().Bool("dry-run", false, "do not write changed files")
	fixCmd.Flags().Bool("diff", false, "print a unified diff of every changed file")
}

func runFix(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnceFlag, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	showDiff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}

	if targetID != "" && (applyAll || applyOnceFlag) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnceFlag {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}

	g, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := g.driverOptions(cmd, paths[0], false)
	opts.Jobs = jobs
	res, err := driver.Fix(cmd.Context(), paths, opts, fix.ApplyOptions{Mode: mode, TargetID: targetID})
	if errors.Is(err, fix.ErrNoFixes) {
		fmt.Fprintln(cmd.OutOrStdout(), "No applicable fixes found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := handleApplyResult(out, res.Fix); err != nil {
		return err
	}
	if showDiff {
		for _, change := range res.Fix.FileChanges {
			d, err := change.Diff()
			if err != nil {
				return err
			}
			if _, err := out.Write(d); err != nil {
				return err
			}
		}
	}
	if g.timings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Check.Timing.Summary())
	}
	if dryRun {
		if len(res.Fix.FileChanges) > 0 {
			fmt.Fprintln(out, "Dry run: no files written.")
		}
		return nil
	}
	return res.Commit()
}

func handleApplyResult(w io.Writer, res *fix.ApplyResult) error {
	if res == nil {
		return nil
	}

	if len(res.Applied) > 0 {
		if _, err := fmt.Fprintf(w, "Applied %d fix(es):\n", len(res.Applied)); err != nil {
			return err
		}
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			if _, err := fmt.Fprintf(w, "  %s [%s] at %s (%s)\n", item.Title, item.ID, location, item.Kind); err != nil {
				return err
			}
		}
	}

	if len(res.FileChanges) > 0 {
		if _, err := fmt.Fprintln(w, "Updated files:"); err != nil {
			return err
		}
		for _, change := range res.FileChanges {
			if _, err := fmt.Fprintf(w, "  %s (%d edits)\n", change.Path, change.EditCount); err != nil {
				return err
			}
		}
	}

	if len(res.Skipped) > 0 {
		if _, err := fmt.Fprintln(w, "Skipped fixes:"); err != nil {
			return err
		}
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if _, err := fmt.Fprintf(w, "  %s [%s]: %s\n", skip.Title, id, skip.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}
