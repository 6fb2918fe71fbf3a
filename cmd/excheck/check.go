package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"excheck/internal/diag"
	"excheck/internal/diagfmt"
	"excheck/internal/driver"
	"excheck/internal/fix"
	"excheck/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [file.cs|directory]...",
	Short: "Report documented exceptions that are not caught",
	Long: `Analyze C# sources and report every call whose target documents an
exception that no enclosing try statement catches. With no arguments the
current directory is checked.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=config, then auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix identifiers in output")
	checkCmd.Flags().Bool("preview", false, "show the edit each fix would make")
	checkCmd.Flags().Int8("context", 0, "source lines of context around each diagnostic")
	checkCmd.Flags().Uint8("width", 0, "truncate source lines to this width (0=unlimited)")
	checkCmd.Flags().Bool("clear-cache", false, "drop cached results before the run")
}

// runCheck executes the "check" command. It returns errFindings when any
// warning or error was reported so that the process exits with status 1.
func runCheck(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	g, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json", "sarif":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	preview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	contextLines, err := cmd.Flags().GetInt8("context")
	if err != nil {
		return fmt.Errorf("failed to get context flag: %w", err)
	}
	width, err := cmd.Flags().GetUint8("width")
	if err != nil {
		return fmt.Errorf("failed to get width flag: %w", err)
	}
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return fmt.Errorf("failed to get clear-cache flag: %w", err)
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// превью строится по деревьям, кэш их не хранит
	opts := g.driverOptions(cmd, paths[0], !preview)
	opts.Jobs = jobs
	if clearCache && opts.Cache != nil {
		if err := opts.Cache.DropAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	res, err := driver.Check(cmd.Context(), paths, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		prettyOpts := diagfmt.PrettyOpts{
			Color:       g.color,
			Context:     contextLines,
			PathMode:    g.pathMode,
			Width:       width,
			ShowNotes:   withNotes,
			ShowFixes:   suggest || preview,
			ShowPreview: preview,
		}
		if preview {
			prettyOpts.Preview = previewer(cmd, res, opts)
		}
		diagfmt.Pretty(out, res.Bag, res.FileSet, prettyOpts)
		if !g.quiet {
			printSummary(cmd, res)
		}
	case "short":
		err = diagfmt.Short(out, res.Bag, res.FileSet, withNotes)
	case "json":
		err = diagfmt.JSON(out, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         g.pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     suggest,
		})
	case "sarif":
		err = diagfmt.Sarif(out, res.Bag, res.FileSet, diagfmt.SarifRunMeta{
			ToolName:       "excheck",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args,
		})
	}
	if err != nil {
		return err
	}

	if g.timings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timing.Summary())
	}
	if res.Bag.HasWarnings() {
		return errFindings
	}
	return nil
}

// previewer renders, for each diagnostic, the diff its fix would produce on
// the analyzed tree. Failures render nothing.
func previewer(cmd *cobra.Command, res *driver.Result, opts driver.Options) diagfmt.FixPreview {
	fixOpts := fix.OptionsFromConfig(opts.Config.Config)
	return func(d diag.Diagnostic) []byte {
		for _, f := range res.Files {
			if f.File != d.Primary.File || f.Tree == nil {
				continue
			}
			fixed, err := fix.Fix(cmd.Context(), f.Tree, d, fixOpts)
			if err != nil {
				return nil
			}
			out, err := fix.Unified(f.Path, f.Tree.Text(), fixed.Text())
			if err != nil {
				return nil
			}
			return out
		}
		return nil
	}
}

func printSummary(cmd *cobra.Command, res *driver.Result) {
	n := res.Bag.Len()
	files := len(res.Files)
	suffix := ""
	if res.Cached {
		suffix = " (cached)"
	}
	switch n {
	case 0:
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d file(s), no issues%s\n", files, suffix)
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d file(s), %d issue(s)%s\n", files, n, suffix)
	}
}
