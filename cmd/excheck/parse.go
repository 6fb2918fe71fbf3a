package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"excheck/internal/diagfmt"
	"excheck/internal/frontend/csharp"
	"excheck/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.cs>",
	Short: "Print the syntax tree of a C# source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "tree", "output format (tree|json)")
	parseCmd.Flags().Bool("trivia", false, "include whitespace and comments")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	trivia, err := cmd.Flags().GetBool("trivia")
	if err != nil {
		return fmt.Errorf("failed to get trivia flag: %w", err)
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	wd, _ := os.Getwd()
	fs := source.NewFileSetWithBase(wd)
	id, err := fs.Load(args[0])
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	tree, err := csharp.Parser{}.Parse(cmd.Context(), id, fs.Get(id).Content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	opts := diagfmt.TreeOpts{Trivia: trivia}
	switch strings.ToLower(format) {
	case "tree", "pretty":
		return diagfmt.FormatTreePretty(cmd.OutOrStdout(), tree, fs, opts)
	case "json":
		return diagfmt.FormatTreeJSON(cmd.OutOrStdout(), tree, opts)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
