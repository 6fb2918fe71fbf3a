package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"excheck/internal/doccomment"
	"excheck/internal/driver"
	"excheck/internal/source"
	"excheck/internal/types"
)

var explainCmd = &cobra.Command{
	Use:   "explain [flags] [file.cs|directory]...",
	Short: "List the exceptions each method documents",
	Long: `Bind C# sources and print, for every method, the exception types its
documentation declares. These are the types check expects callers to catch.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	explainCmd.Flags().Bool("all", false, "include methods that document no exceptions")
}

type explainedException struct {
	Type        string `json:"type"`
	Description string   `json:"description,omitempty"`
	Bases       []string `json:"bases,omitempty"` // nearest first
}

type explainedMethod struct {
	Method     string               `json:"method"`
	Class      string               `json:"class"`
	Location   string               `json:"location"`
	Exceptions []explainedException `json:"exceptions"`
	Error      string               `json:"error,omitempty"`
}

func runExplain(cmd *cobra.Command, args []string) error {
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
	showAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.Check(cmd.Context(), paths, g.driverOptions(cmd, paths[0], false))
	if err != nil {
		return err
	}
	methods := explainMethods(res, g, showAll)
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(methods)
	}
	return renderExplainPretty(cmd.OutOrStdout(), methods)
}

func explainMethods(res *driver.Result, g globalOptions, showAll bool) []explainedMethod {
	out := make([]explainedMethod, 0)
	if res.Binder == nil {
		return out
	}
	u := res.Binder.Universe()
	for _, m := range res.Binder.Methods() {
		item := explainedMethod{
			Method:     m.Symbol.Qualified,
			Class:      m.Class,
			Location:   locate(res.FileSet, m.Symbol.Decl, g),
			Exceptions: make([]explainedException, 0),
		}
		doc, err := doccomment.Parse(m.Doc)
		if err != nil {
			item.Error = err.Error()
		}
		for _, e := range doc.Exceptions {
			item.Exceptions = append(item.Exceptions, explainedException{
				Type:        e.Type,
				Description: e.Description,
				Bases:       baseNames(u, e.Type),
			})
		}
		if len(item.Exceptions) == 0 && item.Error == "" && !showAll {
			continue
		}
		out = append(out, item)
	}
	return out
}

// baseNames lists the bases of the named type; unknown types have none.
func baseNames(u types.Universe, name string) []string {
	t, ok := types.Resolve(u, name)
	if !ok {
		return nil
	}
	chain := types.Chain(t)[1:]
	out := make([]string, 0, len(chain))
	for _, b := range chain {
		out = append(out, b.Name)
	}
	return out
}

func locate(fs *source.FileSet, sp source.Span, g globalOptions) string {
	f := fs.Get(sp.File)
	if f == nil {
		return ""
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(g.pathMode.String(), fs.BaseDir()), start.Line, start.Col)
}

func renderExplainPretty(w io.Writer, methods []explainedMethod) error {
	if len(methods) == 0 {
		_, err := fmt.Fprintln(w, "No documented exceptions found.")
		return err
	}
	for _, m := range methods {
		if _, err := fmt.Fprintf(w, "%s  %s\n", m.Method, m.Location); err != nil {
			return err
		}
		if m.Error != "" {
			if _, err := fmt.Fprintf(w, "  documentation ignored: %s\n", m.Error); err != nil {
				return err
			}
		}
		for _, e := range m.Exceptions {
			line := "  throws " + e.Type
			if e.Description != "" {
				line += ": " + e.Description
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			if len(e.Bases) > 0 {
				if _, err := fmt.Fprintf(w, "    : %s\n", strings.Join(e.Bases, " : ")); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
