package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"excheck/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show excheck build fingerprints",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

// buildInfo is what `excheck version` can tell about the binary.
type buildInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// collectBuildInfo prefers the -ldflags values and falls back to the VCS
// stamps the Go toolchain records.
func collectBuildInfo() buildInfo {
	info := buildInfo{
		Tool:      "excheck",
		Version:   strings.TrimSpace(version.Version),
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
		GoVersion: runtime.Version(),
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// trim drops the fields the flags did not ask for; missing values read
// "unknown".
func (b buildInfo) trim(hash, date, full bool) buildInfo {
	out := buildInfo{Tool: b.Tool, Version: b.Version}
	if hash || full {
		out.GitCommit = valueOrUnknown(b.GitCommit)
	}
	if date || full {
		out.BuildDate = valueOrUnknown(b.BuildDate)
	}
	if full {
		out.GoVersion = b.GoVersion
	}
	return out
}

func runVersion(cmd *cobra.Command, _ []string) error {
	g, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	hash, err := cmd.Flags().GetBool("hash")
	if err != nil {
		return err
	}
	date, err := cmd.Flags().GetBool("date")
	if err != nil {
		return err
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}

	info := collectBuildInfo().trim(hash, date, full)
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "pretty":
		return renderVersionPretty(cmd.OutOrStdout(), info, g.color)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func renderVersionPretty(out io.Writer, info buildInfo, color bool) error {
	if _, err := fmt.Fprintf(out, "excheck %s\n", version.Colored(color)); err != nil {
		return err
	}
	for _, row := range [][2]string{
		{"commit:", info.GitCommit},
		{"built:", info.BuildDate},
		{"go:", info.GoVersion},
	} {
		if row[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(out, "%-7s %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
