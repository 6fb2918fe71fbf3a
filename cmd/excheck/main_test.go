package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"excheck/internal/config"
)

const libSource = `using System;

namespace Demo
{
    public static class Lib
    {
        /// <exception cref="ArgumentException">bad input</exception>
        public static void Work()
        {
        }
    }
}
`

const appSource = `namespace Demo
{
    public class App
    {
        public void Run()
        {
            Lib.Work();
        }
    }
}
`

// project creates a checked-in project with a default configuration.
func project(t *testing.T, withConfig bool) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{"Lib.cs": libSource, "App.cs": appSource} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if withConfig {
		if _, err := config.WriteDefault(dir, false); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI with args; cobra keeps flag values between runs.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--color", "off", "--quiet"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckJSON(t *testing.T) {
	dir := project(t, true)
	out, err := run(t, "check", "--format", "json", "--suggest", "--path-mode", "basename", dir)
	if !errors.Is(err, errFindings) {
		t.Fatalf("err = %v, want errFindings", err)
	}
	var payload struct {
		Diagnostics []struct {
			ID         string            `json:"id"`
			Code       string            `json:"code"`
			Properties map[string]string `json:"properties"`
			Fix        *struct {
				ID string `json:"id"`
			} `json:"fix"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(payload.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %s", out)
	}
	d := payload.Diagnostics[0]
	if d.Code != "EXC5001" || d.Properties["exceptionType"] != "System.ArgumentException" || d.Fix == nil {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestCheckWithoutConfig(t *testing.T) {
	dir := project(t, false)
	out, err := run(t, "check", "--format", "short", dir)
	if !errors.Is(err, errFindings) {
		t.Fatalf("err = %v, want errFindings", err)
	}
	if !strings.HasPrefix(out, "warning EXC5000") || strings.Contains(out, "EXC5001") {
		t.Fatalf("expected only the configuration warning, got:\n%s", out)
	}

	out, err = run(t, "check", "--no-config", "--format", "short", dir)
	if !errors.Is(err, errFindings) || !strings.Contains(out, "EXC5001") {
		t.Fatalf("--no-config should analyze with defaults: %v\n%s", err, out)
	}
}

func TestCheckPreview(t *testing.T) {
	dir := project(t, true)
	out, err := run(t, "check", "--preview", "--path-mode", "basename", dir)
	if !errors.Is(err, errFindings) {
		t.Fatalf("err = %v, want errFindings", err)
	}
	for _, want := range []string{"App.cs:7:13: WARNING EXC5001", "  fix: catch System.ArgumentException", "  preview:", "+            try"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestCheckRejectsUnknownFormat(t *testing.T) {
	if _, err := run(t, "check", "--format", "xml", project(t, true)); err == nil || errors.Is(err, errFindings) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

func TestFixDryRunAndCommit(t *testing.T) {
	dir := project(t, true)
	app := filepath.Join(dir, "App.cs")

	out, err := run(t, "fix", "--all", "--dry-run", "--diff", dir)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "Applied 1 fix(es):") || !strings.Contains(out, "+++ b/") || !strings.Contains(out, "Dry run") {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}
	if data, _ := os.ReadFile(app); string(data) != appSource {
		t.Fatalf("dry run modified %s", app)
	}

	if _, err := run(t, "fix", "--all", dir); err != nil {
		t.Fatalf("fix: %v", err)
	}
	data, err := os.ReadFile(app)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "catch (System.ArgumentException)") {
		t.Fatalf("fix not written:\n%s", data)
	}

	out, err = run(t, "fix", dir)
	if err != nil || !strings.Contains(out, "No applicable fixes found.") {
		t.Fatalf("second fix: %v\n%s", err, out)
	}
	if _, err := run(t, "check", dir); err != nil {
		t.Fatalf("fixed project still reports: %v", err)
	}
}

func TestFixFlagConflicts(t *testing.T) {
	dir := project(t, true)
	if _, err := run(t, "fix", "--all", "--once", dir); err == nil {
		t.Fatalf("--all with --once must fail")
	}
	if _, err := run(t, "fix", "--id", "x", "--all", dir); err == nil {
		t.Fatalf("--id with --all must fail")
	}
	if _, err := run(t, "check", "--config", "a.toml", "--no-config", dir); err == nil {
		t.Fatalf("--config with --no-config must fail")
	}
}

func TestExplain(t *testing.T) {
	dir := project(t, true)
	out, err := run(t, "explain", "--path-mode", "basename", dir)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "Demo.Lib.Work  Lib.cs:") || !strings.Contains(out, "  throws System.ArgumentException: bad input") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "    : System.SystemException : System.Exception") {
		t.Fatalf("base chain missing:\n%s", out)
	}
	if strings.Contains(out, "Demo.App.Run") {
		t.Fatalf("undocumented methods are listed only with --all:\n%s", out)
	}

	out, err = run(t, "explain", "--all", "--format", "json", dir)
	if err != nil {
		t.Fatalf("explain json: %v", err)
	}
	var methods []explainedMethod
	if err := json.Unmarshal([]byte(out), &methods); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected both methods, got %+v", methods)
	}
	for _, m := range methods {
		if m.Method == "Demo.Lib.Work" && (len(m.Exceptions) != 1 || len(m.Exceptions[0].Bases) < 2 ||
			m.Exceptions[0].Bases[0] != "System.SystemException") {
			t.Fatalf("unexpected exceptions %+v", m.Exceptions)
		}
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	if _, err := run(t, "init", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	res := config.Load(filepath.Join(dir, config.FileName))
	if !res.OK() {
		t.Fatalf("written config does not load: %v", res.Err)
	}
	if _, err := run(t, "init", dir); err == nil {
		t.Fatalf("init must refuse to overwrite")
	}
	if _, err := run(t, "init", "--force", dir); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestParseTree(t *testing.T) {
	dir := project(t, false)
	out, err := run(t, "parse", filepath.Join(dir, "App.cs"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "class App") || !strings.Contains(out, "invocation") {
		t.Fatalf("unexpected tree:\n%s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload buildInfo
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Tool != "excheck" || payload.Version == "" || payload.GitCommit == "" || payload.GoVersion == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "excheck ") || strings.Contains(out, "commit:") {
		t.Fatalf("plain version prints the version line only:\n%s", out)
	}
}

func TestTraceRingDumpedOnFailure(t *testing.T) {
	t.Cleanup(func() { ringTracer = nil })
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := run(t, "--trace-ring", "64", "check", "--no-config", missing); err == nil || errors.Is(err, errFindings) {
		t.Fatalf("expected a failure for a missing path, got %v", err)
	}
	var buf bytes.Buffer
	dumpTrace(&buf)
	if !strings.Contains(buf.String(), "→ check") {
		t.Fatalf("ring dump misses the check span:\n%s", buf.String())
	}
}
