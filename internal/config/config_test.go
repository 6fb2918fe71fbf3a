package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[analysis]
severity = "error"
ignore = ["System.OperationCanceledException"]

[types]
catalogs = ["types/extra.yaml"]

[fix]
use_tabs = true
`)
	res := Load(path)
	if !res.OK() {
		t.Fatalf("Load: %v", res.Err)
	}
	cfg := res.Config
	if cfg.Analysis.Severity != "error" || len(cfg.Analysis.Ignore) != 1 {
		t.Fatalf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Fix.IndentWidth != 4 || !cfg.Fix.UseTabs {
		t.Fatalf("fix = %+v", cfg.Fix)
	}
	paths := res.CatalogPaths()
	if len(paths) != 1 || paths[0] != filepath.Join(dir, "types", "extra.yaml") {
		t.Fatalf("catalog paths = %v", paths)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "syntax", content: "[analysis\n", want: ErrMalformed},
		{name: "unknown key", content: "[analysis]\nseverty = \"error\"\n", want: ErrMalformed},
		{name: "bad severity", content: "[analysis]\nseverity = \"loud\"\n", want: ErrMalformed},
		{name: "bad indent", content: "[fix]\nindent_width = 0\n", want: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			writeFile(t, path, tt.content)
			res := Load(path)
			if !errors.Is(res.Err, tt.want) {
				t.Fatalf("err = %v, want %v", res.Err, tt.want)
			}
		})
	}

	res := Load(filepath.Join(dir, "absent.toml"))
	if !errors.Is(res.Err, ErrMissing) {
		t.Fatalf("absent file: err = %v, want ErrMissing", res.Err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[analysis]\nseverity = \"info\"\n")
	nested := filepath.Join(root, "src", "deep")
	writeFile(t, filepath.Join(nested, "Program.cs"), "class C {}")

	res := Discover(filepath.Join(nested, "Program.cs"))
	if !res.OK() {
		t.Fatalf("Discover: %v", res.Err)
	}
	if res.Config.Analysis.Severity != "info" {
		t.Fatalf("severity = %q", res.Config.Analysis.Severity)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	res := Load(path)
	if !res.OK() {
		t.Fatalf("default config does not load: %v", res.Err)
	}
	if res.Config.Fix.IndentWidth != Default().Fix.IndentWidth {
		t.Fatalf("indent width = %d", res.Config.Fix.IndentWidth)
	}
	if _, err := WriteDefault(dir, false); err == nil {
		t.Fatalf("second WriteDefault without force must fail")
	}
}
