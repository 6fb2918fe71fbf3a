package types

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInheritsFromBuiltin(t *testing.T) {
	c := Builtin()
	look := func(name string) *Descriptor {
		d, ok := c.Lookup(name)
		if !ok {
			t.Fatalf("%s missing from builtin catalog", name)
		}
		return d
	}
	tests := []struct {
		sub, base string
		want      bool
	}{
		{"System.ArgumentNullException", "System.ArgumentException", true},
		{"System.ArgumentNullException", "System.Exception", true},
		{"System.ArgumentException", "System.ArgumentException", true},
		{"System.ArgumentException", "System.ArgumentNullException", false},
		{"System.IO.FileNotFoundException", "System.IO.IOException", true},
		{"System.IO.IOException", "System.InvalidOperationException", false},
		{"System.ObjectDisposedException", "System.InvalidOperationException", true},
	}
	for _, tt := range tests {
		if got := InheritsFrom(look(tt.sub), look(tt.base)); got != tt.want {
			t.Errorf("InheritsFrom(%s, %s) = %v, want %v", tt.sub, tt.base, got, tt.want)
		}
	}
}

func TestInheritsFromCycle(t *testing.T) {
	c := NewCatalog()
	c.Add("A", "B")
	c.Add("B", "A")
	c.Add("C", "")
	c.Link()
	a, _ := c.Lookup("A")
	b, _ := c.Lookup("B")
	other, _ := c.Lookup("C")
	if !InheritsFrom(a, b) {
		t.Fatalf("A should reach B")
	}
	if InheritsFrom(a, other) {
		t.Fatalf("cyclic chain must terminate with false")
	}
	if n := len(Chain(a)); n != 2 {
		t.Fatalf("chain length = %d, want 2", n)
	}
}

func TestInheritsFromDeepChainBounded(t *testing.T) {
	c := NewCatalog()
	c.Add(name(0), "")
	for i := 1; i <= MaxDepth+10; i++ {
		c.Add(name(i), name(i-1))
	}
	c.Link()
	leaf, _ := c.Lookup(name(MaxDepth + 10))
	root, _ := c.Lookup(name(0))
	if InheritsFrom(leaf, root) {
		t.Fatalf("walk past MaxDepth must stop")
	}
	near, _ := c.Lookup(name(MaxDepth))
	if !InheritsFrom(leaf, near) {
		t.Fatalf("base within MaxDepth must be found")
	}
}

func name(i int) string {
	return "T" + string(rune('0'+i/100)) + string(rune('0'+i/10%10)) + string(rune('0'+i%10))
}

func TestResolveUnknown(t *testing.T) {
	c := Builtin()
	if _, ok := Resolve(c, "Nope.MissingException"); ok {
		t.Fatalf("unknown name resolved")
	}
	if _, ok := Resolve(c, "!:Bogus"); ok {
		t.Fatalf("error cref resolved")
	}
	if _, ok := Resolve(nil, "System.Exception"); ok {
		t.Fatalf("nil universe resolved")
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "extra.yaml")
	if err := os.WriteFile(yml, []byte("types:\n  - name: App.DomainException\n    base: System.Exception\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tml := filepath.Join(dir, "extra.toml")
	if err := os.WriteFile(tml, []byte("[[type]]\nname = \"App.RetryException\"\nbase = \"App.DomainException\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := Builtin()
	for _, p := range []string{yml, tml} {
		extra, err := LoadFile(p)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", p, err)
		}
		c.Merge(extra)
	}
	c.Link()

	retry, ok := c.Lookup("App.RetryException")
	if !ok {
		t.Fatalf("extension type missing")
	}
	exc, _ := c.Lookup("System.Exception")
	if !InheritsFrom(retry, exc) {
		t.Fatalf("extension chain must reach System.Exception")
	}

	if _, err := LoadFile(filepath.Join(dir, "x.json")); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
}

func TestBuiltinIsIsolated(t *testing.T) {
	a := Builtin()
	a.Add("Scratch.Exception", "System.Exception")
	b := Builtin()
	if _, ok := b.Lookup("Scratch.Exception"); ok {
		t.Fatalf("Builtin must return independent copies")
	}
}
