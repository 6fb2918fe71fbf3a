package types

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCatalogFormat is returned for catalog files that are neither TOML
// nor YAML.
var ErrUnknownCatalogFormat = errors.New("unknown catalog format")

//go:embed builtin.toml
var builtinTOML []byte

type catalogEntry struct {
	Name string `toml:"name" yaml:"name"`
	Base string `toml:"base" yaml:"base"`
}

type catalogFile struct {
	Types []catalogEntry `toml:"type" yaml:"types"`
}

var builtin = sync.OnceValue(func() *Catalog {
	c, err := DecodeTOML(builtinTOML)
	if err != nil {
		panic(fmt.Errorf("builtin type catalog: %w", err))
	}
	return c
})

// Builtin returns a fresh linked copy of the embedded catalog of well-known
// exception types.
func Builtin() *Catalog {
	c := builtin().Clone()
	c.Link()
	return c
}

// DecodeTOML reads a catalog of [[type]] tables.
func DecodeTOML(data []byte) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return fromEntries(f.Types)
}

// DecodeYAML reads a catalog with a top-level "types" list.
func DecodeYAML(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return fromEntries(f.Types)
}

// LoadFile reads a catalog file, picking the decoder by extension. The
// result is not linked.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c *Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		c, err = DecodeTOML(data)
	case ".yaml", ".yml":
		c, err = DecodeYAML(data)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownCatalogFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func fromEntries(entries []catalogEntry) (*Catalog, error) {
	c := NewCatalog()
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("type #%d: missing name", i+1)
		}
		c.Add(name, strings.TrimSpace(e.Base))
	}
	return c, nil
}
