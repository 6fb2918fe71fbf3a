package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		version string
		enabled bool
		plain   bool
	}{
		{version: "1.2.3", enabled: false, plain: true},
		{version: "1.2.3-rc.1+build.123", enabled: true},
		{version: "0.1.0-dev", enabled: true},
		{version: "nightly", enabled: true, plain: true},
	}
	for _, tt := range tests {
		Version = tt.version
		got := Colored(tt.enabled)
		if tt.plain {
			if got != tt.version {
				t.Errorf("Colored(%v) for %q = %q, want it unchanged", tt.enabled, tt.version, got)
			}
			continue
		}
		if !strings.Contains(got, "\x1b[") {
			t.Errorf("Colored(true) for %q has no escape codes: %q", tt.version, got)
		}
		if i := strings.IndexAny(tt.version, "-+"); i >= 0 && !strings.HasSuffix(got, tt.version[i:]) {
			t.Errorf("suffix of %q lost: %q", tt.version, got)
		}
	}

	Version = "  "
	if got := Colored(false); got != "dev" {
		t.Errorf("blank version = %q, want dev", got)
	}
}
