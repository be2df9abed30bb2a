package cli

import (
	"bytes"
	"strings"
	"testing"
)

func captureStatus(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = orig })
	return &buf
}

func TestStatusLines(t *testing.T) {
	buf := captureStatus(t)

	printSuccess("Wrote %d crates", 3)
	printWarning("Ranking returned %d of %d requested crates", 2, 5)
	printInfo("Cache is empty")
	printDetail("Overrides: %s", "crate-modifications.toml")
	printFile("../compiler/base/Cargo.toml")
	printError("failed")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{
		"Wrote 3 crates",
		"Ranking returned 2 of 5 requested crates",
		"Cache is empty",
		"Overrides: crate-modifications.toml",
		"../compiler/base/Cargo.toml",
		"failed",
	} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
	if !strings.HasPrefix(lines[3], "  ") {
		t.Errorf("detail line should be indented: %q", lines[3])
	}
}
