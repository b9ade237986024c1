package acceptance

import (
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	output, code := run(t, t.TempDir(), "version")
	if code != 0 {
		t.Fatalf("version exited with %d: %s", code, output)
	}

	// Version output is JSON with version and gitCommit fields
	if !strings.Contains(output, "version") || !strings.Contains(output, "gitCommit") {
		t.Errorf("Version output should contain version and gitCommit fields. Got: %s", output)
	}
}

func TestVersionCommandHelp(t *testing.T) {
	output, code := run(t, t.TempDir(), "version", "--help")
	if code != 0 {
		t.Fatalf("version --help exited with %d: %s", code, output)
	}
	if !strings.Contains(strings.ToLower(output), "usage") {
		t.Errorf("Version help should contain usage information. Got: %s", output)
	}
}
