package presenter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		value    string
		expected ColorMode
	}{
		{"always", ColorAlways},
		{"FORCE", ColorAlways},
		{"never", ColorNever},
		{"off", ColorNever},
		{"auto", ColorAuto},
		{"", ColorAuto},
		{"rainbow", ColorAuto},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseColorMode(tt.value))
		})
	}
}

func TestColorModeFromEnv(t *testing.T) {
	t.Setenv("DOCGUARD_COLOR", "always")
	t.Setenv("NO_COLOR", "")
	assert.Equal(t, ColorAlways, ColorModeFromEnv())

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, ColorNever, ColorModeFromEnv())
}

func TestError(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)

	p.Error(errors.New("manifest not found"), "manifest")
	assert.Equal(t, "[ERROR] manifest: manifest not found\n", errOut.String())

	errOut.Reset()
	p.Error(errors.New("boom"), "")
	assert.Equal(t, "[ERROR] boom\n", errOut.String())

	errOut.Reset()
	p.Error(nil, "ignored")
	assert.Empty(t, errOut.String())
	assert.Empty(t, out.String())
}

func TestQuietMode(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())

	p.Success("done")
	p.Warning("careful")
	p.Info("fyi")
	p.Section("Links")
	p.Separator()
	assert.Empty(t, out.String())

	p.Error(errors.New("still shown"), "")
	assert.Contains(t, errOut.String(), "still shown")
}

func TestSection(t *testing.T) {
	var out bytes.Buffer
	p := NewWithOptions(&out, &out, ColorNever)
	p.Section("Orphans")
	assert.Equal(t, "Orphans\n-------\n", out.String())
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name     string
		blocking int
		total    int
		stdout   string
		stderr   string
	}{
		{"clean", 0, 0, "✓ no issues found\n", ""},
		{"warnings only", 0, 3, "✓ validation passed with 3 non-blocking issues\n", ""},
		{"blocking", 2, 5, "", "✗ validation failed: 2 blocking of 5 issues\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			p := NewWithOptions(&out, &errOut, ColorNever)
			p.Verdict(tt.blocking, tt.total)
			assert.Equal(t, tt.stdout, out.String())
			assert.Equal(t, tt.stderr, errOut.String())
		})
	}
}

func TestVerdictQuietStillReportsFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)
	p.SetQuiet(true)
	p.Verdict(1, 1)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "validation failed")
}
