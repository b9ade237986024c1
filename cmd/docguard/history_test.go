package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jingkaihe/docguard/pkg/history"
	"github.com/stretchr/testify/assert"
)

func TestPrintTrend(t *testing.T) {
	var buf bytes.Buffer
	printTrend(&buf, "check", []int{5, 3, 0})
	assert.Equal(t, "check: 5 → 3 → 0\n", buf.String())

	buf.Reset()
	printTrend(&buf, "", []int{2})
	assert.Equal(t, "all commands: 2\n", buf.String())

	buf.Reset()
	printTrend(&buf, "links", nil)
	assert.Equal(t, "links: no runs recorded\n", buf.String())
}

func TestPrintRuns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{ID: "3f2a9c1e-0000-4000-8000-000000000001", Command: "check", FilesScanned: 12, Errors: 2, Warnings: 1, ExitCode: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "short", Command: "links", FilesScanned: 3, CreatedAt: now.Add(-3 * 24 * time.Hour)},
	}

	var buf bytes.Buffer
	printRuns(&buf, runs, now)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "COMMAND")
	assert.Contains(t, lines[1], "3f2a9c1e")
	assert.NotContains(t, lines[1], "3f2a9c1e-")
	assert.Contains(t, lines[1], "2 hours ago")
	assert.Contains(t, lines[2], "short")
	assert.Contains(t, lines[2], "3 days ago")
}

func TestPrintRun(t *testing.T) {
	run := &history.Run{
		ID:         "abc",
		Command:    "check",
		Root:       "/repo",
		Errors:     1,
		DurationMS: 1500,
		CreatedAt:  time.Now(),
		Rules:      map[string]int{"link-broken": 1, "accuracy-superlative": 4},
	}

	var buf bytes.Buffer
	printRun(&buf, run)
	out := buf.String()

	assert.Contains(t, out, "Command:   check")
	assert.Contains(t, out, "Duration:  1.5s")
	assert.Less(t, strings.Index(out, "accuracy-superlative"), strings.Index(out, "link-broken"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "1234", shortID("1234"))
}
