package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport() *check.Report {
	r := check.NewReport("links", "/repo")
	r.FilesScanned = 12
	r.Add(
		check.Issue{File: "a.md", Line: 3, Rule: "link-broken", Severity: check.SeverityError, Message: "broken link to b.md"},
		check.Issue{File: "a.md", Line: 9, Rule: "link-broken", Severity: check.SeverityError, Message: "broken link to c.md"},
		check.Issue{File: "d.md", Line: 1, Rule: "link-text", Severity: check.SeverityWarning, Message: "non-descriptive"},
	)
	return r
}

func TestFromReport(t *testing.T) {
	run := FromReport("links", sampleReport(), 1, 1500*time.Millisecond)
	assert.Equal(t, "links", run.Command)
	assert.Equal(t, "/repo", run.Root)
	assert.Equal(t, 12, run.FilesScanned)
	assert.Equal(t, 2, run.Errors)
	assert.Equal(t, 1, run.Warnings)
	assert.Equal(t, 0, run.Infos)
	assert.Equal(t, int64(1500), run.DurationMS)
	assert.Equal(t, map[string]int{"link-broken": 2, "link-text": 1}, run.Rules)
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := FromReport("links", sampleReport(), 1, time.Second)
	first.CreatedAt = base
	require.NoError(t, s.Record(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := FromReport("audit", check.NewReport("audit", "/repo"), 0, time.Second)
	second.CreatedAt = base.Add(time.Hour)
	require.NoError(t, s.Record(ctx, second))

	runs, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "audit", runs[0].Command)
	assert.Equal(t, "links", runs[1].Command)
	assert.Equal(t, map[string]int{"link-broken": 2, "link-text": 1}, runs[1].Rules)
	assert.Nil(t, runs[0].Rules)
	assert.True(t, runs[1].CreatedAt.Equal(base))

	links, err := s.List(ctx, ListOptions{Command: "links"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, first.ID, links[0].ID)

	limited, err := s.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := s.Get(ctx, first.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2, got.Rules["link-broken"])

	_, err = s.Get(ctx, "does-not-exist")
	assert.Error(t, err)
}

func TestTrend(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, errs := range []int{5, 3, 0} {
		r := check.NewReport("links", "/repo")
		for j := 0; j < errs; j++ {
			r.Add(check.Issue{File: "a.md", Line: j + 1, Rule: "link-broken", Severity: check.SeverityError})
		}
		run := FromReport("links", r, 0, 0)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Record(ctx, run))
	}

	trend, err := s.Trend(ctx, "links", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, trend)
}
