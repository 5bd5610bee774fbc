package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/fwscan/internal/analysis"
	"github.com/mvp-joe/fwscan/internal/buildtool"
	"github.com/mvp-joe/fwscan/internal/depgraph"
	"github.com/mvp-joe/fwscan/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the run history:
// - Open creates the database file and its directory and stores the schema version
// - Record assigns a uuid and the current time, Get reads it back
// - List is newest first and honours the limit
// - Get of an unknown id returns ErrRunNotFound
// - Prune keeps the newest runs, keep 0 empties the table, negative keep is rejected
// - runs survive reopening the database file
// - Summarize takes headline numbers from whichever reports are present

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// deterministic, strictly increasing clock
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
}

func TestRecordAndGet(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.Record(ctx, "static", "/proj", Summary{Variables: 12, RAMEstimate: 2048})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 5, 5, 0, time.UTC), run.CreatedAt)

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListAndPrune(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, cmd := range []string{"libs", "static", "deps", "analyze"} {
		run, err := s.Record(ctx, cmd, "/proj", Summary{})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "analyze", runs[0].Command)
	assert.Equal(t, "libs", runs[3].Command)

	runs, err = s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{ids[3], ids[2]}, []string{runs[0].ID, runs[1].ID})

	deleted, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	runs, err = s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[3], runs[0].ID)

	_, err = s.Prune(ctx, -1)
	require.Error(t, err)

	deleted, err = s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	runs, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.Record(ctx, "deps", "/proj", Summary{Cycles: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Summary.Cycles)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))

	r := &analysis.Result{
		Libraries: &analysis.LibraryReport{
			SourceIncludes: map[string][]string{"WiFi": {"main.cpp"}, "SD": {"main.cpp"}},
			TotalIncludes:  3,
			UnusedLibs:     []string{"bblanchon/ArduinoJson"},
			Advice:         []analysis.Advice{{Kind: analysis.AdviceUnusedLibraries}},
		},
		Static: &analysis.StaticReport{
			Variables: []extract.Variable{
				{Name: "a", Storage: extract.StorageRAM, SizeEstimate: 100},
				{Name: "b", Storage: extract.StorageFlash, SizeEstimate: 50},
			},
			StorageStats: map[extract.Storage]analysis.StorageStat{
				extract.StorageRAM:   {Count: 1, Size: 100},
				extract.StorageFlash: {Count: 1, Size: 50},
			},
			BuildInfo:     buildtool.MemoryUsage{RAM: &buildtool.Usage{Used: 46548}},
			QualityIssues: []extract.QualityIssue{{Kind: extract.IssueLongLine}},
			Advice:        []analysis.Advice{{Kind: analysis.AdviceHighRAM}},
		},
		Dependencies: &analysis.DepsReport{
			Graph: &depgraph.Report{Cycles: [][]string{{"a.h", "b.h"}}},
		},
	}

	assert.Equal(t, Summary{
		Libraries:     2,
		UnusedLibs:    1,
		TotalIncludes: 3,
		Variables:     2,
		RAMEstimate:   100,
		BuildRAMUsed:  46548,
		Issues:        1,
		Cycles:        1,
		Advice:        2,
	}, Summarize(r))
}
