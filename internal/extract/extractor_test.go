package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/fwscan/internal/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Extractor:
// - code files feed library, call, directive, quality and variable passes
// - header files only feed the variable pass
// - unreadable files are skipped and recorded, the scan continues
// - library usage keeps unique sorted files and counts every occurrence
// - file hooks see each successfully read file
// - progress reporter receives start, per-file and completion callbacks
// - a cancelled context stops the scan

type recordingProgress struct {
	total    int
	scanned  []string
	complete bool
}

func (r *recordingProgress) OnScanStart(totalFiles int)    { r.total = totalFiles }
func (r *recordingProgress) OnFileScanned(fileName string) { r.scanned = append(r.scanned, fileName) }
func (r *recordingProgress) OnScanComplete(model *Model)   { r.complete = true }

func sourceFiles(t *testing.T, root string, files map[string]string) []discovery.File {
	t.Helper()
	var out []discovery.File
	for _, rel := range []string{"app/net.cpp", "drivers/display.cpp", "core/config.h"} {
		content, ok := files[rel]
		if !ok {
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		kind := discovery.KindCode
		if filepath.Ext(rel) == ".h" {
			kind = discovery.KindHeader
		}
		out = append(out, discovery.File{Path: path, Rel: rel, Kind: kind})
	}
	return out
}

func TestExtract_BuildsModel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := sourceFiles(t, root, map[string]string{
		"app/net.cpp":         "#include <WiFi.h>\n#include <WiFiClient.h>\n\nvoid connect() {\n  WiFi.begin(ssid, pass);\n}\n",
		"drivers/display.cpp": "#include <TFT_eSPI.h>\n#include \"display.h\"\n\nTFT_eSPI tft;\n",
		"core/config.h":       "#include <WiFi.h>\nint retries = 5;\n          int deep = 1000;\n",
	})
	files = append(files, discovery.File{Path: filepath.Join(root, "missing.cpp"), Rel: "missing.cpp", Kind: discovery.KindCode})

	var hooked []string
	progress := &recordingProgress{}
	e := NewExtractor(
		WithProgress(progress),
		WithFileHook(func(f discovery.File, content []byte) { hooked = append(hooked, f.Rel) }),
	)

	model, err := e.Extract(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"app/net.cpp", "drivers/display.cpp", "core/config.h"}, model.Files)
	assert.Equal(t, []string{"missing.cpp"}, model.Skipped)
	assert.Equal(t, model.Files, hooked)

	// Header includes are not counted
	assert.Equal(t, []string{"TFT_eSPI", "WiFi"}, model.LibraryLabels())
	assert.Equal(t, &LibraryUsage{Label: "WiFi", Files: []string{"app/net.cpp"}, Count: 2}, model.Libraries["WiFi"])
	assert.Equal(t, 3, model.TotalIncludeOccurrences())

	assert.Equal(t, map[string]int{"WiFi::WiFi.begin": 1}, model.Calls)

	assert.Contains(t, model.Directives, "drivers/display.cpp")
	assert.NotContains(t, model.Directives, "core/config.h")
	assert.Contains(t, model.HeaderDirectives, "core/config.h")
	assert.Len(t, model.Directives["drivers/display.cpp"], 2)

	// TFT_eSPI tft; plus the two header globals
	names := map[string]Scope{}
	for _, v := range model.Variables {
		names[v.Name] = v.Scope
	}
	assert.Equal(t, map[string]Scope{"tft": ScopeGlobal, "retries": ScopeGlobal}, names)

	// The deeply nested line is in a header, so the quality pass skips it
	assert.Empty(t, model.Issues)

	assert.Equal(t, 4, progress.total)
	assert.Len(t, progress.scanned, 4)
	assert.True(t, progress.complete)
}

func TestExtract_QualityIssuesFromCodeFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := sourceFiles(t, root, map[string]string{
		"app/net.cpp": "void f() {\n        delay(2000);\n}\n",
	})

	model, err := NewExtractor().Extract(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, model.Issues, 2)
	assert.Equal(t, IssueDeepNesting, model.Issues[0].Kind)
	assert.Equal(t, IssueMagicNumber, model.Issues[1].Kind)
	assert.Equal(t, 2, model.Issues[1].Line)
}

func TestExtract_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := sourceFiles(t, root, map[string]string{"app/net.cpp": "int x;\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor().Extract(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}
