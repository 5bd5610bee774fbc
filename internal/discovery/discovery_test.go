package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileDiscovery:
// - .cpp files are discovered as code, .h files as headers, at any depth
// - root-level files match "**/" patterns
// - ignore patterns skip whole directories
// - .fwscan is always ignored
// - other extensions are not returned
// - a missing root is an error
// - an unreadable subdirectory is skipped and the rest is still returned
// - an invalid glob pattern is rejected at construction

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestDiscoverFiles_ClassifiesCodeAndHeaders(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.cpp":                   "",
		"app/core/app_main.cpp":      "",
		"app/core/app_main.h":        "",
		"drivers/led/led_driver.h":   "",
		"README.md":                  "",
		"build/generated/output.cpp": "",
		".fwscan/cache.cpp":          "",
	})

	fd, err := NewFileDiscovery(root, []string{"**/*.cpp"}, []string{"**/*.h"}, []string{"build/**"})
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)

	byRel := map[string]Kind{}
	for _, f := range files {
		byRel[f.Rel] = f.Kind
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(f.Rel)), f.Path)
	}

	assert.Equal(t, map[string]Kind{
		"main.cpp":                 KindCode,
		"app/core/app_main.cpp":    KindCode,
		"app/core/app_main.h":      KindHeader,
		"drivers/led/led_driver.h": KindHeader,
	}, byRel)
}

func TestDiscoverFiles_MissingRoot(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery(filepath.Join(t.TempDir(), "missing"), []string{"**/*.cpp"}, nil, nil)
	require.NoError(t, err)

	_, err = fd.DiscoverFiles()
	assert.Error(t, err)
}

func TestDiscoverFiles_UnreadableSubdirectory(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.cpp":          "",
		"secret/hidden.cpp": "",
		"zeta/last.cpp":     "",
	})
	secret := filepath.Join(root, "secret")
	require.NoError(t, os.Chmod(secret, 0000))
	t.Cleanup(func() { os.Chmod(secret, 0755) })

	fd, err := NewFileDiscovery(root, []string{"**/*.cpp"}, nil, nil)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	assert.Equal(t, []string{"main.cpp", "zeta/last.cpp"}, rels)
}

func TestNewFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(".", []string{"[unclosed"}, nil, nil)
	assert.Error(t, err)
}
