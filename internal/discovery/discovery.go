package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/phuslu/log"
)

// Kind tells the scanners which passes a file takes part in.
type Kind string

const (
	// KindCode files (*.cpp by default) get every pass: includes, calls,
	// quality, variables and functions.
	KindCode Kind = "code"
	// KindHeader files (*.h by default) only contribute variables.
	KindHeader Kind = "header"
)

// File is a discovered source file.
type File struct {
	Path string // absolute or root-joined path, used for reading
	Rel  string // slash-separated path relative to the discovery root
	Kind Kind
}

// compiledPattern holds both the pattern string and compiled glob.
// rootGlob is set for "**/" patterns so they also match files directly in the root.
type compiledPattern struct {
	pattern  string
	glob     glob.Glob
	rootGlob glob.Glob
}

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir        string
	codePatterns   []compiledPattern
	headerPatterns []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance rooted at rootDir.
func NewFileDiscovery(rootDir string, codePatterns, headerPatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	var err error
	if fd.codePatterns, err = compilePatterns(codePatterns); err != nil {
		return nil, err
	}
	if fd.headerPatterns, err = compilePatterns(headerPatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}

	return fd, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}

		// "**/*.cpp" should match "main.cpp" as well as "app/main.cpp"
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.rootGlob = rg
			}
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}

// Root returns the directory discovery walks.
func (fd *FileDiscovery) Root() string {
	return fd.rootDir
}

// DiscoverFiles walks the directory tree and returns code and header files
// in lexical walk order. A missing or unreadable root is reported as an
// error; unreadable entries below it are logged and skipped.
func (fd *FileDiscovery) DiscoverFiles() ([]File, error) {
	files := []File{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == fd.rootDir {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) {
			return nil
		}

		switch {
		case matchesAnyPattern(relPath, fd.codePatterns):
			files = append(files, File{Path: path, Rel: relPath, Kind: KindCode})
		case matchesAnyPattern(relPath, fd.headerPatterns):
			files = append(files, File{Path: path, Rel: relPath, Kind: KindHeader})
		}
		return nil
	})

	return files, err
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	// Always ignore fwscan's own state directory
	if strings.HasPrefix(relPath, ".fwscan/") || relPath == ".fwscan" {
		return true
	}

	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "build" should match pattern "build/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	inRoot := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if inRoot && cp.rootGlob != nil && cp.rootGlob.Match(path) {
			return true
		}
	}
	return false
}
