// Package manifest reads the declared library dependencies of a PlatformIO
// project and reconciles them against the libraries the sources use.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultKey is the option that lists declared libraries.
const DefaultKey = "lib_deps"

// maxLineLength bounds a single manifest line; build_flags lines can be long.
const maxLineLength = 64 << 20

// LoadDeclared reads path and returns its declared dependencies. A missing
// file is not an error: it yields no declarations and found=false.
func LoadDeclared(path string) (deps []string, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	deps, err = ParseDeclared(f)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return deps, true, nil
}

// ParseDeclared extracts the entries of every lib_deps block, deduplicated
// in first-seen order.
//
// A block opens on a line starting with "lib_deps" (an inline value after
// "=" counts as an entry). Inside it, ";" and "#" comments and "-" lines are
// skipped; a "[section]" line, a blank line or a new unindented "key ="
// line closes it.
func ParseDeclared(r io.Reader) ([]string, error) {
	deps := []string{}
	seen := make(map[string]bool)
	add := func(entry string) {
		if entry == "" || seen[entry] {
			return
		}
		seen[entry] = true
		deps = append(deps, entry)
	}

	inBlock := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, DefaultKey) {
			inBlock = true
			if _, value, ok := strings.Cut(line, "="); ok {
				add(strings.TrimSpace(value))
			}
			continue
		}
		if !inBlock {
			continue
		}

		switch {
		case line == "", strings.HasPrefix(line, "["):
			inBlock = false
		case strings.HasPrefix(line, ";"), strings.HasPrefix(line, "#"), strings.HasPrefix(line, "-"):
			// comment or flag line inside the block
		case isNewKey(raw):
			inBlock = false
		default:
			add(stripInlineComment(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return deps, nil
}

// isNewKey reports an unindented "key = value" line, which starts the next
// option of the section.
func isNewKey(raw string) bool {
	if raw == "" || raw[0] == ' ' || raw[0] == '\t' {
		return false
	}
	key, _, ok := strings.Cut(raw, "=")
	return ok && !strings.ContainsAny(strings.TrimSpace(key), " /@")
}

func stripInlineComment(line string) string {
	if i := strings.Index(line, " ;"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
