// Package partition loads ESP-IDF style flash partition tables.
package partition

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Partition is one row of the table. Fields are kept verbatim.
type Partition struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Subtype string `json:"subtype" yaml:"subtype"`
	Offset  string `json:"offset" yaml:"offset"`
	Size    string `json:"size" yaml:"size"`
	Line    int    `json:"line" yaml:"line"`
}

// maxLineLength bounds a single table row.
const maxLineLength = 64 << 20

// Load reads a partition table file. A missing file yields found=false and
// no error.
func Load(path string) (parts []Partition, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Partition{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to open partition table: %w", err)
	}
	defer f.Close()

	parts, err = Parse(f)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read partition table %s: %w", path, err)
	}
	return parts, true, nil
}

// Parse reads comma-separated rows of name, type, subtype, offset, size.
// Blank and "#" lines are skipped, as are rows with fewer than five fields.
// Extra fields (flags) are ignored.
func Parse(r io.Reader) ([]Partition, error) {
	parts := []Partition{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		parts = append(parts, Partition{
			Name:    fields[0],
			Type:    fields[1],
			Subtype: fields[2],
			Offset:  fields[3],
			Size:    fields[4],
			Line:    lineNum,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

// ParseSize converts a size column ("0x5000", "20480", "64K", "3M") to bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1024
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	}

	base := 10
	digits := s
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		digits = s[2:]
	}
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("invalid size %q: overflows", s)
	}
	return n * mult, nil
}

// SizeBytes returns the parsed size of p, or 0 when it cannot be parsed.
func (p Partition) SizeBytes() int64 {
	n, err := ParseSize(p.Size)
	if err != nil {
		return 0
	}
	return n
}
