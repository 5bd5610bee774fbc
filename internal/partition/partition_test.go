package partition

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for partition table loading:
// - a row with 5 fields produces one record with fields in order
// - a row with exactly 4 fields is skipped silently
// - blank and comment lines are skipped, extra fields ignored, whitespace trimmed
// - line numbers refer to the source file
// - a missing file is reported as not found, not as an error
// - rows longer than the default scanner buffer are still read
// - ParseSize handles hex, decimal and K/M suffixes and rejects junk
// - leading zeros are decimal, underscores, negatives and overflow are rejected

const table = `# Name,   Type, SubType, Offset,  Size, Flags
nvs,      data, nvs,     0x9000,  0x5000,
otadata,  data, ota,     0xe000,  0x2000

app0,     app,  ota_0,   0x10000, 3M, encrypted
broken,   app,  ota_1,   0x310000
spiffs,   data, spiffs,  0x610000, 1984K,
`

func TestParse(t *testing.T) {
	t.Parallel()

	parts, err := Parse(strings.NewReader(table))
	require.NoError(t, err)

	require.Len(t, parts, 4)
	assert.Equal(t, Partition{Name: "nvs", Type: "data", Subtype: "nvs", Offset: "0x9000", Size: "0x5000", Line: 2}, parts[0])
	assert.Equal(t, "otadata", parts[1].Name)
	assert.Equal(t, Partition{Name: "app0", Type: "app", Subtype: "ota_0", Offset: "0x10000", Size: "3M", Line: 5}, parts[2])
	assert.Equal(t, "spiffs", parts[3].Name)
	assert.Equal(t, 7, parts[3].Line)
}

func TestParse_FourFieldsSkipped(t *testing.T) {
	t.Parallel()

	parts, err := Parse(strings.NewReader("app1, app, ota_1, 0x310000\n"))
	require.NoError(t, err)
	assert.Empty(t, parts)

	parts, err = Parse(strings.NewReader("app1, app, ota_1, 0x310000, 0x300000\n"))
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, Partition{Name: "app1", Type: "app", Subtype: "ota_1", Offset: "0x310000", Size: "0x300000", Line: 1}, parts[0])
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "FLASH_8MB.csv")

	parts, found, err := Load(path)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, parts)

	require.NoError(t, os.WriteFile(path, []byte(table), 0644))
	parts, found, err = Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, parts, 4)
}

func TestParse_LongRow(t *testing.T) {
	t.Parallel()

	long := "spiffs, data, spiffs, 0x290000, 0x170000, " + strings.Repeat("x", 80*1024) + "\n"
	parts, err := Parse(strings.NewReader(long + "nvs, data, nvs, 0x9000, 0x5000\n"))
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "spiffs", parts[0].Name)
	assert.Equal(t, "nvs", parts[1].Name)
	assert.Equal(t, 2, parts[1].Line)
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := map[string]int64{
		"0x5000": 0x5000,
		"20480":  20480,
		"64K":    64 * 1024,
		"3M":     3 * 1024 * 1024,
		" 0x10 ": 16,
		"0X1000": 4096,
		"010":    10,
		"0":      0,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSize("")
	assert.Error(t, err)
	_, err = ParseSize("lots")
	assert.Error(t, err)
	for _, bad := range []string{"1_000", "0x_10", "-4K", "0x", "9223372036854775807M"} {
		_, err = ParseSize(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, int64(0), Partition{Size: "??"}.SizeBytes())
	assert.Equal(t, int64(0x2000), Partition{Size: "0x2000"}.SizeBytes())
}
