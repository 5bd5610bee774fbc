package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Test Plan for formatting helpers:
// - formatDuration picks the two largest units
// - formatTimeSince is relative to the given now, "never" for the zero time
// - formatNumber inserts thousand separators
// - formatBytes uses binary units

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"5 seconds", 5, "5s"},
		{"90 seconds", 90, "1m"},
		{"5 minutes", 300, "5m"},
		{"90 minutes", 5400, "1h 30m"},
		{"2 hours", 7200, "2h"},
		{"1 day", 86400, "1d"},
		{"1 day 3 hours", 97200, "1d 3h"},
		{"3 days", 259200, "3d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, formatDuration(time.Duration(tt.seconds)*time.Second))
		})
	}
}

func TestFormatTimeSince(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", formatTimeSince(time.Time{}, now))
	assert.Equal(t, "5s ago", formatTimeSince(now.Add(-5*time.Second), now))
	assert.Equal(t, "2h ago", formatTimeSince(now.Add(-2*time.Hour), now))
	assert.Equal(t, "1d 3h ago", formatTimeSince(now.Add(-27*time.Hour), now))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number   int
		expected string
	}{
		{5, "5"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4321, "-4,321"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatNumber(tt.number))
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "3.0 MiB", formatBytes(3*1024*1024))
}
