package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"negative", -time.Second, "n/a"},
		{"seconds", 42 * time.Second, "42 seconds"},
		{"minutes", 3*time.Minute + 5*time.Second, "3 minutes, 5 seconds"},
		{"hours", 2*time.Hour + 30*time.Minute, "2 hours, 30 minutes"},
		{"days", 50 * time.Hour, "2 days, 2 hours"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatDuration(tc.duration))
		})
	}
}

func TestFormatBlockLag(t *testing.T) {
	assert.Equal(t, "7 blocks until start block 1234567", FormatBlockLag(1234560, 1234567))
	assert.Equal(t, "at start block 1234567", FormatBlockLag(1234567, 1234567))
	assert.Equal(t, "100 blocks past start block 1234567", FormatBlockLag(1234667, 1234567))
}
