package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"+6h", time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{"+1d", time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)},
		{"2d", time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)},
		{"-1d", time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{"+2w", time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)},
		{"+3m", time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"+0h", now},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseCompactDurationRejects(t *testing.T) {
	now := time.Now()
	for _, bad := range []string{"", "+", "6", "+6x", "++6h", "6 h", "h6", "+1.5d"} {
		_, err := ParseCompactDuration(bad, now)
		assert.Error(t, err, bad)
		assert.False(t, IsCompactDuration(bad), bad)
	}
}

func TestParseCompactDurationMonthOverflow(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to Mar 3 (2025 is not a leap year).
	now := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1m", now)
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseAbsolute(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, loc)

	got, err := ParseAbsolute("2025-02-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, loc), got)

	got, err = ParseAbsolute("2025-02-01 17:30", now)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Hour())
	assert.Equal(t, loc, got.Location())

	got, err = ParseAbsolute("2025-03-15T14:30:00Z", now)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC).Equal(got))

	_, err = ParseAbsolute("15/03/2025", now)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	// Wednesday, January 15, 2025
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		input     string
		wantMonth time.Month
		wantDay   int
		wantHour  int // -1 skips the check
	}{
		{"+1d", time.January, 16, 10},
		{"+6h", time.January, 15, 16},
		{"2025-02-01", time.February, 1, 0},
		{"2025-03-15T14:30:00Z", time.March, 15, 14},
		{"tomorrow", time.January, 16, -1},
		{"Tomorrow", time.January, 16, -1},
		{"next monday", time.January, 20, -1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonth, got.Month())
			assert.Equal(t, tt.wantDay, got.Day())
			if tt.wantHour >= 0 {
				assert.Equal(t, tt.wantHour, got.Hour())
			}
		})
	}
}

func TestParseCompactTakesPrecedence(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	got, err := Parse("+1d", now)
	require.NoError(t, err)
	assert.True(t, now.AddDate(0, 0, 1).Equal(got))
}

func TestParseErrors(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, bad := range []string{"", "   ", "not-a-date", "qwerty"} {
		_, err := Parse(bad, now)
		assert.Error(t, err, bad)
	}
}
