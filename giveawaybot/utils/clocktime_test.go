package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextClockTime(t *testing.T) {
	// 10:00 in UTC+1 on 2024-03-15.
	morning := time.Date(2024, 3, 15, 10, 0, 0, 0, watZone)
	// 15:00 in UTC+1 on the same day.
	afternoon := time.Date(2024, 3, 15, 15, 0, 0, 0, watZone)

	tests := []struct {
		name  string
		input string
		now   time.Time
		want  time.Time
	}{
		{
			name:  "later today",
			input: "2:30PM",
			now:   morning,
			want:  time.Date(2024, 3, 15, 14, 30, 0, 0, watZone),
		},
		{
			name:  "already passed rolls to tomorrow",
			input: "2:30PM",
			now:   afternoon,
			want:  time.Date(2024, 3, 16, 14, 30, 0, 0, watZone),
		},
		{
			name:  "exact now rolls to tomorrow",
			input: "3:00PM",
			now:   afternoon,
			want:  time.Date(2024, 3, 16, 15, 0, 0, 0, watZone),
		},
		{
			name:  "midnight as 12AM",
			input: "12AM",
			now:   morning,
			want:  time.Date(2024, 3, 16, 0, 0, 0, 0, watZone),
		},
		{
			name:  "noon as 12PM",
			input: "12:00PM",
			now:   morning,
			want:  time.Date(2024, 3, 15, 12, 0, 0, 0, watZone),
		},
		{
			name:  "minutes optional",
			input: "11am",
			now:   morning,
			want:  time.Date(2024, 3, 15, 11, 0, 0, 0, watZone),
		},
		{
			name:  "24-hour without marker",
			input: "19:05",
			now:   morning,
			want:  time.Date(2024, 3, 15, 19, 5, 0, 0, watZone),
		},
		{
			name:  "surrounding whitespace",
			input: "  2:30pm ",
			now:   morning,
			want:  time.Date(2024, 3, 15, 14, 30, 0, 0, watZone),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextClockTime(tt.input, tt.now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.True(t, got.After(tt.now), "result must be strictly in the future")
		})
	}
}

func TestNextClockTimeRejects(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, watZone)

	inputs := []string{
		"",
		"soon",
		"13:00PM",
		"0:30",
		"00:30",
		"24:00",
		"25:00",
		"2:75PM",
		"2:5PM", // minutes must be two digits
		"12:30 XM",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := NextClockTime(input, now)
			assert.Error(t, err)
		})
	}
}
