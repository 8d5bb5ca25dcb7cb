package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(h, m int) time.Time {
	return time.Date(2025, time.June, 10, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"partial overlap", ts(9, 30), ts(10, 30), ts(9, 0), ts(10, 0), true},
		{"contained", ts(9, 15), ts(9, 45), ts(9, 0), ts(10, 0), true},
		{"containing", ts(8, 0), ts(11, 0), ts(9, 0), ts(10, 0), true},
		{"identical", ts(9, 0), ts(10, 0), ts(9, 0), ts(10, 0), true},
		{"back to back", ts(10, 0), ts(10, 30), ts(9, 0), ts(10, 0), false},
		{"back to back reversed", ts(8, 0), ts(9, 0), ts(9, 0), ts(10, 0), false},
		{"disjoint", ts(11, 0), ts(12, 0), ts(9, 0), ts(10, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestHasConflict(t *testing.T) {
	busy := []Interval{
		{Start: ts(9, 0), End: ts(10, 0)},
		{Start: ts(13, 0), End: ts(14, 0)},
	}

	assert.True(t, HasConflict(ts(9, 30), ts(10, 30), busy))
	assert.False(t, HasConflict(ts(10, 0), ts(10, 30), busy))
	assert.False(t, HasConflict(ts(11, 0), ts(11, 30), busy))
	assert.False(t, HasConflict(ts(9, 0), ts(10, 0), nil))
}
