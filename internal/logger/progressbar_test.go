package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/harrison/nbcheck/internal/models"
)

func counts(passed, skipped, failed, errored int) models.SuiteResult {
	return models.SuiteResult{Passed: passed, Skipped: skipped, Failed: failed, Errored: errored}
}

// TestProgressBarRender verifies the per-outcome segments and the counts
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		result   models.SuiteResult
		total    int
		width    int
		expected string
	}{
		{
			name:     "nothing finished",
			result:   counts(0, 0, 0, 0),
			total:    10,
			width:    10,
			expected: "[          ] 0/10 (0%) 0 passed, 0 skipped, 0 failed",
		},
		{
			name:     "all passed so far",
			result:   counts(5, 0, 0, 0),
			total:    10,
			width:    10,
			expected: "[=====     ] 5/10 (50%) 5 passed, 0 skipped, 0 failed",
		},
		{
			name:     "mixed outcomes",
			result:   counts(3, 1, 1, 0),
			total:    10,
			width:    10,
			expected: "[===sx     ] 5/10 (50%) 3 passed, 1 skipped, 1 failed",
		},
		{
			name:     "errored counts as failed",
			result:   counts(2, 0, 1, 1),
			total:    4,
			width:    8,
			expected: "[====xxxx] 4/4 (100%) 2 passed, 0 skipped, 2 failed",
		},
		{
			name:     "one of three notebooks",
			result:   counts(1, 0, 0, 0),
			total:    3,
			width:    6,
			expected: "[==    ] 1/3 (33%) 1 passed, 0 skipped, 0 failed",
		},
		{
			name:     "segments round on cumulative counts",
			result:   counts(1, 1, 1, 0),
			total:    3,
			width:    4,
			expected: "[=sxx] 3/3 (100%) 1 passed, 1 skipped, 1 failed",
		},
		{
			name:     "zero total",
			result:   counts(0, 0, 0, 0),
			total:    0,
			width:    4,
			expected: "[    ] 0/0 (0%) 0 passed, 0 skipped, 0 failed",
		},
		{
			name:     "overflow clamps",
			result:   counts(7, 0, 0, 0),
			total:    5,
			width:    5,
			expected: "[=====] 7/5 (100%) 7 passed, 0 skipped, 0 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.result)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestProgressBarDefaultWidth verifies invalid widths fall back to 10
func TestProgressBarDefaultWidth(t *testing.T) {
	pb := NewProgressBar(2, 0, false)
	pb.Update(counts(1, 0, 0, 0))
	if got := pb.Render(); !strings.HasPrefix(got, "[=====     ]") {
		t.Errorf("Render() = %q, want 10-wide bar", got)
	}
}

func TestProgressBarPercentage(t *testing.T) {
	pb := NewProgressBar(4, 10, false)
	for i, want := range []int{0, 25, 50, 75, 100} {
		pb.Update(counts(i, 0, 0, 0))
		if got := pb.Percentage(); got != want {
			t.Errorf("Percentage() at %d = %d, want %d", i, got, want)
		}
		if got := pb.Done(); got != i {
			t.Errorf("Done() = %d, want %d", got, i)
		}
	}
}

// TestProgressBarColorKeepsText verifies coloring never changes the counts
func TestProgressBarColorKeepsText(t *testing.T) {
	pb := NewProgressBar(2, 4, true)
	pb.Update(counts(0, 0, 1, 0))
	if got := pb.Render(); !strings.Contains(got, "1/2 (50%) 0 passed, 0 skipped, 1 failed") {
		t.Errorf("Render() = %q, want text preserved", got)
	}
}

func TestProgressBarConcurrency(t *testing.T) {
	pb := NewProgressBar(100, 10, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pb.Update(counts(n, 0, 0, 0))
			_ = pb.Render()
		}(i)
	}
	wg.Wait()

	if p := pb.Percentage(); p < 0 || p > 100 {
		t.Errorf("Percentage() = %d out of range", p)
	}
}
