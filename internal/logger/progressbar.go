package logger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/harrison/nbcheck/internal/models"
)

// Bar segment characters, one per outcome.
const (
	passedMark  = "="
	skippedMark = "s"
	failedMark  = "x"
)

// ProgressBar renders how far a suite has got and how its finished notebooks
// turned out. Errored notebooks count as failed.
//
//	[===sx     ] 5/10 (50%) 3 passed, 1 skipped, 1 failed
type ProgressBar struct {
	total       int
	width       int
	passed      int
	skipped     int
	failed      int
	enableColor bool
	mu          sync.RWMutex
}

// NewProgressBar creates a bar for a suite of total notebooks
func NewProgressBar(total, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		total:       total,
		width:       width,
		enableColor: enableColor,
	}
}

// Update takes the outcome counts of the notebooks finished so far.
func (pb *ProgressBar) Update(result models.SuiteResult) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.passed = result.Passed
	pb.skipped = result.Skipped
	pb.failed = result.Failed + result.Errored
}

// Done returns the number of finished notebooks.
func (pb *ProgressBar) Done() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.done()
}

func (pb *ProgressBar) done() int {
	return pb.passed + pb.skipped + pb.failed
}

// Percentage returns the share of finished notebooks (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percentage()
}

func (pb *ProgressBar) percentage() int {
	if pb.total <= 0 {
		return 0
	}
	return min(max(pb.done()*100/pb.total, 0), 100)
}

// cells converts a cumulative notebook count to a bar position.
func (pb *ProgressBar) cells(count int) int {
	if pb.total <= 0 {
		return 0
	}
	return min(count*pb.width/pb.total, pb.width)
}

// Render draws the bar with one segment per outcome, in the order passed,
// skipped, failed.
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	passedEnd := pb.cells(pb.passed)
	skippedEnd := pb.cells(pb.passed + pb.skipped)
	failedEnd := pb.cells(pb.done())

	segments := []struct {
		mark  string
		n     int
		color color.Attribute
	}{
		{passedMark, passedEnd, color.FgGreen},
		{skippedMark, skippedEnd - passedEnd, color.FgYellow},
		{failedMark, failedEnd - skippedEnd, color.FgRed},
	}

	var bar strings.Builder
	bar.WriteString("[")
	for _, seg := range segments {
		text := strings.Repeat(seg.mark, seg.n)
		if pb.enableColor && text != "" {
			text = color.New(seg.color).Sprint(text)
		}
		bar.WriteString(text)
	}
	bar.WriteString(strings.Repeat(" ", pb.width-failedEnd))
	bar.WriteString("]")

	return fmt.Sprintf("%s %d/%d (%d%%) %d passed, %d skipped, %d failed",
		bar.String(), pb.done(), pb.total, pb.percentage(), pb.passed, pb.skipped, pb.failed)
}
