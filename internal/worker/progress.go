package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress tracks and displays how many hierarchy cells are finished.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	degraded  int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a new progress tracker.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records finished cells. degraded counts cells that stopped short of
// their tone target.
func (p *Progress) Update(completed, total, degraded int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.degraded = degraded
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Print displays the current progress to output.
func (p *Progress) Print() {
	p.mu.RLock()
	completed := p.completed
	total := p.total
	degraded := p.degraded
	startTime := p.startTime
	p.mu.RUnlock()

	elapsed := time.Since(startTime)

	var rate float64
	var eta time.Duration
	if completed > 0 {
		rate = float64(completed) / elapsed.Seconds()
		remaining := total - completed
		if rate > 0 {
			eta = time.Duration(float64(remaining)/rate) * time.Second
		}
	}

	barWidth := 30
	filledWidth := 0
	if total > 0 {
		filledWidth = completed * barWidth / total
	}
	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", barWidth-filledWidth)

	line := fmt.Sprintf("\r[%s] %d/%d cells", bar, completed, total)
	if degraded > 0 {
		line += fmt.Sprintf(" (%d degraded)", degraded)
	}
	if eta > 0 && completed < total {
		line += fmt.Sprintf(" - ETA: %s", formatDuration(eta))
	}
	if completed == total {
		line += fmt.Sprintf(" - Done in %s", formatDuration(elapsed))
	}

	// Pad to clear previous line content
	line += "          "

	fmt.Fprint(p.output, line)
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line summary of the finished work.
func (p *Progress) Summary() string {
	p.mu.RLock()
	completed := p.completed
	total := p.total
	degraded := p.degraded
	startTime := p.startTime
	p.mu.RUnlock()

	return fmt.Sprintf("Built %d/%d cells (%d degraded) in %s",
		completed, total, degraded, formatDuration(time.Since(startTime)))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
