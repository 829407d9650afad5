package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 40

var (
	progressBarStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	progressBarEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	progressPercentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	progressDetailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// progressBar redraws a single status line on w.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
	now   func() time.Time
	drawn bool
}

func newProgressBar(w io.Writer, start time.Time) *progressBar {
	return &progressBar{w: w, start: start, now: time.Now}
}

// Update draws the bar for done of total images.
func (p *progressBar) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, "\r"+p.line(done, total))
	p.drawn = true
}

// Finish ends the status line.
func (p *progressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func (p *progressBar) line(done, total int) string {
	percent := 100.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	elapsed := p.now().Sub(p.start)
	return renderProgressBar(percent, progressWidth) + " " +
		progressPercentStyle.Render(fmt.Sprintf("%3d%%", int(percent))) + " " +
		progressDetailStyle.Render(fmt.Sprintf("%d/%d images, %.1fs", done, total, elapsed.Seconds()))
}

// renderProgressBar draws a bar of width cells filled to percent.
func renderProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	empty := width - filled

	bar := progressBarStyle.Render("[" + strings.Repeat("█", filled))
	bar += progressBarEmptyStyle.Render(strings.Repeat("░", empty) + "]")
	return bar
}
