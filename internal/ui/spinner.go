package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner animation frames, braille scan pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner displays an animated status indicator with a label. Used while a
// blocking inventory refresh or probe sweep is in flight.
type Spinner struct {
	mu        sync.Mutex
	label     string
	frame     int
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
	output    func(string)
	running   bool
	lastLine  string
}

// NewSpinner creates a spinner with the given label.
// Output defaults to fmt.Print; use SetOutput to redirect.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:  label,
		output: func(s string) { fmt.Print(s) },
	}
}

// SetOutput redirects the spinner's output, mainly for tests.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	s.render()
	go s.animate()
}

// Success stops the spinner and prints a check with elapsed time.
func (s *Spinner) Success() {
	s.finish(SymbolSuccess, ColorSuccess)
}

// Fail stops the spinner and prints a cross with elapsed time.
func (s *Spinner) Fail() {
	s.finish(SymbolFail, ColorError)
}

func (s *Spinner) animate() {
	defer close(s.doneChan)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	line := fmt.Sprintf("%s %s...", style.Render(spinnerFrames[s.frame]), s.label)
	s.output("\r" + line)
	s.lastLine = line
}

func (s *Spinner) finish(symbol string, color lipgloss.Color) {
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastLine != "" {
		s.output("\r" + strings.Repeat(" ", len([]rune(s.lastLine))) + "\r")
	}
	symbolStyle := lipgloss.NewStyle().Foreground(color)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	s.output(fmt.Sprintf("%s %s %s\n",
		symbolStyle.Render(symbol),
		s.label,
		timingStyle.Render(FormatDuration(time.Since(s.startTime))),
	))
}

// FormatDuration formats a duration for display. Sub-minute values keep
// fractional seconds for timings ("0.3s", "1.2s"); longer values switch
// to minute and hour units for things like cache age ("12m30s", "2h0m").
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 0.1:
		return fmt.Sprintf("%.2fs", secs)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", secs)
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(secs)%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
