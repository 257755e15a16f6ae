package tools

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner shows that a blocking tool run is still in progress.
type Spinner struct {
	frames   []string
	interval time.Duration
	out      io.Writer
	mu       sync.Mutex
	running  bool
	done     chan struct{}
	stopped  chan struct{}
	message  string
}

func NewSpinner(message string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		out:      color.Error,
		message:  message,
	}
}

// SetOutput changes where frames are drawn. Must be called before Start.
func (s *Spinner) SetOutput(w io.Writer) {
	s.mu.Lock()
	s.out = w
	s.mu.Unlock()
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	done, stopped, out := s.done, s.stopped, s.out
	s.mu.Unlock()

	go func() {
		defer close(stopped)
		cyan := color.New(color.FgCyan)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(s.frames) {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(out, "\r    %s %s", cyan.Sprint(s.frames[i]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	stopped, out := s.stopped, s.out
	s.mu.Unlock()
	<-stopped
	fmt.Fprint(out, "\r\033[K")
}

func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "    %s %s\n", color.New(color.FgGreen).Sprint("✓"), message)
}

func (s *Spinner) Fail(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "    %s %s\n", color.New(color.FgYellow).Sprint("✗"), message)
}
