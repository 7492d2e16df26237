package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner draws a one-line spinner until stopped. It is used before the
// full-screen chat takes over the terminal.
type SimpleSpinner struct {
	out      io.Writer
	message  string
	spinner  spinner.Spinner
	interval time.Duration

	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// NewConnectionSpinner creates a spinner for network operations (Globe style).
func NewConnectionSpinner(out io.Writer, message string) *SimpleSpinner {
	return &SimpleSpinner{
		out:      out,
		message:  message,
		spinner:  spinner.Globe,
		interval: 180 * time.Millisecond,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		defer close(s.finished)

		frames := s.spinner.Frames
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", SpinnerStyle.Render(frames[i%len(frames)]), s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line. Later calls are no-ops.
func (s *SimpleSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		<-s.finished
		fmt.Fprint(s.out, "\r\033[K")
	})
}

func (s *SimpleSpinner) Success(message string) {
	s.Stop()
	PrintSuccess(s.out, message)
}

func (s *SimpleSpinner) Error(message string) {
	s.Stop()
	PrintError(s.out, message)
}
