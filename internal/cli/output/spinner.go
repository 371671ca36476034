package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner displays a progress animation for long-running commands.
type Spinner struct {
	w       io.Writer
	message string

	started bool
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner that writes to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation. Pair it with Stop, Success, or Fail; the
// terminators are safe to call more than once.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.finish("\r\033[K")
}

// Success halts the animation and prints a success line.
func (s *Spinner) Success(message string) {
	s.finish(fmt.Sprintf("\r\033[K✓ %s\n", message))
}

// Fail halts the animation and prints a failure line.
func (s *Spinner) Fail(message string) {
	s.finish(fmt.Sprintf("\r\033[K✗ %s\n", message))
}

// finish closes the animation exactly once and waits for the frame
// goroutine to exit before writing the final line.
func (s *Spinner) finish(line string) {
	s.once.Do(func() {
		close(s.stop)
		if s.started {
			<-s.stopped
		}
		fmt.Fprint(s.w, line)
	})
}
