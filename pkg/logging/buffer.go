package logging

import (
	"strings"
	"sync"
)

// captureDepth is how many lines a LogCaptureWriter keeps.
const captureDepth = 32

// LogCaptureWriter keeps the last captureDepth writes in a ring for the API. Each Write is one line;
// a trailing newline is dropped.
type LogCaptureWriter struct {
	mu   sync.RWMutex
	ring [captureDepth]string
	next int // slot the next write goes to
	size int
}

var (
	// GlobalLogCapture receives server log records at INFO and up.
	GlobalLogCapture = &LogCaptureWriter{}
	// GlobalEventCapture receives one formatted line per flight event.
	GlobalEventCapture = &LogCaptureWriter{}
)

func (w *LogCaptureWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\r\n")

	w.mu.Lock()
	w.ring[w.next] = line
	w.next = (w.next + 1) % captureDepth
	w.size = min(w.size+1, captureDepth)
	w.mu.Unlock()

	return len(p), nil
}

// GetLastLine returns the most recent line, or "" if nothing was written.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.size == 0 {
		return ""
	}
	return w.ring[(w.next+captureDepth-1)%captureDepth]
}

// Recent returns up to n lines, oldest first. n <= 0 returns everything kept.
func (w *LogCaptureWriter) Recent(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > w.size {
		n = w.size
	}
	out := make([]string, n)
	start := w.next - n + captureDepth
	for i := range out {
		out[i] = w.ring[(start+i)%captureDepth]
	}
	return out
}
