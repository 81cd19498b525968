// Package logging routes jwalterweatherman output away from the terminal,
// which belongs to the TUI, into a log file and an in-memory tail.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/armon/circbuf"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Tail keeps the most recent log output in a circular buffer so it can be
// shown inside the UI.
type Tail struct {
	threshold jww.Threshold
	b         *circbuf.Buffer
	mux       sync.Mutex
}

// NewTail creates a Tail that keeps at most maxSize bytes of logs at or above
// threshold.
func NewTail(threshold jww.Threshold, maxSize int) (*Tail, error) {
	b, err := circbuf.NewBuffer(int64(maxSize))
	if err != nil {
		return nil, errors.Wrap(err, "could not create new circular buffer")
	}
	return &Tail{threshold: threshold, b: b}, nil
}

// Write adheres to the io.Writer interface.
func (t *Tail) Write(p []byte) (int, error) {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.b.Write(p)
}

// Listen adheres to the [jwalterweatherman.LogListener] type.
func (t *Tail) Listen(threshold jww.Threshold) io.Writer {
	if threshold < t.threshold {
		return nil
	}
	return t
}

// Lines returns up to n of the most recent complete log lines, oldest first.
// The first line in the buffer is dropped when it may have been cut by the
// buffer wrapping.
func (t *Tail) Lines(n int) []string {
	t.mux.Lock()
	text := string(t.b.Bytes())
	wrapped := t.b.TotalWritten() > t.b.Size()
	t.mux.Unlock()

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if wrapped && len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// ParseThreshold validates a numeric log level.
func ParseThreshold(level int) (jww.Threshold, error) {
	threshold := jww.Threshold(level)
	if threshold < jww.LevelTrace || threshold > jww.LevelFatal {
		return 0, errors.Errorf("log level is not valid: log level: %d", level)
	}
	return threshold, nil
}

// Init configures jww. Stdout output is always disabled. logPath "-" logs to
// stderr, "" disables file logging, anything else is appended to. The returned
// closer releases the log file.
func Init(level int, logPath string, tailSize int) (*Tail, io.Closer, error) {
	threshold, err := ParseThreshold(level)
	if err != nil {
		return nil, nil, err
	}

	tail, err := NewTail(threshold, tailSize)
	if err != nil {
		return nil, nil, err
	}

	jww.SetStdoutOutput(io.Discard)
	jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	jww.SetLogThreshold(threshold)

	var closer io.Closer = nopCloser{}
	switch logPath {
	case "":
		jww.SetLogOutput(io.Discard)
	case "-":
		jww.SetLogOutput(os.Stderr)
	default:
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			return nil, nil, errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open log file %s", logPath)
		}
		jww.SetLogOutput(f)
		closer = f
	}
	jww.SetLogListeners(tail.Listen)

	jww.INFO.Printf("Log level set to: %v", threshold)
	return tail, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
