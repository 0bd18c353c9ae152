package backend

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// lineLogger turns a child's output stream into one log entry per line.
type lineLogger struct {
	mu  sync.Mutex
	log zerolog.Logger
	buf []byte
}

func newLineLogger(l zerolog.Logger) *lineLogger {
	return &lineLogger{log: l}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(w.buf[:i], "\r")
		if len(line) > 0 {
			w.log.Info().Msg(string(line))
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
