package host

import (
	"bytes"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

// LineWriter buffers output until a newline and emits each complete line.
type LineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(line string)
}

// NewLineWriter creates a writer calling emit once per line.
func NewLineWriter(emit func(line string)) *LineWriter {
	return &LineWriter{emit: emit}
}

// NewLogWriter creates a line writer logging each line at info level.
func NewLogWriter(l *zap.Logger, stream string) *LineWriter {
	return NewLineWriter(func(line string) {
		l.Info(line, zap.String("stream", stream))
	})
}

// Write buffers p and emits every line it completes. It always consumes all of p.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, toValidUTF8(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	w.mu.Unlock()

	for _, line := range lines {
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	rest := w.buf
	w.buf = nil
	w.mu.Unlock()
	if len(rest) > 0 {
		w.emit(toValidUTF8(rest))
	}
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return string(bytes.ToValidUTF8(b, []byte("�")))
}
