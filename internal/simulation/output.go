package simulation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// maxLineLength caps buffered output so an engine that never prints a newline cannot grow memory unbounded.
const maxLineLength = 64 * 1024

// lineLogger is an io.Writer that emits one log record per line of engine output.
type lineLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  slog.Level
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)
	rest := l.buf
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		l.emit(rest[:i])
		rest = rest[i+1:]
	}
	if len(rest) > maxLineLength {
		l.emit(rest)
		rest = nil
	}
	l.buf = append(l.buf[:0], rest...)
	return len(p), nil
}

// flush emits a trailing line that was not terminated by a newline.
func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emit(l.buf)
	l.buf = l.buf[:0]
}

func (l *lineLogger) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if text == "" {
		return
	}
	l.logger.Log(context.Background(), l.level, text)
}
