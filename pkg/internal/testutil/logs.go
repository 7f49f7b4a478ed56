package testutil

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

// LogBuffer is a goroutine safe sink for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// CaptureLogs redirects the application logger into a buffer at the given
// level until the test ends.
func CaptureLogs(t *testing.T, level logger.LogLevel) *LogBuffer {
	t.Helper()
	original := logger.Logger
	buf := &LogBuffer{}
	logger.Logger = slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.SetLogLevel(level)
	t.Cleanup(func() {
		logger.Logger = original
		logger.SetLogLevel(logger.INFO)
	})
	return buf
}
