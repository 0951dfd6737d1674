package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
)

var (
	testLoggerInstance Logger
	testLoggerOnce     sync.Once
)

// NewTestLogger returns a shared logger instance suitable for tests.
// It logs at "error" level unless TEST_LOG_LEVEL overrides it, which helps
// when debugging a failing fetch or cache test.
func NewTestLogger() Logger {
	testLoggerOnce.Do(func() {
		level := os.Getenv("TEST_LOG_LEVEL")
		if level == "" {
			level = "error"
		}
		var err error
		testLoggerInstance, err = NewLogger(Config{
			Level:     level,
			Format:    "text",
			Output:    "stderr",
			Component: "test",
			Version:   "test",
		})
		if err != nil {
			panic(err)
		}
	})
	return testLoggerInstance
}

// LogCapture wraps a buffer to capture and inspect log output.
type LogCapture struct {
	buf *bytes.Buffer
	mu  sync.Mutex
}

// Messages returns all captured log output as a string.
func (c *LogCapture) Messages() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Contains checks if the captured log output contains the given substring.
func (c *LogCapture) Contains(substr string) bool {
	return strings.Contains(c.Messages(), substr)
}

// Reset clears all captured messages.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
}

// NewCaptureLogger creates a debug-level logger that writes to a buffer.
//
//	log, capture := logger.NewCaptureLogger()
//	fetcher := results.NewFetcher(transport, results.WithLogger(log))
//	...
//	assert.True(t, capture.Contains("served from cache"))
func NewCaptureLogger() (Logger, *LogCapture) {
	buf := &bytes.Buffer{}
	capture := &LogCapture{buf: buf}

	log, err := NewLogger(Config{
		Level:     "debug", // Capture all levels
		Format:    "text",
		Writer:    buf,
		Component: "test",
		Version:   "test",
	})
	if err != nil {
		panic(err)
	}

	return log, capture
}
