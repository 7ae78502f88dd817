package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	logger.Debug("dropped")
	logger.Info("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	logger.SetLevel(ErrorLevel)
	logger.Warn("dropped too")
	logger.Error("still kept")
	assert.NotContains(t, buf.String(), "dropped too")
	assert.Contains(t, buf.String(), "still kept")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	scoped := logger.WithFields(String("component", "Session"), String("session_id", "abc"))
	scoped.Info("dispatching", Int("pending", 3))

	line := buf.String()
	assert.Contains(t, line, "Session: dispatching")
	assert.Contains(t, line, "session_id=abc")
	assert.Contains(t, line, "pending=3")

	// The parent logger is unaffected.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "session_id")
}

func TestTextFormatterValueQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	logger.Info("msg", String("detail", "has spaces"), Err(errors.New("boom")))
	line := buf.String()
	assert.Contains(t, line, `detail="has spaces"`)
	assert.Contains(t, line, `error="boom"`)
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("hello", String("method", "tools/list"), Err(errors.New("boom")))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "hello", record["message"])
	assert.Equal(t, "tools/list", record["method"])
	assert.Equal(t, "boom", record["error"])
	assert.NotEmpty(t, record["time"])
}

func TestNopLogger(t *testing.T) {
	logger := Nop()
	// Must not panic, must accept fields.
	logger.Error("ignored", Any("x", struct{}{}))
	assert.Equal(t, logger, logger.WithFields(String("a", "b")))
}
