package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewStructuredLoggerWithWriter(&LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	NewRequestLogger(logger, "req-1").LogAttrs(context.Background(), slog.LevelInfo, "请求完成", slog.Int("status", 200))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "请求完成", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestStructuredLogger_TextUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewStructuredLoggerWithWriter(&LogConfig{Level: "debug", Format: "text", NoColor: true}, &buf)
	require.NoError(t, err)

	logger.LogAttrs(context.Background(), slog.LevelWarn, "上游缓慢", slog.Int("latency_ms", 1500))
	out := buf.String()
	assert.Contains(t, out, "上游缓慢")
	assert.Contains(t, out, "latency_ms=1500")
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewStructuredLoggerWithWriter(&LogConfig{Level: "error", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.LogAttrs(context.Background(), slog.LevelInfo, "不应输出")
	assert.Empty(t, buf.String())
}

func TestStructuredLogger_InvalidFormat(t *testing.T) {
	_, err := NewStructuredLoggerWithWriter(&LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewLogrus(t *testing.T) {
	logger, err := NewLogrus(&LogConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = NewLogrus(&LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLogrus_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "service.log")
	logger, err := NewLogrus(&LogConfig{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)
	logger.Info("写入文件")
	assert.FileExists(t, path)
}
