package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/shopsync/configs"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(configs.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("cache miss", "key", "cachedProducts")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "cache miss", record["msg"])
	assert.Equal(t, "cachedProducts", record["key"])

	// 运行时调整级别
	require.NoError(t, logger.SetLevel("debug"))
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Error(t, logger.SetLevel("loud"))
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(configs.LogConfig{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("fetched", "page", 1)
	assert.Contains(t, buf.String(), "msg=fetched page=1")

	_, err = NewWithWriter(configs.LogConfig{Format: "xml"}, &buf)
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.log")
	logger, err := New(configs.LogConfig{Level: "info", Format: "text", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	_, err = New(configs.LogConfig{Output: "file"})
	assert.Error(t, err)
	_, err = New(configs.LogConfig{Output: "syslog"})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
