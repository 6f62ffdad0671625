package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_InvalidLevel(t *testing.T) {
	err := Init("loud", "json", "stdout")
	assert.Error(t, err)
}

func TestInit_WritesJSONToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("info", "json", path))

	Debug("hidden")
	Info("analysis completed", zap.String("target", "https://example.com"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug lines must be filtered at info level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "analysis completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "https://example.com", entry["target"])
}

func TestGetLogger_NotNilBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestNamed_TagsComponent(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("info", "json", path))

	Named("ratelimit").Info("rate limit exceeded")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "ratelimit", entry["component"])
}

func TestInit_UnwritableFile(t *testing.T) {
	err := Init("info", "json", filepath.Join(t.TempDir(), "missing", "app.log"))
	assert.Error(t, err)
}
