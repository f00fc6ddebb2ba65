package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cryptoetl/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

// go test -v --run TestNewWritesJSONFile
func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pipeline.log")

	log, err := New(config.LogConfig{
		Level:       "info",
		Format:      "console",
		OutputFile:  path,
		Environment: "dev",
	})
	require.NoError(t, err)

	log.Debug("dropped")
	log.Info("run finished", zap.String("asset_id", "bitcoin"))
	_ = log.Sync() // stdout sync fails on pipes; the file core writes synchronously

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "bitcoin", entry["asset_id"])
}
