package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	log, err := New(Config{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	log.Info("document reviewed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"document reviewed"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPath: "stderr", Format: "console"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
