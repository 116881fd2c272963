package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		" WARN ":  zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"":        zap.InfoLevel,
		"verbose": zap.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.log")
	log := New(Options{Level: "debug", File: path})
	log.Info("attempt submitted", zap.Int("score", 67))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"attempt submitted"`)
	assert.Contains(t, string(raw), `"score":67`)
}
