package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sitediary/config"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service_name":"sitediary"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestAudit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Audit(zap.New(core), "u1", ActionReportDelete, zap.String("date", "2024-03-01"))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "audit", e.LoggerName)
	fields := e.ContextMap()
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, ActionReportDelete, fields["action"])
	assert.Equal(t, "2024-03-01", fields["date"])
}
