package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Deployment.SingleOwner)
	assert.Equal(t, "medium", cfg.Tickets.DefaultUrgency)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
storage:
  driver: badger
  badger_path: /var/lib/rentcore
blob:
  driver: s3
  s3:
    bucket: leases
    region: eu-west-1
tickets:
  default_urgency: low
log:
  level: debug
  format: text
`)
	t.Setenv("RENTCORE_TICKET_URGENCY", "high")
	t.Setenv("RENTCORE_SINGLE_OWNER", "false")
	t.Setenv("RENTCORE_S3_PATH_STYLE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/rentcore", cfg.Storage.BadgerPath)
	assert.Equal(t, "rentcore.db", cfg.Storage.SQLitePath, "unset keys keep their defaults")
	assert.Equal(t, "leases", cfg.Blob.S3.Bucket)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, "high", cfg.Tickets.DefaultUrgency, "environment wins over the file")
	assert.False(t, cfg.Deployment.SingleOwner)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeFile(t, "storage: [nope"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeFile(t, "storage:\n  driver: floppy\n"))
	assert.ErrorContains(t, err, "Storage.Driver")

	t.Setenv("RENTCORE_SINGLE_OWNER", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "RENTCORE_SINGLE_OWNER")
}

func TestValidateRequiresFilesystemRoot(t *testing.T) {
	cfg := Default()
	cfg.Blob.FSRoot = ""
	assert.ErrorContains(t, cfg.Validate(), "FSRoot")

	cfg.Blob.Driver = "memory"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvIgnoresUnsetKeys(t *testing.T) {
	cfg := Default()
	require.NoError(t, applyEnv(&cfg, func(key string) (string, bool) {
		if key == "RENTCORE_LOG_FORMAT" {
			return " text ", true
		}
		return "", false
	}))
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "bogus", Format: "TEXT"}, &buf).Info("plain")
	assert.True(t, strings.HasPrefix(buf.String(), "time="))
	assert.Contains(t, buf.String(), "msg=plain")
}
