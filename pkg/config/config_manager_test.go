package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TARGETVIEW_HOME", dir)
	err := os.WriteFile(filepath.Join(dir, "targetview.yaml"), []byte(content), 0644)
	assert.NoError(t, err)
}

func TestConfigManager_LoadAndAccessors(t *testing.T) {
	writeConfig(t, `
inventory:
  url: http://prometheus:9090/api/v1/targets
  refresh_interval: 15s
  bearer_token_file: /var/run/token
  tls:
    insecureSkipVerify: true
web:
  listen: ":9000"
search:
  job_label: service
debug: true
`)

	cm := NewConfigManager()

	assert.Equal(t, "http://prometheus:9090/api/v1/targets", cm.GetInventoryURL())
	assert.Equal(t, "15s", cm.GetRefreshInterval())
	assert.Equal(t, "/var/run/token", cm.GetBearerTokenFile())
	assert.Equal(t, ":9000", cm.GetListenAddress())
	assert.Equal(t, "service", cm.GetJobLabel())
	assert.True(t, cm.GetBool("debug"))

	tls := cm.GetTLSConfig()
	assert.NotNil(t, tls)
	assert.Equal(t, true, tls["insecureSkipVerify"])
}

func TestConfigManager_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("TARGETVIEW_HOME", t.TempDir())

	cm := NewConfigManager()

	assert.Equal(t, "", cm.GetInventoryURL())
	assert.Equal(t, "30s", cm.GetRefreshInterval())
	assert.Equal(t, ":8428", cm.GetListenAddress())
	assert.Equal(t, "job", cm.GetJobLabel())
	assert.Nil(t, cm.GetTLSConfig())
	assert.False(t, cm.GetBool("debug"))
}

func TestConfigManager_ParseInterval(t *testing.T) {
	cm := &ConfigManager{}

	seconds, err := cm.ParseInterval("15s")
	assert.NoError(t, err)
	assert.Equal(t, int64(15), seconds)

	seconds, err = cm.ParseInterval("2m")
	assert.NoError(t, err)
	assert.Equal(t, int64(120), seconds)

	seconds, err = cm.ParseInterval("45")
	assert.NoError(t, err)
	assert.Equal(t, int64(45), seconds)

	seconds, err = cm.ParseInterval("")
	assert.NoError(t, err)
	assert.Equal(t, int64(30), seconds)

	_, err = cm.ParseInterval("abc")
	assert.Error(t, err)
}
