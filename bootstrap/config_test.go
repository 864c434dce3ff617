package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "realmdbg.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHosts, cfg.Hosts)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Nil(t, cfg.Auth)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
hosts = ["devbox", " 192.168.1.20 ", ""]
port = 9090

[auth]
username = "dev"
password = "hunter2"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"devbox", "192.168.1.20"}, cfg.Hosts)
	assert.Equal(t, 9090, cfg.Port)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, "dev", cfg.Auth.Username)
	assert.Equal(t, "hunter2", cfg.Auth.Password)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
hosts = ["devbox"]
port = 9090
`)

	t.Setenv("REALM_DEBUG_HOSTS", "emulator, 10.0.0.5")
	t.Setenv("REALM_DEBUG_PORT", "7001")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator", "10.0.0.5"}, cfg.Hosts)
	assert.Equal(t, 7001, cfg.Port)
}

func TestLoadConfigRejectsInvalidPort(t *testing.T) {
	path := writeConfigFile(t, `port = -1`)
	_, err := LoadConfig(path)
	require.Error(t, err)

	t.Setenv("REALM_DEBUG_PORT", "not-a-port")
	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigRejectsEmptyHosts(t *testing.T) {
	path := writeConfigFile(t, `hosts = ["", "  "]`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "devbox:8082", endpointFor("devbox", 8082))
	assert.Equal(t, "127.0.0.1:51312", endpointFor("127.0.0.1:51312", 8082))
}
