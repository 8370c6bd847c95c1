package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqtt-tools/go-mqtt-cli/internal/config"
)

func TestDefaults(t *testing.T) {
	c := config.Default()
	assert.Equal(t, "127.0.0.1", c.BrokerIP)
	assert.Equal(t, 1883, c.BrokerPort)
	assert.Equal(t, 300, c.KeepAlive)
	assert.Equal(t, 1, c.Sequence)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_mqtt.conf")
	contents := "broker_ip=192.168.1.10\nbroker_port=8883\nqos=2\nretain=1\n# a comment\nclient_loop=yes\nsome_future_key=whatever\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	c, unknown, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", c.BrokerIP)
	assert.Equal(t, 8883, c.BrokerPort)
	assert.Equal(t, 2, c.QoS)
	assert.True(t, c.Retain)
	assert.True(t, c.ClientLoop)

	require.Len(t, unknown, 1)
	assert.Equal(t, "some_future_key", unknown[0].Key)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := config.Load(filepath.Join(t.TempDir(), "missing.conf"))
	require.Error(t, err)
}

func TestLoadMalformedValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.conf")
	require.NoError(t, os.WriteFile(path, []byte("qos=not-a-number\n"), 0o644))

	_, _, err := config.Load(path)
	require.Error(t, err)
}
