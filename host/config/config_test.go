package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc3k/hci"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cc3k.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyACM0
  baud: 115200
  read_timeout: 5s
wifi:
  ssid: workshop
  security: wpa2
  key: hunter22
policy:
  fast_connect: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 5*time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, "workshop", cfg.Wifi.SSID)
	assert.Equal(t, "hunter22", cfg.Wifi.Key)
	assert.False(t, cfg.Policy.OpenAP)
	assert.True(t, cfg.Policy.FastConnect)

	sec, err := cfg.SecurityType()
	require.NoError(t, err)
	assert.Equal(t, uint32(hci.SecurityWPA2), sec)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyACM1
wifi:
  ssid: openlab
  security: open
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 921600, cfg.Serial.Baud)
	assert.Equal(t, 2*time.Second, cfg.Serial.ReadTimeout)

	sec, err := cfg.SecurityType()
	require.NoError(t, err)
	assert.Equal(t, uint32(hci.SecurityOpen), sec)
}

func TestSecurityTypeMapping(t *testing.T) {
	cases := []struct {
		name string
		want uint32
	}{
		{"", hci.SecurityOpen},
		{"open", hci.SecurityOpen},
		{"wep", hci.SecurityWEP},
		{"wpa", hci.SecurityWPA},
		{"wpa2", hci.SecurityWPA2},
	}
	for _, tc := range cases {
		cfg := &Config{Wifi: WifiConfig{Security: tc.name}}
		sec, err := cfg.SecurityType()
		require.NoError(t, err, "security %q", tc.name)
		assert.Equal(t, tc.want, sec, "security %q", tc.name)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "missing device",
			body: "wifi:\n  ssid: x\n",
		},
		{
			name: "missing ssid",
			body: "serial:\n  device: /dev/ttyACM0\n",
		},
		{
			name: "unknown security",
			body: "serial:\n  device: /dev/ttyACM0\nwifi:\n  ssid: x\n  security: wpa3\n  key: k\n",
		},
		{
			name: "secured network without key",
			body: "serial:\n  device: /dev/ttyACM0\nwifi:\n  ssid: x\n  security: wpa2\n",
		},
		{
			name: "malformed yaml",
			body: "serial: [\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
