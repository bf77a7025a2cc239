// Package config loads the YAML configuration for the host-side tools.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cc3k/hci"
)

// Config is the top-level host tool configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Wifi   WifiConfig   `yaml:"wifi"`
	Policy PolicyConfig `yaml:"policy"`
}

// SerialConfig selects the bridge adapter port.
type SerialConfig struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// WifiConfig carries the network credentials.
type WifiConfig struct {
	SSID     string `yaml:"ssid"`
	Security string `yaml:"security"` // open, wep, wpa, wpa2
	Key      string `yaml:"key"`
}

// PolicyConfig mirrors the co-processor's connection policy flags.
type PolicyConfig struct {
	OpenAP      bool `yaml:"open_ap"`
	FastConnect bool `yaml:"fast_connect"`
	UseProfiles bool `yaml:"use_profiles"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if c.Wifi.SSID == "" {
		return fmt.Errorf("wifi.ssid is required")
	}
	if _, err := c.SecurityType(); err != nil {
		return err
	}
	if c.Wifi.Security != "open" && c.Wifi.Security != "" && c.Wifi.Key == "" {
		return fmt.Errorf("wifi.key is required for %s security", c.Wifi.Security)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Serial.Baud == 0 {
		c.Serial.Baud = 921600
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = 2 * time.Second
	}
}

// SecurityType maps the configured security name to the wire value.
func (c *Config) SecurityType() (uint32, error) {
	switch c.Wifi.Security {
	case "", "open":
		return hci.SecurityOpen, nil
	case "wep":
		return hci.SecurityWEP, nil
	case "wpa":
		return hci.SecurityWPA, nil
	case "wpa2":
		return hci.SecurityWPA2, nil
	}
	return 0, fmt.Errorf("unknown wifi.security %q", c.Wifi.Security)
}
