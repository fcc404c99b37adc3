// Package config loads and saves the toolkit's configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/vmtrace/vmtrace/pkg/logflags"
)

const (
	configDir  string = ".vmtrace"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through
// the config file.
type Config struct {
	// Log enables debug logging; LogOutput selects the layers to log
	// ("tracer", "mem", "maps", comma separated).
	Log       bool   `yaml:"log"`
	LogOutput string `yaml:"log-output"`

	// MaxBatchEntries caps the number of scatter/gather entries handed
	// to a single kernel call. Zero or out of range values mean the
	// kernel limit. This package only carries the value: the caller
	// applies it to each handle through SetMaxBatch, which performs
	// the clamping.
	MaxBatchEntries int `yaml:"max-batch-entries"`
}

// SetupLogging applies the config's logging settings.
func (c *Config) SetupLogging() error {
	return logflags.Setup(c.Log, c.LogOutput)
}

// LoadConfig attempts to populate a Config object from the config.yml
// file. A missing or unreadable file yields the zero config.
func LoadConfig() (*Config, error) {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to get config file path: %w", err)
	}

	data, err := os.ReadFile(fullConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return &Config{}, fmt.Errorf("unable to read config data: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return &Config{}, fmt.Errorf("unable to decode config file: %w", err)
	}
	return &c, nil
}

// SaveConfig marshals and saves the config struct to the config file,
// creating the config directory if needed.
func SaveConfig(conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}
	if err := createConfigPath(); err != nil {
		return err
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return os.WriteFile(fullConfigFile, out, 0644)
}

// GetConfigFilePath gets the full path of the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, file), nil
}

func createConfigPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(home, configDir), 0700)
}
