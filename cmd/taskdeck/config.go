package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyServerURL = "server_url"
	cfgKeyDataDir   = "data_dir"
	cfgKeyTimeout   = "timeout"

	defaultServerURL = "http://localhost:8080"
	defaultTimeout   = 10 * time.Second

	envPrefix    = "TASKDECK"
	envConfigDir = "TASKDECK_CONFIG_DIR"
)

const defaultConfigYAML = `# taskdeck CLI configuration

# Server base URL
server_url: http://localhost:8080

# Local cache directory (default: <config dir>/data)
# data_dir:

# Network timeout per command
# timeout: 10s
`

// settings is the resolved configuration for one invocation.
type settings struct {
	ServerURL string
	DataDir   string
	Timeout   time.Duration
}

// loadConfig reads config.yaml from configDir, writing a default one on
// first run. TASKDECK_* environment variables override the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyServerURL, defaultServerURL)
	v.SetDefault(cfgKeyDataDir, filepath.Join(configDir, "data"))
	v.SetDefault(cfgKeyTimeout, defaultTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// resolveConfigDir applies --config-dir > TASKDECK_CONFIG_DIR > the user
// config directory.
func resolveConfigDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "taskdeck"), nil
}

func settingsFrom(v *viper.Viper) settings {
	s := settings{
		ServerURL: v.GetString(cfgKeyServerURL),
		DataDir:   v.GetString(cfgKeyDataDir),
		Timeout:   v.GetDuration(cfgKeyTimeout),
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	return s
}
