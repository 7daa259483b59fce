package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrConfigNotFound = errors.New("config not found")

const (
	EnvServiceURL = "GETSUBS_SERVICE_URL"
	EnvPushURL    = "GETSUBS_PUSH_URL"
	EnvOpenAIKey  = "OPENAI_API_KEY"
)

var dotEnvOnce sync.Once

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	getsubsDir := filepath.Join(configDir, "getsubs")
	if err := os.MkdirAll(getsubsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(getsubsDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at configPath, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func LoadFrom(configPath string) (*Config, error) {
	dotEnvOnce.Do(func() {
		if err := LoadDotEnv(); err != nil {
			log.Printf("Config: failed to load .env: %v", err)
		}
	})

	config, err := ReadFile(configPath)
	if errors.Is(err, ErrConfigNotFound) {
		log.Printf("Config: no config file at %s, using defaults", configPath)
		config = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	config.applyEnvOverrides()
	return config, nil
}

// ReadFile decodes configPath on top of the defaults. Unlike LoadFrom it
// reports a missing file as ErrConfigNotFound.
func ReadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("Config: loading configuration from %s", configPath)
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

// LoadDotEnv loads KEY=value pairs into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvServiceURL); v != "" {
		c.Service.BaseURL = v
	}
	if v := os.Getenv(EnvPushURL); v != "" {
		c.Service.PushURL = v
	}
}
