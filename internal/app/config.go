package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
	"gopkg.in/yaml.v3"
)

// EnvBackendURL overrides backend.base_url when set.
const EnvBackendURL = "CHAPTERSTUDIO_BACKEND"

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ConfigManager loads and saves the global configuration file.
type ConfigManager struct {
	path   string
	config *types.GlobalConfig
}

// NewConfigManager creates a manager for the default config location.
func NewConfigManager() (*ConfigManager, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return NewConfigManagerAt(filepath.Join(configDir, "config.yaml")), nil
}

// NewConfigManagerAt creates a manager for the config file at path.
func NewConfigManagerAt(path string) *ConfigManager {
	return &ConfigManager{path: expandPath(path)}
}

// ConfigDir returns $XDG_CONFIG_HOME/chapterstudio, defaulting to ~/.config.
func ConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "chapterstudio"), nil
}

// Path returns the config file location.
func (cm *ConfigManager) Path() string {
	return cm.path
}

// Exists reports whether the config file is present.
func (cm *ConfigManager) Exists() bool {
	_, err := os.Stat(cm.path)
	return err == nil
}

// Load reads the configuration. A missing file yields the defaults.
func (cm *ConfigManager) Load() (*types.GlobalConfig, error) {
	if cm.config != nil {
		return cm.config, nil
	}

	config := types.DefaultGlobalConfig()

	data, err := os.ReadFile(cm.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if err := normalize(config); err != nil {
		return nil, err
	}

	cm.config = config
	return cm.config, nil
}

// Save writes config atomically.
func (cm *ConfigManager) Save(config *types.GlobalConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := storage.AtomicWriteFile(cm.path, data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cm.config = config
	return nil
}

// Provider returns the configuration for a named LLM provider.
func (cm *ConfigManager) Provider(name string) (*types.ProviderConfig, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	provider, ok := config.Providers[name]
	if !ok || provider == nil {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return provider, nil
}

// normalize fills gaps left by a partial file and applies environment
// overrides.
func normalize(config *types.GlobalConfig) error {
	defaults := types.DefaultGlobalConfig()

	if url := os.Getenv(EnvBackendURL); url != "" {
		config.Backend.BaseURL = url
	}
	if config.Backend.BaseURL == "" {
		config.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if !strings.HasPrefix(config.Backend.BaseURL, "http://") && !strings.HasPrefix(config.Backend.BaseURL, "https://") {
		return fmt.Errorf("%w: backend.base_url %q is not an http(s) URL", ErrInvalidConfig, config.Backend.BaseURL)
	}
	if config.Backend.Timeout <= 0 {
		config.Backend.Timeout = defaults.Backend.Timeout
	}
	if config.Server.Addr == "" {
		config.Server.Addr = defaults.Server.Addr
	}
	if config.Server.DBPath == "" {
		config.Server.DBPath = defaults.Server.DBPath
	}
	config.Server.DBPath = expandPath(config.Server.DBPath)
	config.Logging.File = expandPath(config.Logging.File)

	if config.Providers == nil {
		config.Providers = make(map[string]*types.ProviderConfig)
	}
	// Expand environment variables in API keys
	for _, provider := range config.Providers {
		if provider == nil {
			continue
		}
		if strings.HasPrefix(provider.APIKey, "${") && strings.HasSuffix(provider.APIKey, "}") {
			provider.APIKey = os.Getenv(provider.APIKey[2 : len(provider.APIKey)-1])
		}
	}
	return nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
