package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath string
	Timeout    string
}

type Settings struct {
	Timeout          time.Duration
	KeystorePath     string
	KeystoreLockPath string
	// NetworkURLs overrides the built-in RPC URL per network tag.
	NetworkURLs map[string]string
}

type fileConfig struct {
	Timeout  string `yaml:"timeout"`
	Keystore struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"keystore"`
	Networks map[string]string `yaml:"networks"`
}

func Load(flags GlobalFlags) (Settings, error) {
	// A .env alongside the working directory may carry TRANSFER_* variables.
	_ = godotenv.Load()

	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, err
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, "transfer")
	return Settings{
		Timeout:          10 * time.Second,
		KeystorePath:     filepath.Join(dir, "keystore.db"),
		KeystoreLockPath: filepath.Join(dir, "keystore.lock"),
		NetworkURLs:      map[string]string{},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "transfer", "config.yaml"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Keystore.Path != "" {
		settings.KeystorePath = cfg.Keystore.Path
	}
	if cfg.Keystore.LockPath != "" {
		settings.KeystoreLockPath = cfg.Keystore.LockPath
	}
	for tag, url := range cfg.Networks {
		if strings.TrimSpace(url) != "" {
			settings.NetworkURLs[strings.ToLower(strings.TrimSpace(tag))] = strings.TrimSpace(url)
		}
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("TRANSFER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("TRANSFER_KEYSTORE_PATH"); v != "" {
		settings.KeystorePath = v
	}
	if v := os.Getenv("TRANSFER_KEYSTORE_LOCK_PATH"); v != "" {
		settings.KeystoreLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	return nil
}
