// Package config resolves runtime settings from a YAML file,
// SIMNOTE_-prefixed environment variables and defaults, in that
// order of rising precedence for env over file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/simnote/core/internal/errors"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SIMNOTE"

	keyDataDir         = "data_dir"
	keyLogLevel        = "log_level"
	keyAutoLockMinutes = "auto_lock_minutes"
)

// Config holds the resolved runtime settings.
type Config struct {
	// DataDir is the storage root for the database, mirror tree and
	// key material.
	DataDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// AutoLockMinutes is the idle window applied when security is
	// first enabled. Zero disables auto-lock.
	AutoLockMinutes int
}

// DefaultDataDir returns ~/.simnote, falling back to .simnote in the
// working directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".simnote"
	}
	return filepath.Join(home, ".simnote")
}

// Load reads configuration from configDir/config.yaml. A missing file
// is not an error; a malformed one is. Environment variables like
// SIMNOTE_DATA_DIR override file values.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyDataDir, DefaultDataDir())
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyAutoLockMinutes, 5)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(DefaultDataDir())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(apperrors.ErrConfiguration, "failed to read config file", err)
		}
	}

	cfg := &Config{
		DataDir:         v.GetString(keyDataDir),
		LogLevel:        v.GetString(keyLogLevel),
		AutoLockMinutes: v.GetInt(keyAutoLockMinutes),
	}
	if cfg.AutoLockMinutes < 0 {
		cfg.AutoLockMinutes = 0
	}
	return cfg, nil
}
