package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides of launcher.json keys
const EnvPrefix = "CC_LAUNCHER"

// DefaultRetentionDays is how long sessions are kept by cleanup
const DefaultRetentionDays = 30

// Launcher holds the settings in launcher.json
type Launcher struct {
	DefaultPlatform      string `mapstructure:"default_platform"`
	ClaudeExecutable     string `mapstructure:"claude_executable"`
	AutoCreateSession    bool   `mapstructure:"auto_create_session"`
	ContinueLastSession  bool   `mapstructure:"continue_last_session"`
	SessionRetentionDays int    `mapstructure:"session_retention_days"`
	AutoCleanup          bool   `mapstructure:"auto_cleanup"`
	StageSettings        bool   `mapstructure:"stage_settings"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("default_platform", "")
	v.SetDefault("claude_executable", "")
	v.SetDefault("auto_create_session", true)
	v.SetDefault("continue_last_session", false)
	v.SetDefault("session_retention_days", DefaultRetentionDays)
	v.SetDefault("auto_cleanup", false)
	v.SetDefault("stage_settings", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadLauncher reads launcher.json at path. A missing file yields defaults;
// environment variables such as CC_LAUNCHER_AUTO_CLEANUP override either.
func LoadLauncher(path string) (Launcher, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return decode(v), fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decode(v), nil
}

// InitLauncher writes launcher.json with defaults unless it already exists
func InitLauncher(path string) (created bool, err error) {
	v := newViper(path)
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func decode(v *viper.Viper) Launcher {
	var cfg Launcher
	if err := v.Unmarshal(&cfg); err != nil {
		cfg = Launcher{
			AutoCreateSession:    true,
			SessionRetentionDays: DefaultRetentionDays,
			StageSettings:        true,
		}
	}
	if cfg.SessionRetentionDays <= 0 {
		cfg.SessionRetentionDays = DefaultRetentionDays
	}
	return cfg
}
