package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory that holds the .claude tree
const HomeEnv = "CC_LAUNCHER_HOME"

// Paths is the on-disk layout shared with Claude Code under ~/.claude
type Paths struct {
	ClaudeDir   string
	ConfigDir   string
	CacheDir    string
	SessionsDir string
	LogsDir     string
	ProjectsDir string
}

// NewPaths derives the layout rooted at home/.claude
func NewPaths(home string) Paths {
	claudeDir := filepath.Join(home, ".claude")
	cacheDir := filepath.Join(claudeDir, "cache")
	return Paths{
		ClaudeDir:   claudeDir,
		ConfigDir:   filepath.Join(claudeDir, "config"),
		CacheDir:    cacheDir,
		SessionsDir: filepath.Join(cacheDir, "sessions"),
		LogsDir:     filepath.Join(claudeDir, "logs"),
		ProjectsDir: filepath.Join(claudeDir, "projects"),
	}
}

// DefaultPaths resolves the layout from $CC_LAUNCHER_HOME or the user's home directory
func DefaultPaths() (Paths, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return NewPaths(home), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewPaths(home), nil
}

// Ensure creates the directories the launcher writes into
func (p Paths) Ensure() error {
	for _, dir := range []string{p.ConfigDir, p.SessionsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (p Paths) PlatformsFile() string { return filepath.Join(p.ConfigDir, "platforms.json") }
func (p Paths) LauncherFile() string  { return filepath.Join(p.ConfigDir, "launcher.json") }
func (p Paths) SettingsFile() string  { return filepath.Join(p.ClaudeDir, "settings.json") }
func (p Paths) LogFile() string       { return filepath.Join(p.LogsDir, "cc-launcher.log") }

// MappingsFile is the session mapping document
func (p Paths) MappingsFile() string {
	return filepath.Join(p.SessionsDir, "session-mappings.json")
}
