package environment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/fileutil"
)

// BackupSuffix is appended to settings.json while a launch has it staged
const BackupSuffix = ".cc-launcher.bak"

// Settings stages ~/.claude/settings.json for a launch. Claude Code applies the
// file's "env" block over the process environment, so provider keys stored
// there would override the selected platform. Stage removes them; Restore puts
// the original bytes back.
type Settings struct {
	path   string
	logger *zap.Logger
}

// NewSettings creates a stager for the settings file at path
func NewSettings(path string, logger *zap.Logger) *Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settings{path: path, logger: logger.Named("settings")}
}

// BackupPath returns where the original file is kept while staged
func (s *Settings) BackupPath() string {
	return s.path + BackupSuffix
}

// Stage removes managed keys from the env block. It returns the removed keys;
// when nothing needs removing the file is left alone and no backup is made.
func (s *Settings) Stage(managed []string) ([]string, error) {
	original, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(original, &doc); err != nil {
		s.logger.Warn("Settings file is not a JSON object, leaving it alone", zap.Error(err))
		return nil, nil
	}
	rawEnv, ok := doc["env"]
	if !ok {
		return nil, nil
	}
	var env map[string]any
	if err := json.Unmarshal(rawEnv, &env); err != nil || env == nil {
		return nil, nil
	}

	var removed []string
	for _, key := range managed {
		if _, ok := env[key]; ok {
			delete(env, key)
			removed = append(removed, key)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	mode := fs.FileMode(0o600)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(s.BackupPath(), original, mode); err != nil {
		return nil, fmt.Errorf("failed to back up settings: %w", err)
	}
	if len(env) == 0 {
		delete(doc, "env")
	} else {
		encoded, err := json.Marshal(env)
		if err != nil {
			return nil, err
		}
		doc["env"] = encoded
	}
	if err := fileutil.WriteJSON(s.path, doc); err != nil {
		_ = s.Restore()
		return nil, fmt.Errorf("failed to stage settings: %w", err)
	}

	s.logger.Info("Staged settings file", zap.Strings("removed", removed))
	return removed, nil
}

// Restore puts back the original settings file if a backup exists. It is safe
// to call when nothing was staged, which also recovers a backup left behind by
// an interrupted launch.
func (s *Settings) Restore() error {
	backup := s.BackupPath()
	data, err := os.ReadFile(backup)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings backup: %w", err)
	}
	mode := fs.FileMode(0o600)
	if info, err := os.Stat(backup); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(s.path, data, mode); err != nil {
		return fmt.Errorf("failed to restore settings: %w", err)
	}
	if err := os.Remove(backup); err != nil {
		return fmt.Errorf("failed to remove settings backup: %w", err)
	}
	s.logger.Info("Restored settings file")
	return nil
}
