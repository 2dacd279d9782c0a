package sessions

import (
	"errors"
	"fmt"
	"os"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/fileutil"
	"github.com/strrl/cc-launcher/pkg/models"
)

const pointerPrefix = "last_session_"

// pointer is the part of a last-session file needed to find the session again.
// Older launchers wrote the timestamps as naive ISO strings and float epochs,
// so they are not decoded.
type pointer struct {
	SessionID string `json:"session_id"`
}

// Manager decides whether a launch starts a new session or continues the last
// one, and keeps a per-platform pointer to the most recent session.
type Manager struct {
	mapper *Mapper
	dir    string
	logger *zap.Logger
}

// NewManager creates a manager writing pointer files into dir
func NewManager(mapper *Mapper, dir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{mapper: mapper, dir: dir, logger: logger.Named("session_manager")}
}

// Mapper returns the underlying session mapper
func (m *Manager) Mapper() *Mapper {
	return m.mapper
}

func (m *Manager) pointerPath(platformID string) string {
	return filepath.Join(m.dir, pointerPrefix+url.PathEscape(platformID)+".json")
}

func (m *Manager) readPointer(path string) (string, bool, error) {
	var p pointer
	found, err := fileutil.ReadJSON(path, &p)
	if err != nil || !found {
		return "", found, err
	}
	return p.SessionID, true, nil
}

// LastSession returns the platform's most recent session if its pointer still
// resolves through the mapper
func (m *Manager) LastSession(platformID string) (*models.SessionRecord, bool) {
	sessionID, found, err := m.readPointer(m.pointerPath(platformID))
	if err != nil {
		m.logger.Warn("Ignoring unreadable last session pointer", zap.String("platform", platformID), zap.Error(err))
		return nil, false
	}
	if !found || sessionID == "" {
		return nil, false
	}
	canonical, ok := m.mapper.CanonicalOf(sessionID)
	if !ok {
		m.logger.Debug("Last session no longer mapped", zap.String("session", sessionID))
		return nil, false
	}
	if stored, ok := m.mapper.Lookup(sessionID); ok {
		return &stored, true
	}
	tagged, _ := m.mapper.TaggedOf(canonical)
	if tagged == "" {
		tagged = sessionID
	}
	return &models.SessionRecord{CanonicalID: canonical, TaggedID: tagged, PlatformID: platformID}, true
}

// CreateOrContinue returns the session a launch should use. Continuing reuses
// the last session as is; otherwise a new one is generated and becomes the
// platform's last session.
//
// The record is nil only when no identifier could be produced. A non-nil
// record with a non-nil error is still usable (e.g. it could not be persisted).
func (m *Manager) CreateOrContinue(platformID string, continueRequested bool) (*models.SessionRecord, error) {
	if continueRequested {
		if record, ok := m.LastSession(platformID); ok {
			record.Continued = true
			m.logger.Info("Continuing session", zap.String("platform", platformID), zap.String("session", record.TaggedID))
			return record, nil
		}
		m.logger.Info("No previous session to continue, creating a new one", zap.String("platform", platformID))
	}

	ids, err := m.mapper.GenerateDualIDs(platformID)
	if ids.TaggedID == "" {
		return nil, err
	}

	now := m.mapper.now()
	record := &models.SessionRecord{
		CanonicalID: ids.CanonicalID,
		TaggedID:    ids.TaggedID,
		PlatformID:  platformID,
		CreatedAt:   now,
		LastActive:  now,
	}
	if perr := fileutil.WriteJSON(m.pointerPath(platformID), record); perr != nil {
		m.logger.Warn("Failed to save last session pointer", zap.String("platform", platformID), zap.Error(perr))
		if err == nil {
			err = fmt.Errorf("%w: %v", ErrPersistence, perr)
		}
	}
	return record, err
}

// Cleanup expires sessions older than maxAgeDays and removes pointer files
// whose session no longer exists. Unreadable pointers are left alone.
func (m *Manager) Cleanup(maxAgeDays int) (int, error) {
	removed := m.mapper.Cleanup(maxAgeDays)

	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return removed, nil
	}
	if err != nil {
		return removed, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, pointerPrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		path := filepath.Join(m.dir, name)
		sessionID, found, err := m.readPointer(path)
		if err != nil {
			m.logger.Warn("Keeping unreadable last session pointer", zap.String("path", path), zap.Error(err))
			continue
		}
		if !found {
			continue
		}
		if _, ok := m.mapper.CanonicalOf(sessionID); ok {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("Removed stale last session pointer", zap.String("path", path))
	}
	return removed, errors.Join(errs...)
}
