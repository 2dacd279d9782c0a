package sessions

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/fileutil"
)

// DocumentVersion is the mapping document schema version
const DocumentVersion = "2.0"

var (
	// ErrPersistence wraps failures to write the mapping document
	ErrPersistence = errors.New("session mapping not persisted")
	// ErrGeneration wraps failures to produce a session identifier
	ErrGeneration = errors.New("session id generation failed")
)

type forwardEntry struct {
	StandardUUID string    `json:"standard_uuid"`
	Platform     string    `json:"platform"`
	CreatedAt    Timestamp `json:"created_at"`
	Prefix       string    `json:"prefix"`
	LastActive   Timestamp `json:"last_active,omitzero"`
}

type reverseEntry struct {
	PrefixUUID string    `json:"prefix_uuid"`
	Platform   string    `json:"platform"`
	CreatedAt  Timestamp `json:"created_at"`
	Prefix     string    `json:"prefix"`
	LastActive Timestamp `json:"last_active,omitzero"`
}

type platformSession struct {
	StandardUUID string    `json:"standard_uuid"`
	PrefixUUID   string    `json:"prefix_uuid"`
	CreatedAt    Timestamp `json:"created_at"`
	LastActive   Timestamp `json:"last_active,omitzero"`
}

// Document is the persisted session-mappings.json content
type Document struct {
	Mappings         map[string]*forwardEntry      `json:"mappings"`
	ReverseMappings  map[string]*reverseEntry      `json:"reverse_mappings"`
	PlatformSessions map[string][]*platformSession `json:"platform_sessions"`
	CreatedAt        Timestamp                     `json:"created_at"`
	LastUpdated      Timestamp                     `json:"last_updated,omitzero"`
	Version          string                        `json:"version"`
}

func newDocument(now time.Time) *Document {
	return &Document{
		Mappings:         map[string]*forwardEntry{},
		ReverseMappings:  map[string]*reverseEntry{},
		PlatformSessions: map[string][]*platformSession{},
		CreatedAt:        ts(now),
		Version:          DocumentVersion,
	}
}

func (d *Document) normalize(now time.Time) {
	if d.Mappings == nil {
		d.Mappings = map[string]*forwardEntry{}
	}
	if d.ReverseMappings == nil {
		d.ReverseMappings = map[string]*reverseEntry{}
	}
	if d.PlatformSessions == nil {
		d.PlatformSessions = map[string][]*platformSession{}
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = ts(now)
	}
	if d.Version == "" {
		d.Version = DocumentVersion
	}
}

// Store persists the mapping document. Each Save backs up the previous file
// to <name>.backup and rewrites the document atomically under an advisory lock.
type Store struct {
	path        string
	logger      *zap.Logger
	lockTimeout time.Duration
}

// NewStore creates a store for the document at path
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger, lockTimeout: 5 * time.Second}
}

// Path returns the document location
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns where the previous document is copied before a rewrite
func (s *Store) BackupPath() string {
	return s.path + ".backup"
}

// Load reads the document. A missing file yields an empty document; a corrupt
// one yields an empty document and the decode error.
func (s *Store) Load(now time.Time) (*Document, error) {
	doc := &Document{}
	found, err := fileutil.ReadJSON(s.path, doc)
	if err != nil {
		s.logger.Error("Error loading session mappings", zap.String("path", s.path), zap.Error(err))
		return newDocument(now), err
	}
	if !found {
		return newDocument(now), nil
	}
	doc.normalize(now)
	return doc, nil
}

// Save stamps last_updated and writes the whole document once
func (s *Store) Save(doc *Document, now time.Time) error {
	doc.LastUpdated = ts(now)
	err := fileutil.WithLock(s.path+".lock", s.lockTimeout, func() error {
		if fileutil.Exists(s.path) {
			if err := fileutil.CopyFile(s.path, s.BackupPath()); err != nil {
				s.logger.Warn("Failed to back up session mappings", zap.Error(err))
			}
		}
		return fileutil.WriteJSON(s.path, doc)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Debug("Session mappings saved", zap.String("path", s.path))
	return nil
}
