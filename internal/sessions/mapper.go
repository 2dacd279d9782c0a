package sessions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/pkg/models"
)

// UnknownOrdinal tags sessions of platforms missing from the registry
const UnknownOrdinal = "xx"

// OrdinalSource supplies the current platform ordinal table, e.g. {"alpha": "01"}
type OrdinalSource interface {
	Ordinals() map[string]string
}

// DualID is the pair of identifiers assigned to a new session
type DualID struct {
	CanonicalID string
	TaggedID    string
	Ordinal     string
}

// Mapper owns the session mapping document: it generates dual ids, answers
// id translation queries and enforces retention. Every mutation is written
// through to the store before the call returns.
type Mapper struct {
	store    *Store
	ordinals OrdinalSource
	logger   *zap.Logger
	now      func() time.Time
	newUUID  func() (uuid.UUID, error)
	doc      *Document
}

// MapperOption configures a Mapper
type MapperOption func(*Mapper)

// WithClock replaces time.Now
func WithClock(now func() time.Time) MapperOption {
	return func(m *Mapper) { m.now = now }
}

// WithUUIDSource replaces uuid.NewRandom
func WithUUIDSource(fn func() (uuid.UUID, error)) MapperOption {
	return func(m *Mapper) { m.newUUID = fn }
}

// NewMapper loads the document from store. A corrupt document is logged and
// replaced by an empty one in memory.
func NewMapper(store *Store, ordinals OrdinalSource, logger *zap.Logger, opts ...MapperOption) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mapper{
		store:    store,
		ordinals: ordinals,
		logger:   logger.Named("session_mapper"),
		now:      time.Now,
		newUUID:  uuid.NewRandom,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.doc, _ = store.Load(m.now())
	return m
}

// Ordinals returns the current platform ordinal table
func (m *Mapper) Ordinals() map[string]string {
	if m.ordinals == nil {
		return map[string]string{}
	}
	return m.ordinals.Ordinals()
}

// Ordinal returns the two-digit ordinal of platformID, or UnknownOrdinal
func (m *Mapper) Ordinal(platformID string) string {
	ordinals := m.Ordinals()
	if ord, ok := ordinals[platformID]; ok {
		return ord
	}
	if ord, ok := ordinals[strings.ToLower(platformID)]; ok {
		return ord
	}
	return UnknownOrdinal
}

func (m *Mapper) persist() error {
	return m.store.Save(m.doc, m.now())
}

// GenerateDualIDs creates and records a new session for platformID.
//
// If no random id can be produced the result is a canonical-only fallback
// (TaggedID == CanonicalID, nothing recorded) and the error wraps ErrGeneration.
// If the mapping cannot be written the ids are still returned and recorded in
// memory, and the error wraps ErrPersistence.
func (m *Mapper) GenerateDualIDs(platformID string) (DualID, error) {
	id, err := m.newUUID()
	if err != nil {
		return m.fallback(platformID, err)
	}

	canonical := id.String()
	ordinal := m.Ordinal(platformID)
	tagged := ordinal + canonical[2:]
	now := ts(m.now())

	m.doc.Mappings[tagged] = &forwardEntry{
		StandardUUID: canonical,
		Platform:     platformID,
		CreatedAt:    now,
		Prefix:       ordinal,
	}
	m.doc.ReverseMappings[canonical] = &reverseEntry{
		PrefixUUID: tagged,
		Platform:   platformID,
		CreatedAt:  now,
		Prefix:     ordinal,
	}
	m.doc.PlatformSessions[platformID] = append(m.doc.PlatformSessions[platformID], &platformSession{
		StandardUUID: canonical,
		PrefixUUID:   tagged,
		CreatedAt:    now,
		LastActive:   now,
	})

	ids := DualID{CanonicalID: canonical, TaggedID: tagged, Ordinal: ordinal}
	if err := m.persist(); err != nil {
		m.logger.Error("Error saving session mappings", zap.Error(err))
		return ids, err
	}

	m.logger.Info("Generated dual UUIDs",
		zap.String("platform", platformID),
		zap.String("tagged", tagged),
		zap.String("canonical", canonical))
	return ids, nil
}

func (m *Mapper) fallback(platformID string, cause error) (DualID, error) {
	m.logger.Error("Error generating dual UUIDs", zap.String("platform", platformID), zap.Error(cause))
	id, err := m.newUUID()
	if err != nil {
		return DualID{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	canonical := id.String()
	return DualID{CanonicalID: canonical, TaggedID: canonical}, fmt.Errorf("%w: %v", ErrGeneration, cause)
}

// PlatformOf returns the platform a session belongs to. Recorded mappings are
// authoritative; unknown ids are matched on their leading ordinal, first
// against ordinals pinned in recorded entries and then against the current
// table. The prefix match is a guess.
func (m *Mapper) PlatformOf(sessionID string) (string, bool) {
	if entry, ok := m.doc.Mappings[sessionID]; ok {
		return entry.Platform, true
	}
	if entry, ok := m.doc.ReverseMappings[sessionID]; ok {
		return entry.Platform, true
	}
	if len(sessionID) < 2 {
		return "", false
	}
	prefix := sessionID[:2]
	if prefix == UnknownOrdinal {
		return "", false
	}

	pinned := map[string]struct{}{}
	for _, entry := range m.doc.Mappings {
		if entry.Prefix == prefix {
			pinned[entry.Platform] = struct{}{}
		}
	}
	if len(pinned) == 1 {
		for platform := range pinned {
			return platform, true
		}
	}

	for platform, ordinal := range m.Ordinals() {
		if ordinal == prefix {
			return platform, true
		}
	}
	return "", false
}

// CanonicalOf returns the canonical id for a tagged or canonical id
func (m *Mapper) CanonicalOf(sessionID string) (string, bool) {
	if entry, ok := m.doc.Mappings[sessionID]; ok {
		return entry.StandardUUID, true
	}
	if _, ok := m.doc.ReverseMappings[sessionID]; ok {
		return sessionID, true
	}
	return "", false
}

// TaggedOf returns the tagged id for a canonical id
func (m *Mapper) TaggedOf(canonicalID string) (string, bool) {
	if entry, ok := m.doc.ReverseMappings[canonicalID]; ok {
		return entry.PrefixUUID, true
	}
	return "", false
}

// locate finds the three records describing one session. ok is false unless
// all of them exist.
func (m *Mapper) locate(sessionID string) (fwd *forwardEntry, rev *reverseEntry, entry *platformSession, ok bool) {
	canonical, found := m.CanonicalOf(sessionID)
	if !found {
		return nil, nil, nil, false
	}
	rev = m.doc.ReverseMappings[canonical]
	if rev == nil {
		return nil, nil, nil, false
	}
	fwd = m.doc.Mappings[rev.PrefixUUID]
	if fwd == nil {
		return nil, nil, nil, false
	}
	for _, s := range m.doc.PlatformSessions[rev.Platform] {
		if s.StandardUUID == canonical {
			entry = s
			break
		}
	}
	if entry == nil {
		return nil, nil, nil, false
	}
	return fwd, rev, entry, true
}

// Lookup returns the recorded session for a tagged or canonical id
func (m *Mapper) Lookup(sessionID string) (models.SessionRecord, bool) {
	_, rev, entry, ok := m.locate(sessionID)
	if !ok {
		return models.SessionRecord{}, false
	}
	return toRecord(rev.Platform, entry), true
}

// Touch marks a session as active now. The forward entry, reverse entry and
// platform list entry are updated together and written once; if any of them
// is missing nothing changes and false is returned.
func (m *Mapper) Touch(sessionID string) bool {
	fwd, rev, entry, ok := m.locate(sessionID)
	if !ok {
		m.logger.Debug("Cannot touch unknown session", zap.String("session", sessionID))
		return false
	}

	now := ts(m.now())
	fwd.LastActive = now
	rev.LastActive = now
	entry.LastActive = now

	if err := m.persist(); err != nil {
		m.logger.Error("Error updating session activity", zap.String("session", sessionID), zap.Error(err))
		return false
	}
	return true
}

func toRecord(platform string, s *platformSession) models.SessionRecord {
	return models.SessionRecord{
		CanonicalID: s.StandardUUID,
		TaggedID:    s.PrefixUUID,
		PlatformID:  platform,
		CreatedAt:   s.CreatedAt.Time,
		LastActive:  s.LastActive.Time,
	}
}

func sortByActivity(records []models.SessionRecord, limit int) []models.SessionRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Activity().After(records[j].Activity())
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// ListPlatformSessions returns a platform's sessions, most recently active first
func (m *Mapper) ListPlatformSessions(platformID string, limit int) []models.SessionRecord {
	list := m.doc.PlatformSessions[platformID]
	records := make([]models.SessionRecord, 0, len(list))
	for _, s := range list {
		records = append(records, toRecord(platformID, s))
	}
	return sortByActivity(records, limit)
}

// ListRecentSessions returns sessions across all platforms, most recently active first
func (m *Mapper) ListRecentSessions(limit int) []models.SessionRecord {
	platforms := make([]string, 0, len(m.doc.PlatformSessions))
	for platform := range m.doc.PlatformSessions {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	var records []models.SessionRecord
	for _, platform := range platforms {
		for _, s := range m.doc.PlatformSessions[platform] {
			records = append(records, toRecord(platform, s))
		}
	}
	return sortByActivity(records, limit)
}

// Cleanup removes sessions whose last activity is at or before the retention
// cutoff, together with their map entries, and writes the document once.
// Cleanup(0) removes every session.
func (m *Mapper) Cleanup(retentionDays int) int {
	if retentionDays < 0 {
		retentionDays = 0
	}
	now := m.now()
	cutoff := now.AddDate(0, 0, -retentionDays)
	expired := func(lastActive, createdAt Timestamp) bool {
		return !activity(lastActive, createdAt).After(cutoff)
	}

	removed := 0
	changed := false
	for platform, list := range m.doc.PlatformSessions {
		kept := list[:0]
		for _, s := range list {
			if expired(s.LastActive, s.CreatedAt) {
				delete(m.doc.Mappings, s.PrefixUUID)
				delete(m.doc.ReverseMappings, s.StandardUUID)
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(m.doc.PlatformSessions, platform)
		} else {
			m.doc.PlatformSessions[platform] = kept
		}
	}

	// Surviving list entries keep their map entries; older launchers only
	// touched the list entry. Map entries without one age out on their own.
	listed := map[string]bool{}
	for _, list := range m.doc.PlatformSessions {
		for _, s := range list {
			listed[s.StandardUUID] = true
		}
	}
	for tagged, entry := range m.doc.Mappings {
		if listed[entry.StandardUUID] {
			continue
		}
		if expired(entry.LastActive, entry.CreatedAt) {
			delete(m.doc.Mappings, tagged)
			delete(m.doc.ReverseMappings, entry.StandardUUID)
			removed++
		}
	}
	for canonical, entry := range m.doc.ReverseMappings {
		if listed[canonical] {
			continue
		}
		if expired(entry.LastActive, entry.CreatedAt) {
			delete(m.doc.ReverseMappings, canonical)
			changed = true
		}
	}

	if removed > 0 || changed {
		if err := m.persist(); err != nil {
			m.logger.Error("Error saving session mappings after cleanup", zap.Error(err))
		}
		m.logger.Info("Cleaned up old sessions", zap.Int("count", removed), zap.Int("retention_days", retentionDays))
	}
	return removed
}

// Statistics summarizes the mapping document
func (m *Mapper) Statistics() models.SessionStats {
	now := m.now()
	stats := models.SessionStats{
		TotalSessions: len(m.doc.Mappings),
		PerPlatform:   map[string]models.PlatformSessionStats{},
		Platforms:     []string{},
		CreatedAt:     m.doc.CreatedAt.Time,
		LastUpdated:   m.doc.LastUpdated.Time,
		Version:       m.doc.Version,
	}
	for platform, list := range m.doc.PlatformSessions {
		ps := models.PlatformSessionStats{Total: len(list)}
		for _, s := range list {
			age := now.Sub(activity(s.LastActive, s.CreatedAt))
			if age <= 24*time.Hour {
				ps.Active24h++
			}
			if age <= 7*24*time.Hour {
				ps.Active7d++
			}
		}
		stats.PerPlatform[platform] = ps
		stats.Platforms = append(stats.Platforms, platform)
	}
	sort.Strings(stats.Platforms)
	return stats
}
