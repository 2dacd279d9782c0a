package sessions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticOrdinals map[string]string

func (s staticOrdinals) Ordinals() map[string]string { return s }

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var alphaBeta = staticOrdinals{"alpha": "01", "beta": "02"}

func newTestMapper(t *testing.T, ordinals OrdinalSource, opts ...MapperOption) (*Mapper, *Store, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(filepath.Join(t.TempDir(), "sessions", "session-mappings.json"), nil)
	opts = append([]MapperOption{WithClock(c.Now)}, opts...)
	return NewMapper(store, ordinals, nil, opts...), store, c
}

func TestGenerateDualIDsTagsWithOrdinal(t *testing.T) {
	m, _, _ := newTestMapper(t, alphaBeta)

	ids, err := m.GenerateDualIDs("beta")
	require.NoError(t, err)

	assert.Equal(t, "02", ids.Ordinal)
	assert.Equal(t, "02", ids.TaggedID[:2])
	assert.Equal(t, ids.CanonicalID[2:], ids.TaggedID[2:])
	assert.Len(t, ids.TaggedID, 36)
	_, err = uuid.Parse(ids.CanonicalID)
	assert.NoError(t, err)

	platform, ok := m.PlatformOf(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, "beta", platform)

	canonical, ok := m.CanonicalOf(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, ids.CanonicalID, canonical)
}

func TestGenerateDualIDsUnknownPlatform(t *testing.T) {
	m, _, _ := newTestMapper(t, alphaBeta)

	ids, err := m.GenerateDualIDs("gamma")
	require.NoError(t, err)
	assert.Equal(t, "xx", ids.TaggedID[:2])

	platform, ok := m.PlatformOf(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, "gamma", platform)
}

func TestOrdinalStableAcrossCalls(t *testing.T) {
	m, _, _ := newTestMapper(t, alphaBeta)
	for i := 0; i < 5; i++ {
		assert.Equal(t, "01", m.Ordinal("alpha"))
	}
	assert.Equal(t, UnknownOrdinal, m.Ordinal("missing"))
}

func TestTaggedCanonicalRoundTrip(t *testing.T) {
	m, _, _ := newTestMapper(t, alphaBeta)
	for _, platform := range []string{"alpha", "beta", "alpha"} {
		ids, err := m.GenerateDualIDs(platform)
		require.NoError(t, err)

		tagged, ok := m.TaggedOf(ids.CanonicalID)
		require.True(t, ok)
		assert.Equal(t, ids.TaggedID, tagged)

		canonical, ok := m.CanonicalOf(tagged)
		require.True(t, ok)
		assert.Equal(t, ids.CanonicalID, canonical)

		got, ok := m.PlatformOf(ids.CanonicalID)
		require.True(t, ok)
		assert.Equal(t, platform, got)
	}
}

func TestMappingsSurviveReload(t *testing.T) {
	m, store, c := newTestMapper(t, alphaBeta)
	ids, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)

	reloaded := NewMapper(store, alphaBeta, nil, WithClock(c.Now))
	record, ok := reloaded.Lookup(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, ids.CanonicalID, record.CanonicalID)
	assert.Equal(t, "alpha", record.PlatformID)
	assert.True(t, record.CreatedAt.Equal(c.now))
}

func TestPlatformOfHeuristic(t *testing.T) {
	m, _, _ := newTestMapper(t, alphaBeta)

	platform, ok := m.PlatformOf("02aaaaaa-0000-4000-8000-000000000000")
	require.True(t, ok)
	assert.Equal(t, "beta", platform)

	_, ok = m.PlatformOf("07aaaaaa-0000-4000-8000-000000000000")
	assert.False(t, ok)

	_, ok = m.PlatformOf("xxaaaaaa-0000-4000-8000-000000000000")
	assert.False(t, ok)

	_, ok = m.PlatformOf("0")
	assert.False(t, ok)
}

func TestPlatformOfPrefersPinnedOrdinals(t *testing.T) {
	m, store, c := newTestMapper(t, alphaBeta)
	_, err := m.GenerateDualIDs("beta")
	require.NoError(t, err)

	// A new platform sorted before beta shifts the live ordinal table.
	shifted := staticOrdinals{"aardvark": "01", "alpha": "02", "beta": "03"}
	reloaded := NewMapper(store, shifted, nil, WithClock(c.Now))

	platform, ok := reloaded.PlatformOf("02bbbbbb-0000-4000-8000-000000000000")
	require.True(t, ok)
	assert.Equal(t, "beta", platform)
}

func TestGenerateDualIDsFallback(t *testing.T) {
	calls := 0
	source := func() (uuid.UUID, error) {
		calls++
		if calls == 1 {
			return uuid.Nil, errors.New("entropy exhausted")
		}
		return uuid.NewRandom()
	}
	m, _, _ := newTestMapper(t, alphaBeta, WithUUIDSource(source))

	ids, err := m.GenerateDualIDs("alpha")
	require.ErrorIs(t, err, ErrGeneration)
	assert.NotEmpty(t, ids.CanonicalID)
	assert.Equal(t, ids.CanonicalID, ids.TaggedID)

	_, ok := m.CanonicalOf(ids.TaggedID)
	assert.False(t, ok)
}

func TestGenerateDualIDsPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o600))

	store := NewStore(filepath.Join(blocker, "session-mappings.json"), nil)
	m := NewMapper(store, alphaBeta, nil)

	ids, err := m.GenerateDualIDs("alpha")
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "01", ids.TaggedID[:2])

	platform, ok := m.PlatformOf(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, "alpha", platform)
}

func TestTouchUpdatesAllEntries(t *testing.T) {
	m, store, c := newTestMapper(t, alphaBeta)
	ids, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)

	c.Advance(time.Hour)
	require.True(t, m.Touch(ids.TaggedID))

	doc, err := store.Load(c.now)
	require.NoError(t, err)
	assert.True(t, doc.Mappings[ids.TaggedID].LastActive.Equal(c.now))
	assert.True(t, doc.ReverseMappings[ids.CanonicalID].LastActive.Equal(c.now))
	require.Len(t, doc.PlatformSessions["alpha"], 1)
	assert.True(t, doc.PlatformSessions["alpha"][0].LastActive.Equal(c.now))

	c.Advance(time.Hour)
	require.True(t, m.Touch(ids.CanonicalID))
}

func TestTouchUnknownSession(t *testing.T) {
	m, store, _ := newTestMapper(t, alphaBeta)
	assert.False(t, m.Touch("01000000-0000-4000-8000-000000000000"))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestTouchRequiresListEntry(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	ids, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	m.doc.PlatformSessions["alpha"] = nil

	c.Advance(time.Hour)
	assert.False(t, m.Touch(ids.TaggedID))
	assert.True(t, m.doc.Mappings[ids.TaggedID].LastActive.IsZero())
}

func TestListSessionsOrderedByActivity(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	first, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	c.Advance(time.Minute)
	second, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	c.Advance(time.Minute)
	other, err := m.GenerateDualIDs("beta")
	require.NoError(t, err)

	c.Advance(time.Minute)
	require.True(t, m.Touch(first.TaggedID))

	alpha := m.ListPlatformSessions("alpha", 0)
	require.Len(t, alpha, 2)
	assert.Equal(t, first.TaggedID, alpha[0].TaggedID)
	assert.Equal(t, second.TaggedID, alpha[1].TaggedID)

	assert.Len(t, m.ListPlatformSessions("alpha", 1), 1)
	assert.Empty(t, m.ListPlatformSessions("gamma", 10))

	recent := m.ListRecentSessions(2)
	require.Len(t, recent, 2)
	assert.Equal(t, first.TaggedID, recent[0].TaggedID)
	assert.Equal(t, other.TaggedID, recent[1].TaggedID)
}

func TestCleanupBoundaries(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	for _, platform := range []string{"alpha", "beta", "alpha"} {
		_, err := m.GenerateDualIDs(platform)
		require.NoError(t, err)
	}
	c.Advance(time.Second)

	assert.Equal(t, 0, m.Cleanup(999999))
	assert.Equal(t, 3, m.Statistics().TotalSessions)

	assert.Equal(t, 3, m.Cleanup(0))
	stats := m.Statistics()
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Empty(t, stats.Platforms)
	assert.Empty(t, m.doc.ReverseMappings)
}

func TestCleanupUsesLastActivity(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	stale, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	kept, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)

	c.Advance(20 * 24 * time.Hour)
	require.True(t, m.Touch(kept.TaggedID))
	c.Advance(20 * 24 * time.Hour)

	assert.Equal(t, 1, m.Cleanup(30))
	_, ok := m.CanonicalOf(stale.TaggedID)
	assert.False(t, ok)
	_, ok = m.CanonicalOf(kept.TaggedID)
	assert.True(t, ok)
}

func TestCleanupKeepsMapsOfActiveListEntry(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	ids, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)

	// only the list entry carries recent activity, as in documents from older launchers
	c.Advance(35 * 24 * time.Hour)
	m.doc.PlatformSessions["alpha"][0].LastActive = ts(c.now)
	c.Advance(24 * time.Hour)

	assert.Equal(t, 0, m.Cleanup(30))
	canonical, ok := m.CanonicalOf(ids.TaggedID)
	require.True(t, ok)
	assert.Equal(t, ids.CanonicalID, canonical)
	tagged, ok := m.TaggedOf(ids.CanonicalID)
	require.True(t, ok)
	assert.Equal(t, ids.TaggedID, tagged)
	assert.True(t, m.Touch(ids.TaggedID))
}

func TestStatistics(t *testing.T) {
	m, _, c := newTestMapper(t, alphaBeta)
	_, err := m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	c.Advance(3 * 24 * time.Hour)
	_, err = m.GenerateDualIDs("alpha")
	require.NoError(t, err)
	_, err = m.GenerateDualIDs("beta")
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	stats := m.Statistics()
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, []string{"alpha", "beta"}, stats.Platforms)
	assert.Equal(t, 2, stats.PerPlatform["alpha"].Total)
	assert.Equal(t, 1, stats.PerPlatform["alpha"].Active24h)
	assert.Equal(t, 2, stats.PerPlatform["alpha"].Active7d)
	assert.Equal(t, 1, stats.PerPlatform["beta"].Active24h)
	assert.Equal(t, 1, stats.PerPlatform["beta"].Active7d)
	assert.Equal(t, DocumentVersion, stats.Version)
}
