package sessions

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *clock) {
	t.Helper()
	m, store, c := newTestMapper(t, alphaBeta)
	return NewManager(m, filepath.Dir(store.Path()), nil), c
}

func TestCreateOrContinueCreatesNewSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	record, err := mgr.CreateOrContinue("alpha", false)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Continued)
	assert.Equal(t, "alpha", record.PlatformID)
	assert.Equal(t, "01", record.TaggedID[:2])

	last, ok := mgr.LastSession("alpha")
	require.True(t, ok)
	assert.Equal(t, record.TaggedID, last.TaggedID)
	assert.Equal(t, record.CanonicalID, last.CanonicalID)

	_, ok = mgr.LastSession("beta")
	assert.False(t, ok)
}

func TestCreateOrContinueReusesLastSession(t *testing.T) {
	mgr, c := newTestManager(t)

	first, err := mgr.CreateOrContinue("alpha", false)
	require.NoError(t, err)
	c.Advance(time.Hour)

	continued, err := mgr.CreateOrContinue("alpha", true)
	require.NoError(t, err)
	assert.True(t, continued.Continued)
	assert.Equal(t, first.TaggedID, continued.TaggedID)

	// continuing does not touch the session
	stored, ok := mgr.Mapper().Lookup(first.TaggedID)
	require.True(t, ok)
	assert.True(t, stored.LastActive.Equal(first.CreatedAt))
}

func TestCreateOrContinueWithoutPreviousSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	record, err := mgr.CreateOrContinue("beta", true)
	require.NoError(t, err)
	assert.False(t, record.Continued)
	assert.Equal(t, "02", record.TaggedID[:2])
}

func TestCreateOrContinueAfterExpiry(t *testing.T) {
	mgr, c := newTestManager(t)

	first, err := mgr.CreateOrContinue("alpha", false)
	require.NoError(t, err)
	c.Advance(time.Minute)

	removed, err := mgr.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	next, err := mgr.CreateOrContinue("alpha", true)
	require.NoError(t, err)
	assert.False(t, next.Continued)
	assert.NotEqual(t, first.TaggedID, next.TaggedID)
}

func TestCleanupRemovesStalePointers(t *testing.T) {
	mgr, c := newTestManager(t)

	_, err := mgr.CreateOrContinue("alpha", false)
	require.NoError(t, err)
	c.Advance(40 * 24 * time.Hour)
	_, err = mgr.CreateOrContinue("beta", false)
	require.NoError(t, err)

	removed, err := mgr.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(mgr.pointerPath("alpha"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(mgr.pointerPath("beta"))
	assert.NoError(t, err)
}

func TestPointerPathEscapesPlatform(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Equal(t, "last_session_alpha.json", filepath.Base(mgr.pointerPath("alpha")))
	assert.Equal(t, "last_session_a%2Fb%20c.json", filepath.Base(mgr.pointerPath("a/b c")))
	assert.Equal(t, mgr.dir, filepath.Dir(mgr.pointerPath("../x")))
	assert.NotEqual(t, mgr.pointerPath("a/b"), mgr.pointerPath("a_b"))
}

func TestLegacyPointerIsHonored(t *testing.T) {
	mgr, c := newTestManager(t)

	ids, err := mgr.Mapper().GenerateDualIDs("alpha")
	require.NoError(t, err)
	legacy := fmt.Sprintf(`{
  "session_id": %q,
  "standard_uuid": %q,
  "prefix_uuid": %q,
  "platform": "alpha",
  "created_at": "2026-03-01T12:00:00.123456",
  "created_timestamp": 1772366400.123456,
  "last_active": 1772366400.123456
}`, ids.TaggedID, ids.CanonicalID, ids.TaggedID)
	require.NoError(t, os.WriteFile(mgr.pointerPath("alpha"), []byte(legacy), 0o600))

	last, ok := mgr.LastSession("alpha")
	require.True(t, ok)
	assert.Equal(t, ids.TaggedID, last.TaggedID)
	assert.Equal(t, ids.CanonicalID, last.CanonicalID)

	continued, err := mgr.CreateOrContinue("alpha", true)
	require.NoError(t, err)
	assert.True(t, continued.Continued)
	assert.Equal(t, ids.TaggedID, continued.TaggedID)

	c.Advance(time.Minute)
	removed, err := mgr.Cleanup(999999)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, mgr.pointerPath("alpha"))
}

func TestCleanupKeepsUnreadablePointer(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, os.MkdirAll(mgr.dir, 0o755))
	require.NoError(t, os.WriteFile(mgr.pointerPath("alpha"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(mgr.pointerPath("beta"), []byte(`{"session_id": "02000000-0000-4000-8000-000000000000"}`), 0o600))

	_, err := mgr.Cleanup(30)
	require.NoError(t, err)
	assert.FileExists(t, mgr.pointerPath("alpha"))
	assert.NoFileExists(t, mgr.pointerPath("beta"))
}
