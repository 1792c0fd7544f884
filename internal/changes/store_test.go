package changes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/habackup/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "breaking_changes.json")
	s, err := NewStore(path, logger.Nop())
	require.NoError(t, err)
	return s
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	_, err := s.Update(SeedFetcher{})
	require.NoError(t, err)
	return s
}

func TestNewStoreMissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.LastUpdate())
}

func TestUpdateIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Update(SeedFetcher{})
	require.NoError(t, err)
	assert.True(t, added)
	size := s.Len()
	assert.Equal(t, 8, size)

	// Same dataset again: nothing new, size unchanged.
	added, err = s.Update(SeedFetcher{})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, size, s.Len())
	assert.NotEmpty(t, s.LastUpdate())
}

func TestUpdatePersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breaking_changes.json")
	s, err := NewStore(path, logger.Nop())
	require.NoError(t, err)
	_, err = s.Update(SeedFetcher{})
	require.NoError(t, err)

	// The file is a plain {changes, last_update} document.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var db database
	require.NoError(t, json.Unmarshal(data, &db))
	assert.Len(t, db.Changes, 8)
	require.NotNil(t, db.LastUpdate)

	reloaded, err := NewStore(path, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Len())
	assert.Equal(t, *db.LastUpdate, reloaded.LastUpdate())
}

func TestFindApplicableRangeAndIntegration(t *testing.T) {
	s := seededStore(t)

	matched := s.FindApplicable("2024.3", "2024.10", []string{"mqtt"})
	require.Len(t, matched, 1)
	assert.Equal(t, "mqtt_2024_10", matched[0].ID)
	assert.Equal(t, "2024.10.0", matched[0].Version)
}

func TestFindApplicableLowerBoundExclusive(t *testing.T) {
	s := seededStore(t)

	// sensor_2024_3 sits exactly on the from bound and must be excluded.
	matched := s.FindApplicable("2024.3.0", "2024.10", []string{"sensor"})
	assert.Empty(t, matched)

	// One step earlier it is in range.
	matched = s.FindApplicable("2024.2", "2024.10", []string{"sensor"})
	require.Len(t, matched, 1)
	assert.Equal(t, "sensor_2024_3", matched[0].ID)
}

func TestFindApplicableUpperBoundInclusive(t *testing.T) {
	s := seededStore(t)
	matched := s.FindApplicable("2024.9", "2024.10.0", []string{"mqtt"})
	require.Len(t, matched, 1)
	assert.Equal(t, "mqtt_2024_10", matched[0].ID)
}

func TestFindApplicableIntegrationAll(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(staticFetcher{records: []Record{
		{ID: "core_2024_6", Version: "2024.6.0", Integration: IntegrationAll, Severity: SeverityMedium},
		{ID: "weird", Version: "not-a-version", Integration: "mqtt", Severity: SeverityHigh},
	}})
	require.NoError(t, err)

	// "all" matches any integration set; the unparseable record is skipped.
	matched := s.FindApplicable("2024.1", "2024.12", []string{"zha"})
	require.Len(t, matched, 1)
	assert.Equal(t, "core_2024_6", matched[0].ID)
}

func TestFindApplicableUnparseableBounds(t *testing.T) {
	s := seededStore(t)
	assert.Empty(t, s.FindApplicable("garbage", "2024.10", []string{"mqtt"}))
	assert.Empty(t, s.FindApplicable("2024.3", "garbage", []string{"mqtt"}))
}

type staticFetcher struct {
	records []Record
}

func (f staticFetcher) Fetch() ([]Record, error) { return f.records, nil }
