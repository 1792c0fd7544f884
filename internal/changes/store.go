// Package changes maintains the persisted collection of known breaking
// changes and matches them against a backup's version range and
// integrations.
package changes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kebairia/habackup/internal/logger"
	"github.com/kebairia/habackup/internal/version"
)

// DefaultPath is where the add-on persists its change database.
const DefaultPath = "/data/breaking_changes.json"

// IntegrationAll marks a record that applies regardless of the installed
// integrations.
const IntegrationAll = "all"

// ErrStore indicates a failure reading or writing the persisted database.
var ErrStore = errors.New("breaking change store")

// Record is one known breaking change, introduced at Version and scoped to
// a single integration domain (or IntegrationAll). ID is the identity; the
// store never holds two records with the same ID.
type Record struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Integration string `json:"integration"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	URL         string `json:"url"`
}

// Fetcher supplies candidate records for Update. The shipped implementation
// returns the curated seed dataset; a release-notes scraper would slot in
// behind the same interface.
type Fetcher interface {
	Fetch() ([]Record, error)
}

// database is the persisted file layout.
type database struct {
	Changes    []Record `json:"changes"`
	LastUpdate *string  `json:"last_update"`
}

// Store holds the record collection. Reads may run concurrently; Update is
// the single writer.
type Store struct {
	path string
	log  logger.Logger

	mu sync.RWMutex
	db database
}

// NewStore loads the database at path. A missing file yields an empty
// store, not an error.
func NewStore(path string, log logger.Logger) (*Store, error) {
	s := &Store{path: path, log: log, db: database{Changes: []Record{}}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("no breaking change database found, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStore, path, err)
	}
	if err := json.Unmarshal(data, &s.db); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStore, path, err)
	}
	if s.db.Changes == nil {
		s.db.Changes = []Record{}
	}
	log.Info("loaded breaking change database",
		"path", path, "records", len(s.db.Changes))
	return s, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.db.Changes)
}

// LastUpdate returns the timestamp of the last successful Update, or the
// empty string if the store was never updated.
func (s *Store) LastUpdate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db.LastUpdate == nil {
		return ""
	}
	return *s.db.LastUpdate
}

// Update appends every fetched record whose ID is not already present,
// stamps the update time and persists the whole database. It reports
// whether anything new was added; a fetch that yields only known records
// still refreshes the timestamp.
func (s *Store) Update(fetcher Fetcher) (bool, error) {
	fetched, err := fetcher.Fetch()
	if err != nil {
		return false, fmt.Errorf("%w: fetch records: %v", ErrStore, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.db.Changes))
	for _, r := range s.db.Changes {
		known[r.ID] = struct{}{}
	}

	added := 0
	for _, r := range fetched {
		if _, ok := known[r.ID]; ok {
			continue
		}
		known[r.ID] = struct{}{}
		s.db.Changes = append(s.db.Changes, r)
		added++
	}

	now := time.Now().UTC().Format(time.RFC3339)
	s.db.LastUpdate = &now

	if err := s.persist(); err != nil {
		return false, err
	}
	s.log.Info("breaking change database updated",
		"new", added, "total", len(s.db.Changes))
	return added > 0, nil
}

// persist rewrites the database file atomically: encode to a temp file in
// the same directory, then rename over the target. Callers hold the write
// lock.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: ensure directory %q: %v", ErrStore, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".breaking_changes-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.db); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode database: %v", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrStore, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStore, s.path, err)
	}
	return nil
}

// FindApplicable returns every record whose version lies in the half-open
// interval (from, to] and whose integration matches one of integrations or
// IntegrationAll. Unparseable bounds yield an empty result rather than a
// guess; stored records with unparseable versions are skipped.
func (s *Store) FindApplicable(fromVersion, toVersion string, integrations []string) []Record {
	from, err := version.Parse(fromVersion)
	if err != nil {
		s.log.Warn("cannot match breaking changes, unparseable version",
			"version", fromVersion)
		return nil
	}
	to, err := version.Parse(toVersion)
	if err != nil {
		s.log.Warn("cannot match breaking changes, unparseable version",
			"version", toVersion)
		return nil
	}

	installed := make(map[string]struct{}, len(integrations))
	for _, domain := range integrations {
		installed[domain] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, r := range s.db.Changes {
		v, err := version.Parse(r.Version)
		if err != nil {
			continue
		}
		if !v.After(from) || v.After(to) {
			continue
		}
		if _, ok := installed[r.Integration]; !ok && r.Integration != IntegrationAll {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}
