package malwaredb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/shieldsuite/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrEmptyHash = errors.New("hash is required")

// Source labels recorded with each entry.
const (
	SourceSeed   = "seed"
	SourceReport = "user-report"
	SourceFeed   = "feed"
)

// DefaultSeeds are loaded into an empty database.
var DefaultSeeds = []string{
	"example_malware_hash_1",
	"example_malware_hash_2",
}

// Entry is one known-malicious identifier.
type Entry struct {
	Hash        string    `json:"hash"`
	PackageName string    `json:"packageName,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Source      string    `json:"source"`
	ReportedAt  time.Time `json:"reportedAt"`
}

// Store persists known-malicious hashes in SQLite and keeps an in-memory
// index so membership checks do not touch the database. Readers and writers
// are serialized by an RWMutex; a Contains that starts after Report returns
// always observes the new hash.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	mu          sync.RWMutex
	index       map[string]struct{}
	lastUpdated time.Time
}

// NewStore runs migrations from schema.sql, seeds an empty table and loads
// the index.
func NewStore(ctx context.Context, db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "malware-db"}),
		index:  make(map[string]struct{}),
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM malware_hashes`).Scan(&n); err != nil {
		return nil, fmt.Errorf("count hashes: %w", err)
	}
	if n == 0 {
		entries := make([]Entry, 0, len(DefaultSeeds))
		for _, h := range DefaultSeeds {
			entries = append(entries, Entry{Hash: h, Reason: "built-in sample", Source: SourceSeed})
		}
		if _, err := s.Import(ctx, entries); err != nil {
			return nil, fmt.Errorf("seed hashes: %w", err)
		}
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("malware database ready", logging.Field{Key: "hashes", Value: s.Count()})
	return s, nil
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT hash, reported_at FROM malware_hashes`)
	if err != nil {
		return fmt.Errorf("load hashes: %w", err)
	}
	defer rows.Close()

	index := make(map[string]struct{})
	var newest int64
	for rows.Next() {
		var h string
		var at int64
		if err := rows.Scan(&h, &at); err != nil {
			return err
		}
		index[h] = struct{}{}
		if at > newest {
			newest = at
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.index = index
	if newest > 0 {
		s.lastUpdated = time.Unix(newest, 0).UTC()
	}
	s.mu.Unlock()
	return nil
}

// Contains reports whether hash is a known-malicious identifier.
func (s *Store) Contains(hash string) bool {
	h := normalizeHash(hash)
	if h == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[h]
	return ok
}

// Report adds a hash. Reporting a hash that is already known is a no-op and
// returns added=false.
func (s *Store) Report(ctx context.Context, e Entry) (bool, error) {
	if e.Source == "" {
		e.Source = SourceReport
	}
	n, err := s.Import(ctx, []Entry{e})
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.Info("malware reported",
			logging.Field{Key: "hash", Value: normalizeHash(e.Hash)},
			logging.Field{Key: "package", Value: e.PackageName},
			logging.Field{Key: "reason", Value: e.Reason})
	}
	return n > 0, nil
}

// Import inserts entries in one transaction and returns how many were new.
func (s *Store) Import(ctx context.Context, entries []Entry) (int, error) {
	for i := range entries {
		entries[i].Hash = normalizeHash(entries[i].Hash)
		if entries[i].Hash == "" {
			return 0, ErrEmptyHash
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var added []string
	for _, e := range entries {
		at := e.ReportedAt
		if at.IsZero() {
			at = now
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO malware_hashes (hash, package_name, reason, source, reported_at)
             VALUES (?, ?, ?, ?, ?)`,
			e.Hash, e.PackageName, e.Reason, e.Source, at.Unix(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert hash: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added = append(added, e.Hash)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	for _, h := range added {
		s.index[h] = struct{}{}
	}
	if len(added) > 0 {
		s.lastUpdated = now
	}
	return len(added), nil
}

// Count returns the number of known hashes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// LastUpdated is the time of the most recent insertion.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// List returns entries newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT hash, package_name, reason, source, reported_at
          FROM malware_hashes
          ORDER BY reported_at DESC, hash`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.Hash, &e.PackageName, &e.Reason, &e.Source, &at); err != nil {
			return nil, err
		}
		e.ReportedAt = time.Unix(at, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
