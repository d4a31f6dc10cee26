package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/valpere/scrapping/internal/pipeline"
)

// SQLDedupeStore backs pipeline.DedupeStore with a database/sql driver -
// sqlite, postgres, or mysql, selected by driverName. All three speak the
// same portable two-table schema, so one implementation serves all of
// them rather than one per vendor.
type SQLDedupeStore struct {
	db *sql.DB
}

// NewSQLDedupeStore opens dsn with driverName ("sqlite3", "postgres",
// "mysql") and ensures the dedupe schema exists.
func NewSQLDedupeStore(driverName, dsn string) (*SQLDedupeStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s dedupe store: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s dedupe store: %w", driverName, err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS dedupe_urls (source_id VARCHAR(255) NOT NULL, url TEXT NOT NULL, PRIMARY KEY (source_id, url(255)))`,
		`CREATE TABLE IF NOT EXISTS dedupe_hashes (source_id VARCHAR(255) NOT NULL, content_hash VARCHAR(64) NOT NULL, PRIMARY KEY (source_id, content_hash))`,
	}
	if driverName != "mysql" {
		ddl[0] = `CREATE TABLE IF NOT EXISTS dedupe_urls (source_id VARCHAR(255) NOT NULL, url TEXT NOT NULL, PRIMARY KEY (source_id, url))`
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create dedupe schema: %w", err)
		}
	}

	return &SQLDedupeStore{db: db}, nil
}

func (s *SQLDedupeStore) SeenURL(ctx context.Context, sourceID, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dedupe_urls WHERE source_id = ? AND url = ?`, sourceID, url).Scan(&n)
	return n > 0, err
}

func (s *SQLDedupeStore) MarkURL(ctx context.Context, sourceID, url string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO dedupe_urls (source_id, url) VALUES (?, ?)`, sourceID, url)
	return ignoreDuplicate(err)
}

func (s *SQLDedupeStore) SeenContentHash(ctx context.Context, sourceID, hash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dedupe_hashes WHERE source_id = ? AND content_hash = ?`, sourceID, hash).Scan(&n)
	return n > 0, err
}

func (s *SQLDedupeStore) MarkContentHash(ctx context.Context, sourceID, hash string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO dedupe_hashes (source_id, content_hash) VALUES (?, ?)`, sourceID, hash)
	return ignoreDuplicate(err)
}

func (s *SQLDedupeStore) Close() error { return s.db.Close() }

// ignoreDuplicate swallows primary-key conflicts: MarkURL/MarkContentHash
// being called twice for the same key is a race between concurrent
// workers, not an error.
func ignoreDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range []string{"UNIQUE constraint", "duplicate key", "Duplicate entry"} {
		if strings.Contains(msg, marker) {
			return nil
		}
	}
	return err
}

var _ pipeline.DedupeStore = (*SQLDedupeStore)(nil)
