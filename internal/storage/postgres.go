package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/postgres"
	"github.com/lib/pq"
)

var tablePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PGStore keeps blobs in a single PostgreSQL table keyed by blob key.
type PGStore struct {
	db    *postgres.Client
	table string
}

// NewPGStore creates the blob table if it is missing.
func NewPGStore(ctx context.Context, db *postgres.Client, table string) (*PGStore, error) {
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid blob table name %q", table)
	}
	s := &PGStore{db: db, table: pq.QuoteIdentifier(table)}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := db.DB.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("creating blob table: %w", err)
	}
	return s, nil
}

func (s *PGStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, data) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, s.table),
		key, data)
	if err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}
	return data, nil
}

// List orders keys with the "C" collation so the result matches the byte
// order of the other backends.
func (s *PGStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT key FROM %s WHERE starts_with(key, $1) ORDER BY key COLLATE "C"`, s.table), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	return keys, nil
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.DB.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
