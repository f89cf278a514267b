// Package sqlite is a durable Backend stored in a single SQLite database file.
// It uses the pure-Go modernc.org/sqlite driver, so no cgo is required.
//
// Keys are stored as BLOBs without a length limit, so the cache uses native
// keys with this engine. Each write records a monotonically increasing
// sequence number; ForEach visits pairs in write order so recency survives
// restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/assetcache/backend"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key        BLOB PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_updated_at ON entries(updated_at);
`

type Store struct {
	db  *sql.DB
	seq int64

	closeOnce sync.Once
	closeErr  error
}

var (
	_ backend.Backend      = (*Store)(nil)
	_ backend.BatchDeleter = (*Store)(nil)
)

type Config struct {
	// Path to the database file. Created if missing.
	Path string
	// BusyTimeoutMS bounds how long a write waits on a lock held by another
	// connection. 0 => 5000.
	BusyTimeoutMS int
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite backend: path is required")
	}
	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	dsn := "file:" + cfg.Path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite backend: open %s: %w", cfg.Path, err)
	}
	// one writer; the cache serializes access anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite backend: init schema: %w", err)
	}
	s := &Store{db: db}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(updated_at), 0) FROM entries`).Scan(&s.seq); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite backend: read sequence: %w", err)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	s.seq++
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.seq)
	return err
}

func (s *Store) Del(ctx context.Context, key []byte) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key)
	return err
}

// DelMany deletes keys in one transaction.
func (s *Store) DelMany(ctx context.Context, keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM entries WHERE key = ?`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ForEach reads all pairs into memory first; the single connection cannot
// serve callbacks that touch the store while rows are open.
func (s *Store) ForEach(ctx context.Context, fn func(key, value []byte) error) error {
	type pair struct{ k, v []byte }

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM entries ORDER BY updated_at, rowid`)
	if err != nil {
		return err
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.k, &p.v); err != nil {
			_ = rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := fn(p.k, p.v); err != nil {
			if errors.Is(err, backend.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Len returns the number of stored pairs.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// Close is safe to call multiple times.
func (s *Store) Close(context.Context) error {
	s.closeOnce.Do(func() { s.closeErr = s.db.Close() })
	return s.closeErr
}
