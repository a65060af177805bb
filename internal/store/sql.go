package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// dialect captures the few differences between the supported SQL drivers
type dialect struct {
	driver   string
	blobType string
	numbered bool // $1 placeholders instead of ?
}

var dialects = map[string]dialect{
	"sqlite3":  {driver: "sqlite3", blobType: "BLOB"},
	"postgres": {driver: "postgres", blobType: "BYTEA", numbered: true},
}

// rebind rewrites ? placeholders for drivers that number them
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OpenSQL opens a database for the given driver ("sqlite3" or "postgres")
// and creates the kv and blobs tables if they do not exist.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.driver == "sqlite3" {
		// a single connection keeps :memory: databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at BIGINT NOT NULL DEFAULT 0
        )
    `)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS blobs (
            key TEXT PRIMARY KEY,
            data %s NOT NULL,
            content_type TEXT NOT NULL DEFAULT '',
            created_at BIGINT NOT NULL
        )
    `, d.blobType))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return db, nil
}

// SQLKV is a KV over the kv table. Expiry is stored as epoch millis and
// enforced on read; a Sweeper removes stale rows.
type SQLKV struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// NewSQLKV wraps a database opened with OpenSQL
func NewSQLKV(db *sql.DB, driver string) *SQLKV {
	return &SQLKV{db: db, dialect: dialects[driver], now: time.Now}
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT value, expires_at FROM kv WHERE key = ?"),
		key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	if expiresAt > 0 && expiresAt <= s.now().UnixMilli() {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
        INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
    `), key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT COUNT(*) FROM kv WHERE key = ? AND (expires_at = 0 OR expires_at > ?)"),
		key, s.now().UnixMilli(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// DeleteExpired removes rows whose expiry has passed and returns how many went
func (s *SQLKV) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind("DELETE FROM kv WHERE expires_at > 0 AND expires_at <= ?"),
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}

// SQLBlob is a Blob over the blobs table
type SQLBlob struct {
	db      *sql.DB
	dialect dialect
	owned   bool
}

// NewSQLBlob wraps a database opened with OpenSQL. When owned is false,
// Close leaves the database open for a KV sharing it.
func NewSQLBlob(db *sql.DB, driver string, owned bool) *SQLBlob {
	return &SQLBlob{db: db, dialect: dialects[driver], owned: owned}
}

func (s *SQLBlob) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
        INSERT INTO blobs (key, data, content_type, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (key) DO UPDATE SET data = excluded.data, content_type = excluded.content_type
    `), key, data, contentType, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	return nil
}

func (s *SQLBlob) Get(ctx context.Context, key string) (*Object, error) {
	obj := &Object{}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT data, content_type FROM blobs WHERE key = ?"),
		key,
	).Scan(&obj.Data, &obj.ContentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return obj, nil
}

func (s *SQLBlob) Head(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT COUNT(*) FROM blobs WHERE key = ?"),
		key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to head blob %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *SQLBlob) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
