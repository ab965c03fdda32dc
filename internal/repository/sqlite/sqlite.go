// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no cgo).
//
// The catalog is stored as two tables, topics and problems, with problems
// carrying their topic id and position so a topic's embedded list can be
// rebuilt in order. Progress rows reference problems only by id text, with no
// foreign key from progress.problem_id to problems.id.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/practice-tracker/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/tracker.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// Every connection to ":memory:" gets its own private database, so the pool is
// capped at one connection in that case.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the connection settings to dbPath. The driver applies them to
// every connection in the pool, not just the first. Transactions begin
// IMMEDIATE so a read-then-write transaction never upgrades its lock.
func dsn(dbPath string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	if dbPath != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return dbPath + "?" + strings.Join(params, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS topics (
			id          TEXT PRIMARY KEY,
			position    INTEGER NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS problems (
			id              TEXT PRIMARY KEY,
			topic_id        TEXT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
			position        INTEGER NOT NULL,
			title           TEXT NOT NULL,
			level           TEXT NOT NULL DEFAULT '',
			leetcode_link   TEXT NOT NULL DEFAULT '',
			codeforces_link TEXT NOT NULL DEFAULT '',
			youtube_link    TEXT NOT NULL DEFAULT '',
			article_link    TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_problems_topic ON problems(topic_id, position);
	`)
	if err != nil {
		return fmt.Errorf("creating catalog tables: %w", err)
	}

	// UNIQUE(user_id, problem_id) is what makes UpsertProgress atomic.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS progress (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			problem_id TEXT NOT NULL,
			completed  BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (user_id, problem_id)
		);
		CREATE INDEX IF NOT EXISTS idx_progress_user ON progress(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating progress table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
