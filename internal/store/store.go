// Package store keeps comments, contact messages and newsletter
// subscribers in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/quill/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	slug       TEXT NOT NULL,
	author     TEXT NOT NULL,
	email      TEXT NOT NULL,
	content    TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_slug ON comments(slug, created_at);
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	subject    TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subscribers (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	subscribed_at DATETIME NOT NULL,
	unsubscribed  INTEGER NOT NULL DEFAULT 0
);
`

// Store is the document persistence used by the community service.
// Consumers should depend on this interface rather than the concrete *DB.
type Store interface {
	InsertComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, slug string, limit int) ([]models.Comment, error)
	UpdateCommentContent(ctx context.Context, id, content string) error
	DeleteComment(ctx context.Context, id string) (int64, error)
	CountComments(ctx context.Context) (int, error)

	InsertMessage(ctx context.Context, m *models.ContactMessage) error
	ListMessages(ctx context.Context, limit int) ([]models.ContactMessage, error)
	MarkMessageRead(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	CountMessages(ctx context.Context) (int, error)

	SubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	InsertSubscriber(ctx context.Context, s *models.Subscriber) error
	ReactivateSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]models.Subscriber, error)
	Unsubscribe(ctx context.Context, id string) error
	UnsubscribeEmail(ctx context.Context, email string) error
	CountSubscribers(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}

// DB implements Store on a SQLite connection.
type DB struct {
	conn  *sql.DB
	now   func() time.Time
	newID func() string
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now, newID: uuid.NewString}, nil
}

// SetClock replaces the time source used for new timestamps.
func (db *DB) SetClock(now func() time.Time) { db.now = now }

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error { return db.conn.PingContext(ctx) }

func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Millisecond)
}

func (db *DB) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.conn.ExecContext(ctx, query, args...)
}

func (db *DB) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.conn.QueryContext(ctx, query, args...)
}

func (db *DB) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// affected maps a zero-row mutation to notFound.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
