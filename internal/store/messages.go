package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

// InsertMessage stores m as unread, assigning its ID and timestamp.
func (db *DB) InsertMessage(ctx context.Context, m *models.ContactMessage) error {
	m.ID = db.newID()
	m.CreatedAt = db.timestamp()
	m.Read = false
	_, err := db.exec(ctx, sq.Insert("messages").
		Columns("id", "name", "email", "subject", "message", "read", "created_at").
		Values(m.ID, m.Name, m.Email, m.Subject, m.Message, false, m.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: insert message: %w", err)
	}
	return nil
}

// ListMessages returns messages newest first; limit <= 0 means no limit.
func (db *DB) ListMessages(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	b := sq.Select("id", "name", "email", "subject", "message", "read", "created_at").
		From("messages").
		OrderBy("created_at DESC", "rowid DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	rows, err := db.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	out := []models.ContactMessage{}
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkMessageRead flags a message as read.
func (db *DB) MarkMessageRead(ctx context.Context, id string) error {
	res, err := db.exec(ctx, sq.Update("messages").Set("read", true).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("store: mark read: %w", err)
	}
	return affected(res, fmt.Errorf("store: message %s: %w", id, apperr.ErrNotFound))
}

// DeleteMessage removes a message.
func (db *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.exec(ctx, sq.Delete("messages").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("store: delete message: %w", err)
	}
	return affected(res, fmt.Errorf("store: message %s: %w", id, apperr.ErrNotFound))
}

// CountMessages returns the number of stored messages.
func (db *DB) CountMessages(ctx context.Context) (int, error) {
	n, err := db.count(ctx, sq.Select("COUNT(*)").From("messages"))
	if err != nil {
		return 0, fmt.Errorf("store: count messages: %w", err)
	}
	return n, nil
}
