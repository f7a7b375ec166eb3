package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

var commentColumns = []string{"id", "slug", "author", "email", "content", "parent_id", "created_at", "updated_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(r rowScanner) (models.Comment, error) {
	var c models.Comment
	err := r.Scan(&c.ID, &c.Slug, &c.Author, &c.Email, &c.Content, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

// InsertComment stores c, assigning its ID and timestamps.
func (db *DB) InsertComment(ctx context.Context, c *models.Comment) error {
	c.ID = db.newID()
	c.CreatedAt = db.timestamp()
	c.UpdatedAt = c.CreatedAt
	_, err := db.exec(ctx, sq.Insert("comments").
		Columns(commentColumns...).
		Values(c.ID, c.Slug, c.Author, c.Email, c.Content, c.ParentID, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store: insert comment: %w", err)
	}
	return nil
}

// GetComment returns the comment with id.
func (db *DB) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	query, args, err := sq.Select(commentColumns...).From("comments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build query: %w", err)
	}
	c, err := scanComment(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: comment %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get comment: %w", err)
	}
	return &c, nil
}

// ListComments returns comments newest first. An empty slug lists every
// post's comments; limit <= 0 means no limit.
func (db *DB) ListComments(ctx context.Context, slug string, limit int) ([]models.Comment, error) {
	b := sq.Select(commentColumns...).From("comments").OrderBy("created_at DESC", "rowid DESC")
	if slug != "" {
		b = b.Where(sq.Eq{"slug": slug})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	rows, err := db.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("store: list comments: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCommentContent replaces the body of a comment and bumps updated_at.
func (db *DB) UpdateCommentContent(ctx context.Context, id, content string) error {
	res, err := db.exec(ctx, sq.Update("comments").
		Set("content", content).
		Set("updated_at", db.timestamp()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("store: update comment: %w", err)
	}
	return affected(res, fmt.Errorf("store: comment %s: %w", id, apperr.ErrNotFound))
}

// DeleteComment removes a comment and its direct replies, returning how many
// rows went.
func (db *DB) DeleteComment(ctx context.Context, id string) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	query, args, err := sq.Delete("comments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete comment: %w", err)
	}
	if err := affected(res, fmt.Errorf("store: comment %s: %w", id, apperr.ErrNotFound)); err != nil {
		return 0, err
	}

	query, args, err = sq.Delete("comments").Where(sq.Eq{"parent_id": id}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build query: %w", err)
	}
	replies, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete replies: %w", err)
	}
	n, _ := replies.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return n + 1, nil
}

// CountComments returns the number of stored comments.
func (db *DB) CountComments(ctx context.Context) (int, error) {
	n, err := db.count(ctx, sq.Select("COUNT(*)").From("comments"))
	if err != nil {
		return 0, fmt.Errorf("store: count comments: %w", err)
	}
	return n, nil
}
