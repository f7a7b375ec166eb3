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

var subscriberColumns = []string{"id", "email", "subscribed_at", "unsubscribed"}

func scanSubscriber(r rowScanner) (models.Subscriber, error) {
	var s models.Subscriber
	err := r.Scan(&s.ID, &s.Email, &s.SubscribedAt, &s.Unsubscribed)
	s.SubscribedAt = s.SubscribedAt.UTC()
	return s, err
}

// SubscriberByEmail returns the subscription for email, active or not.
func (db *DB) SubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	return db.getSubscriber(ctx, sq.Eq{"email": email})
}

func (db *DB) getSubscriber(ctx context.Context, where sq.Eq) (*models.Subscriber, error) {
	query, args, err := sq.Select(subscriberColumns...).From("subscribers").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build query: %w", err)
	}
	s, err := scanSubscriber(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: subscriber: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get subscriber: %w", err)
	}
	return &s, nil
}

// InsertSubscriber stores a new active subscription. A duplicate email
// yields apperr.ErrAlreadyExists.
func (db *DB) InsertSubscriber(ctx context.Context, s *models.Subscriber) error {
	s.ID = db.newID()
	s.SubscribedAt = db.timestamp()
	s.Unsubscribed = false
	_, err := db.exec(ctx, sq.Insert("subscribers").
		Columns(subscriberColumns...).
		Values(s.ID, s.Email, s.SubscribedAt, false))
	if isUniqueViolation(err) {
		return fmt.Errorf("store: subscriber %s: %w", s.Email, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("store: insert subscriber: %w", err)
	}
	return nil
}

// ReactivateSubscriber marks a subscription active again with a fresh
// subscribed_at.
func (db *DB) ReactivateSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	res, err := db.exec(ctx, sq.Update("subscribers").
		Set("unsubscribed", false).
		Set("subscribed_at", db.timestamp()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("store: reactivate subscriber: %w", err)
	}
	if err := affected(res, fmt.Errorf("store: subscriber %s: %w", id, apperr.ErrNotFound)); err != nil {
		return nil, err
	}
	return db.getSubscriber(ctx, sq.Eq{"id": id})
}

// ListSubscribers returns active subscriptions, newest first.
func (db *DB) ListSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := db.query(ctx, sq.Select(subscriberColumns...).
		From("subscribers").
		Where(sq.Eq{"unsubscribed": false}).
		OrderBy("subscribed_at DESC", "rowid DESC"))
	if err != nil {
		return nil, fmt.Errorf("store: list subscribers: %w", err)
	}
	defer rows.Close()

	out := []models.Subscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan subscriber: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Unsubscribe deactivates the subscription with id.
func (db *DB) Unsubscribe(ctx context.Context, id string) error {
	res, err := db.exec(ctx, sq.Update("subscribers").Set("unsubscribed", true).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("store: unsubscribe: %w", err)
	}
	return affected(res, fmt.Errorf("store: subscriber %s: %w", id, apperr.ErrNotFound))
}

// UnsubscribeEmail deactivates the subscription for email. Unknown
// addresses are ignored.
func (db *DB) UnsubscribeEmail(ctx context.Context, email string) error {
	_, err := db.exec(ctx, sq.Update("subscribers").Set("unsubscribed", true).Where(sq.Eq{"email": email}))
	if err != nil {
		return fmt.Errorf("store: unsubscribe email: %w", err)
	}
	return nil
}

// CountSubscribers returns the number of active subscriptions.
func (db *DB) CountSubscribers(ctx context.Context) (int, error) {
	n, err := db.count(ctx, sq.Select("COUNT(*)").From("subscribers").Where(sq.Eq{"unsubscribed": false}))
	if err != nil {
		return 0, fmt.Errorf("store: count subscribers: %w", err)
	}
	return n, nil
}
