// Package community implements comment threads, the contact inbox, the
// newsletter list and the dashboard statistics.
package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/store"
)

// Activity event kinds passed to the Notify callback.
const (
	EventCommentCreated  = "comment.created"
	EventMessageReceived = "message.received"
	EventSubscriberAdded = "subscriber.added"
)

// recentLimit is the number of items per list in DashboardStats.
const recentLimit = 5

// PostLister supplies the post list for dashboard statistics.
type PostLister interface {
	List(ctx context.Context) ([]models.PostMeta, error)
}

// NotifyFunc receives activity events.
type NotifyFunc func(kind string, data any)

// Service is the community use-case layer.
type Service struct {
	store  store.Store
	posts  PostLister
	notify NotifyFunc
	logger *slog.Logger
}

// New creates a Service. notify may be nil.
func New(st store.Store, posts PostLister, notify NotifyFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, posts: posts, notify: notify, logger: logger}
}

func (s *Service) emit(kind string, data any) {
	if s.notify != nil {
		s.notify(kind, data)
	}
}

// CommentInput is a new comment or reply.
type CommentInput struct {
	Slug     string
	Author   string
	Email    string
	Content  string
	ParentID string
}

// AddComment stores a comment. A reply must name a top-level comment on the
// same post; anything else is apperr.ErrInvalidParent.
func (s *Service) AddComment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		parent, err := s.store.GetComment(ctx, parentID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("community: parent %s: %w", parentID, apperr.ErrInvalidParent)
		}
		if err != nil {
			return nil, err
		}
		if parent.Slug != in.Slug || parent.ParentID != "" {
			return nil, fmt.Errorf("community: parent %s: %w", parentID, apperr.ErrInvalidParent)
		}
	}
	c := &models.Comment{
		Slug:     in.Slug,
		Author:   strings.TrimSpace(in.Author),
		Email:    strings.TrimSpace(in.Email),
		Content:  in.Content,
		ParentID: parentID,
	}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("community: comment added", slog.String("id", c.ID), slog.String("slug", c.Slug))
	s.emit(EventCommentCreated, map[string]string{"id": c.ID, "slug": c.Slug, "author": c.Author})
	return c, nil
}

// PostComments lists a post's comments newest first, without email addresses.
func (s *Service) PostComments(ctx context.Context, slug string) ([]models.Comment, error) {
	list, err := s.store.ListComments(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Email = ""
	}
	return list, nil
}

// Thread returns a post's top-level comments newest first, each with its
// replies oldest first. Email addresses are omitted.
func (s *Service) Thread(ctx context.Context, slug string) ([]models.CommentWithReplies, error) {
	list, err := s.PostComments(ctx, slug)
	if err != nil {
		return nil, err
	}
	replies := make(map[string][]models.Comment)
	var roots []models.Comment
	for _, c := range list {
		if c.ParentID == "" {
			roots = append(roots, c)
		} else {
			replies[c.ParentID] = append(replies[c.ParentID], c)
		}
	}
	out := make([]models.CommentWithReplies, 0, len(roots))
	for _, root := range roots {
		r := replies[root.ID]
		sort.SliceStable(r, func(i, j int) bool { return r[i].CreatedAt.Before(r[j].CreatedAt) })
		if r == nil {
			r = []models.Comment{}
		}
		out = append(out, models.CommentWithReplies{Comment: root, Replies: r})
	}
	return out, nil
}

// AllComments lists every comment newest first, for moderation.
func (s *Service) AllComments(ctx context.Context) ([]models.Comment, error) {
	return s.store.ListComments(ctx, "", 0)
}

// UpdateComment replaces a comment's content.
func (s *Service) UpdateComment(ctx context.Context, id, content string) error {
	return s.store.UpdateCommentContent(ctx, id, content)
}

// DeleteComment removes a comment with its replies.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	n, err := s.store.DeleteComment(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("community: comment deleted", slog.String("id", id), slog.Int64("removed", n))
	return nil
}

// MessageInput is a contact form submission.
type MessageInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// SendMessage stores a contact message as unread.
func (s *Service) SendMessage(ctx context.Context, in MessageInput) (*models.ContactMessage, error) {
	m := &models.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("community: message received", slog.String("id", m.ID))
	s.emit(EventMessageReceived, map[string]string{"id": m.ID, "name": m.Name, "subject": m.Subject})
	return m, nil
}

// Messages lists the inbox newest first.
func (s *Service) Messages(ctx context.Context) ([]models.ContactMessage, error) {
	return s.store.ListMessages(ctx, 0)
}

// MarkRead flags a message as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkMessageRead(ctx, id)
}

// DeleteMessage removes a message.
func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	return s.store.DeleteMessage(ctx, id)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe adds email to the newsletter. An active subscription yields
// apperr.ErrAlreadySubscribed; a lapsed one is reactivated.
func (s *Service) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	email = NormalizeEmail(email)
	existing, err := s.store.SubscriberByEmail(ctx, email)
	switch {
	case err == nil && !existing.Unsubscribed:
		return nil, fmt.Errorf("community: %s: %w", email, apperr.ErrAlreadySubscribed)
	case err == nil:
		sub, err := s.store.ReactivateSubscriber(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("community: subscriber reactivated", slog.String("id", sub.ID))
		s.emit(EventSubscriberAdded, map[string]string{"id": sub.ID})
		return sub, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	sub := &models.Subscriber{Email: email}
	if err := s.store.InsertSubscriber(ctx, sub); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return nil, fmt.Errorf("community: %s: %w", email, apperr.ErrAlreadySubscribed)
		}
		return nil, err
	}
	s.logger.Info("community: subscriber added", slog.String("id", sub.ID))
	s.emit(EventSubscriberAdded, map[string]string{"id": sub.ID})
	return sub, nil
}

// Subscribers lists active subscriptions.
func (s *Service) Subscribers(ctx context.Context) ([]models.Subscriber, error) {
	return s.store.ListSubscribers(ctx)
}

// Unsubscribe deactivates a subscription by id.
func (s *Service) Unsubscribe(ctx context.Context, id string) error {
	return s.store.Unsubscribe(ctx, id)
}

// UnsubscribeEmail deactivates a subscription by address.
func (s *Service) UnsubscribeEmail(ctx context.Context, email string) error {
	return s.store.UnsubscribeEmail(ctx, NormalizeEmail(email))
}

// Stats gathers totals and the most recent posts, comments and messages.
func (s *Service) Stats(ctx context.Context) (*models.DashboardStats, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("community: stats posts: %w", err)
	}
	st := &models.DashboardStats{
		TotalPosts:     len(posts),
		RecentPosts:    []models.RecentPost{},
		RecentComments: []models.RecentComment{},
		RecentMessages: []models.RecentMessage{},
	}
	for i, p := range posts {
		if i == recentLimit {
			break
		}
		st.RecentPosts = append(st.RecentPosts, models.RecentPost{Slug: p.Slug, Title: p.Title, Date: p.CreatedAt})
	}

	if st.TotalComments, err = s.store.CountComments(ctx); err != nil {
		return nil, err
	}
	if st.TotalMessages, err = s.store.CountMessages(ctx); err != nil {
		return nil, err
	}
	if st.TotalSubscribers, err = s.store.CountSubscribers(ctx); err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, "", recentLimit)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		st.RecentComments = append(st.RecentComments, models.RecentComment{ID: c.ID, Author: c.Author, Slug: c.Slug, Date: c.CreatedAt})
	}
	messages, err := s.store.ListMessages(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		st.RecentMessages = append(st.RecentMessages, models.RecentMessage{ID: m.ID, Name: m.Name, Date: m.CreatedAt})
	}
	return st, nil
}

// Ready reports whether the backing store answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
