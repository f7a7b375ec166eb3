package community

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/testutil"
)

type fakePosts struct {
	posts []models.PostMeta
	err   error
}

func (f fakePosts) List(context.Context) ([]models.PostMeta, error) { return f.posts, f.err }

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) notify(kind string, _ any) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

func newTestService(t *testing.T, posts fakePosts) (*Service, *recorder) {
	t.Helper()
	db := testutil.TestDB(t)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	rec := &recorder{}
	return New(db, posts, rec.notify, testutil.Logger()), rec
}

func TestAddComment_ThreadShape(t *testing.T) {
	svc, rec := newTestService(t, fakePosts{})
	ctx := context.Background()

	first, err := svc.AddComment(ctx, CommentInput{Slug: "p", Author: " Ann ", Email: "ann@x.io", Content: "one"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	second, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "Bob", Email: "bob@x.io", Content: "two"})
	r1, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "Cy", Email: "cy@x.io", Content: "r1", ParentID: first.ID})
	r2, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "Dee", Email: "dee@x.io", Content: "r2", ParentID: first.ID})

	if first.Author != "Ann" {
		t.Errorf("author not trimmed: %q", first.Author)
	}

	thread, err := svc.Thread(ctx, "p")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(thread) != 2 || thread[0].ID != second.ID || thread[1].ID != first.ID {
		t.Fatalf("roots = %+v", thread)
	}
	if len(thread[0].Replies) != 0 || thread[0].Replies == nil {
		t.Errorf("second should have an empty reply list: %#v", thread[0].Replies)
	}
	replies := thread[1].Replies
	if len(replies) != 2 || replies[0].ID != r1.ID || replies[1].ID != r2.ID {
		t.Errorf("replies = %+v", replies)
	}
	for _, root := range thread {
		if root.Email != "" {
			t.Error("thread exposes email")
		}
	}
	if len(rec.kinds) != 4 || rec.kinds[0] != EventCommentCreated {
		t.Errorf("events = %v", rec.kinds)
	}
}

func TestAddComment_InvalidParent(t *testing.T) {
	svc, _ := newTestService(t, fakePosts{})
	ctx := context.Background()
	root, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "a", Email: "a@x.io", Content: "c"})
	reply, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "b", Email: "b@x.io", Content: "c", ParentID: root.ID})

	cases := map[string]CommentInput{
		"missing parent":      {Slug: "p", ParentID: "nope"},
		"other post's parent": {Slug: "q", ParentID: root.ID},
		"reply to a reply":    {Slug: "p", ParentID: reply.ID},
	}
	for name, in := range cases {
		in.Author, in.Email, in.Content = "x", "x@x.io", "x"
		if _, err := svc.AddComment(ctx, in); !errors.Is(err, apperr.ErrInvalidParent) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestPostCommentsHidesEmailButAllCommentsKeepsIt(t *testing.T) {
	svc, _ := newTestService(t, fakePosts{})
	ctx := context.Background()
	_, _ = svc.AddComment(ctx, CommentInput{Slug: "p", Author: "a", Email: "a@x.io", Content: "c"})

	public, _ := svc.PostComments(ctx, "p")
	if len(public) != 1 || public[0].Email != "" {
		t.Errorf("public = %+v", public)
	}
	all, _ := svc.AllComments(ctx)
	if len(all) != 1 || all[0].Email != "a@x.io" {
		t.Errorf("all = %+v", all)
	}
}

func TestUpdateAndDeleteComment(t *testing.T) {
	svc, _ := newTestService(t, fakePosts{})
	ctx := context.Background()
	root, _ := svc.AddComment(ctx, CommentInput{Slug: "p", Author: "a", Email: "a@x.io", Content: "c"})
	_, _ = svc.AddComment(ctx, CommentInput{Slug: "p", Author: "b", Email: "b@x.io", Content: "c", ParentID: root.ID})

	if err := svc.UpdateComment(ctx, root.ID, "edited"); err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if err := svc.DeleteComment(ctx, root.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if all, _ := svc.AllComments(ctx); len(all) != 0 {
		t.Errorf("replies not removed: %+v", all)
	}
	if err := svc.DeleteComment(ctx, root.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestMessages(t *testing.T) {
	svc, rec := newTestService(t, fakePosts{})
	ctx := context.Background()
	m, err := svc.SendMessage(ctx, MessageInput{Name: "N", Email: "n@x.io", Subject: "Hi", Message: "body"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if m.Read {
		t.Error("new message should be unread")
	}
	if err := svc.MarkRead(ctx, m.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	list, _ := svc.Messages(ctx)
	if len(list) != 1 || !list[0].Read {
		t.Errorf("list = %+v", list)
	}
	if err := svc.DeleteMessage(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if rec.kinds[0] != EventMessageReceived {
		t.Errorf("events = %v", rec.kinds)
	}
}

func TestSubscribe_States(t *testing.T) {
	svc, rec := newTestService(t, fakePosts{})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "  Reader@Example.COM ")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Email != "reader@example.com" {
		t.Errorf("email = %q", sub.Email)
	}
	if _, err := svc.Subscribe(ctx, "reader@example.com"); !errors.Is(err, apperr.ErrAlreadySubscribed) {
		t.Errorf("duplicate err = %v", err)
	}

	if err := svc.UnsubscribeEmail(ctx, "READER@example.com"); err != nil {
		t.Fatalf("UnsubscribeEmail: %v", err)
	}
	if list, _ := svc.Subscribers(ctx); len(list) != 0 {
		t.Errorf("list after unsubscribe = %+v", list)
	}

	again, err := svc.Subscribe(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if again.ID != sub.ID || !again.SubscribedAt.After(sub.SubscribedAt) {
		t.Errorf("reactivated = %+v, original = %+v", again, sub)
	}
	if err := svc.Unsubscribe(ctx, again.ID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if len(rec.kinds) != 2 {
		t.Errorf("events = %v", rec.kinds)
	}
}

func TestStats(t *testing.T) {
	var posts []models.PostMeta
	for i := 0; i < 7; i++ {
		posts = append(posts, models.PostMeta{Slug: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("P%d", i), CreatedAt: "2025-01-01"})
	}
	svc, _ := newTestService(t, fakePosts{posts: posts})
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, _ = svc.AddComment(ctx, CommentInput{Slug: "p0", Author: fmt.Sprintf("a%d", i), Email: "a@x.io", Content: "c"})
	}
	_, _ = svc.SendMessage(ctx, MessageInput{Name: "N", Email: "n@x.io", Subject: "s", Message: "m"})
	_, _ = svc.Subscribe(ctx, "a@x.io")
	_, _ = svc.Subscribe(ctx, "b@x.io")
	_ = svc.UnsubscribeEmail(ctx, "b@x.io")

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalPosts != 7 || st.TotalComments != 6 || st.TotalMessages != 1 || st.TotalSubscribers != 1 {
		t.Errorf("totals = %+v", st)
	}
	if len(st.RecentPosts) != 5 || st.RecentPosts[0].Slug != "p0" {
		t.Errorf("recent posts = %+v", st.RecentPosts)
	}
	if len(st.RecentComments) != 5 || st.RecentComments[0].Author != "a5" {
		t.Errorf("recent comments = %+v", st.RecentComments)
	}
	if len(st.RecentMessages) != 1 {
		t.Errorf("recent messages = %+v", st.RecentMessages)
	}
}

func TestStats_PostListFailure(t *testing.T) {
	svc, _ := newTestService(t, fakePosts{err: errors.New("boom")})
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Error("expected error")
	}
}
