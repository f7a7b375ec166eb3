package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quill-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Each call advances one second so ordering is deterministic.
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	return db
}

func addComment(t *testing.T, db *DB, slug, author, parent string) *models.Comment {
	t.Helper()
	c := &models.Comment{Slug: slug, Author: author, Email: author + "@x.io", Content: "hi from " + author, ParentID: parent}
	if err := db.InsertComment(context.Background(), c); err != nil {
		t.Fatalf("InsertComment: %v", err)
	}
	return c
}

func TestComments_InsertGetList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := addComment(t, db, "post", "ann", "")
	b := addComment(t, db, "post", "bob", a.ID)
	addComment(t, db, "other", "cy", "")

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not assigned: %q %q", a.ID, b.ID)
	}
	got, err := db.GetComment(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetComment: %v", err)
	}
	if got.ParentID != a.ID || got.Email != "bob@x.io" || !got.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("comment = %+v", got)
	}

	list, err := db.ListComments(ctx, "post", 0)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("slug list order = %+v", list)
	}
	all, _ := db.ListComments(ctx, "", 0)
	if len(all) != 3 || all[0].Slug != "other" {
		t.Errorf("all = %+v", all)
	}
	recent, _ := db.ListComments(ctx, "", 2)
	if len(recent) != 2 {
		t.Errorf("limit ignored: %d", len(recent))
	}
	if n, _ := db.CountComments(ctx); n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestComments_GetMissing(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetComment(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestComments_UpdateContentBumpsUpdatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := addComment(t, db, "p", "ann", "")

	if err := db.UpdateCommentContent(ctx, c.ID, "edited"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := db.GetComment(ctx, c.ID)
	if got.Content != "edited" || !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("comment = %+v", got)
	}
	if err := db.UpdateCommentContent(ctx, "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing update err = %v", err)
	}
}

func TestComments_DeleteRemovesDirectReplies(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	root := addComment(t, db, "p", "ann", "")
	reply := addComment(t, db, "p", "bob", root.ID)
	nested := addComment(t, db, "p", "cy", reply.ID)
	other := addComment(t, db, "p", "dee", "")

	n, err := db.DeleteComment(ctx, root.ID)
	if err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	left, _ := db.ListComments(ctx, "p", 0)
	if len(left) != 2 || left[0].ID != other.ID || left[1].ID != nested.ID {
		t.Errorf("left = %+v", left)
	}
	if _, err := db.DeleteComment(ctx, root.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestMessages_Lifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	first := &models.ContactMessage{Name: "A", Email: "a@x.io", Subject: "s1", Message: "m1"}
	second := &models.ContactMessage{Name: "B", Email: "b@x.io", Subject: "s2", Message: "m2"}
	_ = db.InsertMessage(ctx, first)
	_ = db.InsertMessage(ctx, second)

	list, err := db.ListMessages(ctx, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[0].Read {
		t.Fatalf("list = %+v", list)
	}

	if err := db.MarkMessageRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	list, _ = db.ListMessages(ctx, 1)
	if len(list) != 1 {
		t.Errorf("limit ignored: %d", len(list))
	}
	list, _ = db.ListMessages(ctx, 0)
	if !list[1].Read {
		t.Error("first message not marked read")
	}

	if err := db.DeleteMessage(ctx, second.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if n, _ := db.CountMessages(ctx); n != 1 {
		t.Errorf("count = %d", n)
	}
	if err := db.DeleteMessage(ctx, second.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if err := db.MarkMessageRead(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("mark missing err = %v", err)
	}
}

func TestSubscribers_Lifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := &models.Subscriber{Email: "a@x.io"}
	b := &models.Subscriber{Email: "b@x.io"}
	_ = db.InsertSubscriber(ctx, a)
	_ = db.InsertSubscriber(ctx, b)

	if err := db.InsertSubscriber(ctx, &models.Subscriber{Email: "a@x.io"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate insert err = %v", err)
	}

	if err := db.Unsubscribe(ctx, a.ID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := db.UnsubscribeEmail(ctx, "nobody@x.io"); err != nil {
		t.Errorf("unknown email should be ignored: %v", err)
	}
	active, _ := db.ListSubscribers(ctx)
	if len(active) != 1 || active[0].Email != "b@x.io" {
		t.Errorf("active = %+v", active)
	}
	if n, _ := db.CountSubscribers(ctx); n != 1 {
		t.Errorf("count = %d", n)
	}

	found, err := db.SubscriberByEmail(ctx, "a@x.io")
	if err != nil || !found.Unsubscribed {
		t.Fatalf("found = %+v, err = %v", found, err)
	}
	re, err := db.ReactivateSubscriber(ctx, a.ID)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if re.Unsubscribed || !re.SubscribedAt.After(a.SubscribedAt) || re.ID != a.ID {
		t.Errorf("reactivated = %+v", re)
	}

	if err := db.UnsubscribeEmail(ctx, "b@x.io"); err != nil {
		t.Fatalf("UnsubscribeEmail: %v", err)
	}
	active, _ = db.ListSubscribers(ctx)
	if len(active) != 1 || active[0].ID != a.ID {
		t.Errorf("active after email unsubscribe = %+v", active)
	}
	if err := db.Unsubscribe(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing unsubscribe err = %v", err)
	}
	if _, err := db.SubscriberByEmail(ctx, "none@x.io"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing email err = %v", err)
	}
}

func TestPing(t *testing.T) {
	if err := testDB(t).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
