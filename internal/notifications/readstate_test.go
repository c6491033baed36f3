package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forumbase/notifyd/internal/models"
)

func deliverNotification(t *testing.T, te *testEngine, n *models.Notification, userID uint) *models.Notification {
	t.Helper()
	created, err := te.engine.Create(context.Background(), n)
	if err != nil || created == nil {
		t.Fatalf("Create(%s) failed: %v, %v", n.ID, created, err)
	}
	if err := te.indexes.DeliverToInboxes(context.Background(), []uint{userID}, created.ID, created.Datetime); err != nil {
		t.Fatal(err)
	}
	return created
}

func TestMarkReadRoundTrip(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	userID := uint(5)

	created := deliverNotification(t, te, &models.Notification{ID: "n1", BodyShort: "x"}, userID)

	if err := te.engine.MarkRead(ctx, "n1", userID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if _, ok := te.indexes.unreadScore(userID, "n1"); ok {
		t.Error("id still in the unread index after MarkRead")
	}
	score, ok := te.indexes.readScore(userID, "n1")
	if !ok {
		t.Fatal("id missing from the read index after MarkRead")
	}
	if score != created.Datetime {
		t.Errorf("read score = %d, want the record datetime %d", score, created.Datetime)
	}

	if err := te.engine.MarkUnread(ctx, "n1", userID); err != nil {
		t.Fatalf("MarkUnread: %v", err)
	}
	if _, ok := te.indexes.readScore(userID, "n1"); ok {
		t.Error("id still in the read index after MarkUnread")
	}
	score, ok = te.indexes.unreadScore(userID, "n1")
	if !ok {
		t.Fatal("id missing from the unread index after MarkUnread")
	}
	if score != created.Datetime {
		t.Errorf("unread score = %d, want the record datetime %d", score, created.Datetime)
	}
}

func TestMarkReadExpandsMergedGroup(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	userID := uint(5)

	deliverNotification(t, te, &models.Notification{ID: "up1", BodyShort: "a", MergeID: "upvote|12"}, userID)
	te.advance(time.Minute)
	deliverNotification(t, te, &models.Notification{ID: "up2", BodyShort: "b", MergeID: "upvote|12"}, userID)
	te.advance(time.Minute)
	deliverNotification(t, te, &models.Notification{ID: "other", BodyShort: "c", MergeID: "upvote|99"}, userID)

	if err := te.engine.MarkRead(ctx, "up1", userID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	for _, id := range []string{"up1", "up2"} {
		if _, ok := te.indexes.readScore(userID, id); !ok {
			t.Errorf("%s should be read: the merged group is read as a whole", id)
		}
	}
	if _, ok := te.indexes.unreadScore(userID, "other"); !ok {
		t.Error("a different differentiator must not be swept along")
	}
}

func TestMarkReadNoOps(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()

	if err := te.engine.MarkReadMultiple(ctx, []string{"n1"}, 0); err != nil {
		t.Errorf("missing recipient should be a no-op, got %v", err)
	}
	if err := te.engine.MarkReadMultiple(ctx, nil, 5); err != nil {
		t.Errorf("empty id list should be a no-op, got %v", err)
	}
}

func TestMarkReadStaleIndexEntryFallsBackToNow(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	userID := uint(5)

	// index entry whose record was already pruned
	_ = te.indexes.DeliverToInboxes(ctx, []uint{userID}, "stale", 1000)

	if err := te.engine.MarkRead(ctx, "stale", userID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	score, ok := te.indexes.readScore(userID, "stale")
	if !ok {
		t.Fatal("stale id missing from the read index")
	}
	if want := te.clock.UnixMilli(); score != want {
		t.Errorf("read score = %d, want the current time %d", score, want)
	}
}

func TestMarkUnreadErrors(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()

	if err := te.engine.MarkUnread(ctx, "n1", 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	if err := te.engine.MarkUnread(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	userID := uint(5)

	for _, id := range []string{"a", "b", "c"} {
		deliverNotification(t, te, &models.Notification{ID: id, BodyShort: id}, userID)
		te.advance(time.Second)
	}

	if err := te.engine.MarkAllRead(ctx, userID); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	count, _ := te.indexes.UnreadCount(ctx, userID)
	if count != 0 {
		t.Errorf("unread count = %d after MarkAllRead, want 0", count)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, ok := te.indexes.readScore(userID, id); !ok {
			t.Errorf("%s missing from the read index", id)
		}
	}

	// zero recipient is a no-op, not an error
	if err := te.engine.MarkAllRead(ctx, 0); err != nil {
		t.Errorf("MarkAllRead(0) = %v, want nil", err)
	}
}
