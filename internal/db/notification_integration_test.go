package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// Migrations are addressed relative to the repo root.
var chdirOnce sync.Once

// Needs a live database. Run with:
//
//	HOJO_TEST_DATABASE_URL=postgres://... go test ./internal/db/
func testDB(t *testing.T) *SharedDB {
	t.Helper()
	dbURL := os.Getenv("HOJO_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("set HOJO_TEST_DATABASE_URL to run Postgres integration tests")
	}
	chdirOnce.Do(func() {
		if err := os.Chdir("./../.."); err != nil {
			t.Fatal(err)
		}
	})
	if err := MigrateDown(dbURL); err != nil {
		t.Fatal(err)
	}
	if err := MigrateUp(dbURL); err != nil {
		t.Fatal(err)
	}
	cfg := models.EnvConfig{DatabaseURL: dbURL}
	sdb, err := Connect(&cfg)
	if err != nil {
		t.Fatalf("Connect() = %v, want nil", err)
	}
	return &sdb
}

func mockNotif(id, userID string) *models.Notification {
	return &models.Notification{
		ID:             id,
		UserID:         userID,
		Type:           models.NotifTypeMessage,
		Title:          "New message from Bob",
		Text:           "hello there",
		Actor:          models.Actor{ID: "u2", Name: "Bob"},
		ConversationID: "c1",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestNotificationLifecycle(t *testing.T) {
	sdb := testDB(t)
	svc := NewNotificationService(sdb)
	ctx := context.Background()

	notif := mockNotif("n1", "u1")
	if err := svc.Send(ctx, notif); err != nil {
		t.Fatalf("Send(%v) = %v, want nil", notif.ID, err)
	}

	notifs, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List(u1) = %v, want notifications", err)
	}
	if len(notifs) != 1 || notifs[0].ID != "n1" {
		t.Fatalf("List(u1) = %+v, want n1", notifs)
	}
	if notifs[0].Actor.Name != "Bob" {
		t.Fatalf("Actor.Name = %q, want Bob", notifs[0].Actor.Name)
	}

	if err := svc.MarkRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("MarkRead(u1, n1) = %v, want nil", err)
	}
	notifs, _ = svc.List(ctx, "u1")
	if !notifs[0].Read {
		t.Fatalf("Read = false after MarkRead, want true")
	}

	if err := svc.MarkRead(ctx, "u1", "ghost"); err != ErrNotFound {
		t.Fatalf("MarkRead(u1, ghost) = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, "u1", "n1"); err != nil {
		t.Fatalf("Delete(u1, n1) = %v, want nil", err)
	}
	if err := svc.Delete(ctx, "u1", "n1"); err != ErrNotFound {
		t.Fatalf("second Delete(u1, n1) = %v, want ErrNotFound", err)
	}
}

func TestConversationsAggregate(t *testing.T) {
	sdb := testDB(t)
	svc := NewNotificationService(sdb)
	ctx := context.Background()

	first := mockNotif("n1", "u1")
	second := mockNotif("n2", "u1")
	second.CreatedAt = second.CreatedAt.Add(time.Minute)
	other := mockNotif("n3", "u1")
	other.ConversationID = "c2"
	for _, n := range []*models.Notification{first, second, other} {
		if err := svc.Send(ctx, n); err != nil {
			t.Fatalf("Send(%v) = %v, want nil", n.ID, err)
		}
	}

	convs, err := svc.Conversations(ctx, "u1")
	if err != nil {
		t.Fatalf("Conversations(u1) = %v, want summaries", err)
	}
	if len(convs) != 2 {
		t.Fatalf("len(Conversations(u1)) = %d, want 2", len(convs))
	}
	if convs[0].ID != "c1" || convs[0].UnreadCount != 2 {
		t.Fatalf("Conversations[0] = %+v, want c1 with 2 unread", convs[0])
	}
}
