package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestReminderRepo(t *testing.T) (*ReminderRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewReminderRepo(client), mr
}

func TestMarkSentCreatesOnce(t *testing.T) {
	repo, _ := newTestReminderRepo(t)
	ctx := context.Background()

	created, err := repo.MarkSent(ctx, "term:42:monthly:3:2024-01-28", 48*time.Hour)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !created {
		t.Fatal("first mark must report created")
	}

	created, err = repo.MarkSent(ctx, "term:42:monthly:3:2024-01-28", 48*time.Hour)
	if err != nil {
		t.Fatalf("mark sent again: %v", err)
	}
	if created {
		t.Fatal("second mark for the same key must report already sent")
	}
}

func TestMarkSentExpires(t *testing.T) {
	repo, mr := newTestReminderRepo(t)
	ctx := context.Background()

	if _, err := repo.MarkSent(ctx, "chan:42:lab:1:2024-01-30", time.Hour); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	created, err := repo.MarkSent(ctx, "chan:42:lab:1:2024-01-30", time.Hour)
	if err != nil {
		t.Fatalf("mark sent after expiry: %v", err)
	}
	if !created {
		t.Fatal("expired mark must allow a new reminder")
	}
}

func TestMarkSentValidatesInput(t *testing.T) {
	repo, _ := newTestReminderRepo(t)

	if _, err := repo.MarkSent(context.Background(), "", time.Hour); err == nil {
		t.Fatal("empty key must be rejected")
	}
	if _, err := repo.MarkSent(context.Background(), "key", 0); err == nil {
		t.Fatal("zero ttl must be rejected")
	}
}
