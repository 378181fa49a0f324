package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const reminderPrefix = "reminders:"

// ReminderRepo stores one-shot markers for expiry reminders so a re-run
// of the daily scan does not message the same subscription twice. Keys
// expire on their own; losing redis degrades reminders to at-least-once.
type ReminderRepo struct {
	client *goredis.Client
}

func NewReminderRepo(client *goredis.Client) *ReminderRepo {
	return &ReminderRepo{client: client}
}

// MarkSent records the (user, product, lead time, day) marker. It returns
// true when this call created the marker and false when it already
// existed, i.e. the reminder was sent earlier.
func (r *ReminderRepo) MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid reminder mark payload")
	}

	created, err := r.client.SetNX(ctx, reminderPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set reminder mark: %w", err)
	}

	return created, nil
}
