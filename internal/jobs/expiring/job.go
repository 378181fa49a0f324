package expiring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	"github.com/RetardedCafeLab/term-bot/internal/domain/rules"
)

type SubscriptionSource interface {
	ListTermExpiringBetween(ctx context.Context, from, to time.Time) ([]model.TermSubscription, error)
	ListChannelExpiringBetween(ctx context.Context, from, to time.Time) ([]model.ChannelSubscription, error)
}

// ReminderMarks remembers which reminders already went out. MarkSent
// reports whether this call won the right to send.
type ReminderMarks interface {
	MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Notifier interface {
	TermExpiring(ctx context.Context, sub model.TermSubscription, daysLeft int) error
	ChannelExpiring(ctx context.Context, sub model.ChannelSubscription, daysLeft int) error
}

// Job sweeps subscriptions whose end date lands on one of the configured
// lead days and sends a reminder for each. Dedupe marks live in redis;
// when redis is down the sweep still runs and delivery degrades to
// at-least-once.
type Job struct {
	subs        SubscriptionSource
	marks       ReminderMarks
	notifier    Notifier
	leadDays    []int
	loc         *time.Location
	reminderTTL time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewJob(
	subs SubscriptionSource,
	marks ReminderMarks,
	notifier Notifier,
	leadDays []int,
	loc *time.Location,
	reminderTTL time.Duration,
	logger *zap.Logger,
) *Job {
	if len(leadDays) == 0 {
		leadDays = []int{1, 3}
	}
	if loc == nil {
		loc = time.UTC
	}
	if reminderTTL <= 0 {
		reminderTTL = 48 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		subs:        subs,
		marks:       marks,
		notifier:    notifier,
		leadDays:    leadDays,
		loc:         loc,
		reminderTTL: reminderTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Run performs one sweep. Errors on individual subscriptions are logged
// and skipped so one bad row never starves the rest of the batch.
func (j *Job) Run(ctx context.Context) error {
	now := j.now()
	var sent int

	for _, days := range j.leadDays {
		from, to := rules.DayWindow(now, days, j.loc)

		terms, err := j.subs.ListTermExpiringBetween(ctx, from, to)
		if err != nil {
			return fmt.Errorf("list term subscriptions expiring in %d days: %w", days, err)
		}
		for _, sub := range terms {
			if j.remindTerm(ctx, sub, days) {
				sent++
			}
		}

		channels, err := j.subs.ListChannelExpiringBetween(ctx, from, to)
		if err != nil {
			return fmt.Errorf("list channel subscriptions expiring in %d days: %w", days, err)
		}
		for _, sub := range channels {
			if j.remindChannel(ctx, sub, days) {
				sent++
			}
		}
	}

	if sent > 0 {
		j.logger.Info("expiry reminders sent", zap.Int("count", sent))
	}
	return nil
}

func (j *Job) remindTerm(ctx context.Context, sub model.TermSubscription, days int) bool {
	if sub.EndDate == nil {
		return false
	}
	key := fmt.Sprintf("term:%d:%d:%s", sub.UserID, days, sub.EndDate.In(j.loc).Format("2006-01-02"))
	if !j.claim(ctx, key) {
		return false
	}
	if err := j.notifier.TermExpiring(ctx, sub, days); err != nil {
		j.logger.Warn("term expiry reminder failed",
			zap.Int64("user_id", sub.UserID), zap.Error(err))
		return false
	}
	return true
}

func (j *Job) remindChannel(ctx context.Context, sub model.ChannelSubscription, days int) bool {
	if sub.EndDate == nil {
		return false
	}
	key := fmt.Sprintf("channel:%d:%s:%d:%s", sub.UserID, sub.ChannelID, days, sub.EndDate.In(j.loc).Format("2006-01-02"))
	if !j.claim(ctx, key) {
		return false
	}
	if err := j.notifier.ChannelExpiring(ctx, sub, days); err != nil {
		j.logger.Warn("channel expiry reminder failed",
			zap.Int64("user_id", sub.UserID), zap.String("channel_id", sub.ChannelID), zap.Error(err))
		return false
	}
	return true
}

func (j *Job) claim(ctx context.Context, key string) bool {
	if j.marks == nil {
		return true
	}
	created, err := j.marks.MarkSent(ctx, key, j.reminderTTL)
	if err != nil {
		j.logger.Warn("reminder dedupe unavailable, sending anyway",
			zap.String("key", key), zap.Error(err))
		return true
	}
	return created
}
