package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	"github.com/RetardedCafeLab/term-bot/internal/domain/rules"
)

type SubscriptionReader interface {
	TermByUser(ctx context.Context, userID int64) (model.TermSubscription, error)
	ChannelsByUser(ctx context.Context, userID int64) ([]model.ChannelSubscription, error)
	PaymentHistory(ctx context.Context, userID int64) ([]model.PaymentEntry, error)
}

// TermStatus is the effective term entitlement at the moment of the
// query. Active is derived from the end date, never taken from the
// stored flag alone, so a lapsed row reads as inactive even before the
// expiry sweep touches it.
type TermStatus struct {
	Active   bool
	Tier     enums.Tier
	EndDate  *time.Time
	DaysLeft int
}

type ChannelStatus struct {
	ChannelID  string
	Name       string
	InviteLink string
	Active     bool
	EndDate    *time.Time
	DaysLeft   int
}

type Status struct {
	Term     TermStatus
	Channels []ChannelStatus
}

type Service struct {
	subs    SubscriptionReader
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewService(subs SubscriptionReader, cat *catalog.Catalog) *Service {
	return &Service{
		subs:    subs,
		catalog: cat,
		now:     time.Now,
	}
}

// Status reports the user's effective entitlements across the term
// subscription and every purchased channel.
func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	term, err := s.Term(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	channels, err := s.Channels(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	return Status{Term: term, Channels: channels}, nil
}

func (s *Service) Term(ctx context.Context, userID int64) (TermStatus, error) {
	sub, err := s.subs.TermByUser(ctx, userID)
	if err != nil {
		return TermStatus{}, fmt.Errorf("load term subscription for user %d: %w", userID, err)
	}

	now := s.now().UTC()
	active := rules.IsActive(now, sub.Active, sub.EndDate)
	tier := sub.Tier
	if !active {
		tier = enums.TierNone
	}

	status := TermStatus{
		Active:  active,
		Tier:    tier,
		EndDate: sub.EndDate,
	}
	if active {
		status.DaysLeft = rules.DaysLeft(now, sub.EndDate)
	}
	return status, nil
}

func (s *Service) Channels(ctx context.Context, userID int64) ([]ChannelStatus, error) {
	subs, err := s.subs.ChannelsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load channel subscriptions for user %d: %w", userID, err)
	}

	now := s.now().UTC()
	statuses := make([]ChannelStatus, 0, len(subs))
	for _, sub := range subs {
		status := ChannelStatus{
			ChannelID: sub.ChannelID,
			Active:    rules.IsActive(now, sub.Active, sub.EndDate),
			EndDate:   sub.EndDate,
		}
		if status.Active {
			status.DaysLeft = rules.DaysLeft(now, sub.EndDate)
		}
		if product, err := s.catalog.Channel(sub.ChannelID); err == nil {
			status.Name = product.Name
			if status.Active {
				status.InviteLink = product.InviteLink
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *Service) PaymentHistory(ctx context.Context, userID int64) ([]model.PaymentEntry, error) {
	entries, err := s.subs.PaymentHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load payment history for user %d: %w", userID, err)
	}
	return entries, nil
}
