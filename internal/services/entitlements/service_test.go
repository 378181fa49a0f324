package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
)

type readerStub struct {
	term     model.TermSubscription
	channels []model.ChannelSubscription
	history  []model.PaymentEntry
}

func (s *readerStub) TermByUser(context.Context, int64) (model.TermSubscription, error) {
	return s.term, nil
}

func (s *readerStub) ChannelsByUser(context.Context, int64) ([]model.ChannelSubscription, error) {
	return s.channels, nil
}

func (s *readerStub) PaymentHistory(context.Context, int64) ([]model.PaymentEntry, error) {
	return s.history, nil
}

func newService(reader *readerStub, now time.Time) *Service {
	cat := catalog.New(nil, []config.ChannelConfig{
		{ID: "disruptors_journal", Name: "Disruptors Journal", InviteLink: "https://t.me/+abc", StarsPrice: 1024},
	})
	svc := NewService(reader, cat)
	svc.now = func() time.Time { return now }
	return svc
}

func TestTermStatusActive(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	svc := newService(&readerStub{term: model.TermSubscription{
		UserID: 42, Active: true, Tier: enums.TierMonthly, EndDate: &end,
	}}, now)

	status, err := svc.Term(context.Background(), 42)
	if err != nil {
		t.Fatalf("term: %v", err)
	}
	if !status.Active || status.Tier != enums.TierMonthly {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.DaysLeft != 16 {
		t.Fatalf("unexpected days left: %d", status.DaysLeft)
	}
}

func TestTermStatusLapsedRowReadsInactive(t *testing.T) {
	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	svc := newService(&readerStub{term: model.TermSubscription{
		UserID: 42, Active: true, Tier: enums.TierMonthly, EndDate: &end,
	}}, now)

	status, err := svc.Term(context.Background(), 42)
	if err != nil {
		t.Fatalf("term: %v", err)
	}
	if status.Active {
		t.Fatal("subscription past its end date must read inactive")
	}
	if status.Tier != enums.TierNone {
		t.Fatalf("lapsed subscription must report no tier, got %s", status.Tier)
	}
	if status.DaysLeft != 0 {
		t.Fatalf("unexpected days left: %d", status.DaysLeft)
	}
}

func TestChannelStatusCarriesInviteLinkOnlyWhenActive(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	activeEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	lapsedEnd := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(&readerStub{channels: []model.ChannelSubscription{
		{UserID: 42, ChannelID: "disruptors_journal", Active: true, EndDate: &activeEnd},
		{UserID: 42, ChannelID: "retarded_cafe_lab", Active: true, EndDate: &lapsedEnd},
	}}, now)

	statuses, err := svc.Channels(context.Background(), 42)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(statuses))
	}

	first := statuses[0]
	if !first.Active || first.InviteLink != "https://t.me/+abc" || first.Name != "Disruptors Journal" {
		t.Fatalf("unexpected active channel: %+v", first)
	}

	second := statuses[1]
	if second.Active || second.InviteLink != "" {
		t.Fatalf("lapsed channel must not expose an invite link: %+v", second)
	}
}

func TestStatusCombinesTermAndChannels(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	svc := newService(&readerStub{
		term:     model.TermSubscription{UserID: 42, Active: true, Tier: enums.TierAnnual, EndDate: &end},
		channels: []model.ChannelSubscription{{UserID: 42, ChannelID: "disruptors_journal", Active: true, EndDate: &end}},
	}, now)

	status, err := svc.Status(context.Background(), 42)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Term.Active || len(status.Channels) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}
