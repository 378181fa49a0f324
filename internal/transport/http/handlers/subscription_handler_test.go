package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	entitlementsvc "github.com/RetardedCafeLab/term-bot/internal/services/entitlements"
)

type subscriptionReaderStub struct {
	term     model.TermSubscription
	channels []model.ChannelSubscription
}

func (s subscriptionReaderStub) TermByUser(context.Context, int64) (model.TermSubscription, error) {
	return s.term, nil
}

func (s subscriptionReaderStub) ChannelsByUser(context.Context, int64) ([]model.ChannelSubscription, error) {
	return s.channels, nil
}

func (s subscriptionReaderStub) PaymentHistory(context.Context, int64) ([]model.PaymentEntry, error) {
	return nil, nil
}

func TestSubscriptionStatus(t *testing.T) {
	end := time.Now().UTC().Add(10 * 24 * time.Hour)
	cat := catalog.New(nil, []config.ChannelConfig{
		{ID: "disruptors_journal", Name: "Disruptors Journal", InviteLink: "https://t.me/+abc", StarsPrice: 1024},
	})
	svc := entitlementsvc.NewService(subscriptionReaderStub{
		term: model.TermSubscription{UserID: 42, Active: true, Tier: enums.TierMonthly, EndDate: &end},
		channels: []model.ChannelSubscription{
			{UserID: 42, ChannelID: "disruptors_journal", Active: true, EndDate: &end},
		},
	}, cat)
	h := NewSubscriptionHandler(svc)

	rr := httptest.NewRecorder()
	h.Status(rr, authedRequest(http.MethodGet, "/api/v1/subscription/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		Term struct {
			Active   bool   `json:"active"`
			Tier     string `json:"tier"`
			DaysLeft int    `json:"days_left"`
		} `json:"term"`
		Channels []struct {
			ChannelID  string `json:"channel_id"`
			InviteLink string `json:"invite_link"`
		} `json:"channels"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Term.Active || payload.Term.Tier != "monthly" {
		t.Fatalf("unexpected term status: %+v", payload.Term)
	}
	if len(payload.Channels) != 1 || payload.Channels[0].InviteLink != "https://t.me/+abc" {
		t.Fatalf("unexpected channels: %+v", payload.Channels)
	}
}

func TestSubscriptionStatusRequiresAuth(t *testing.T) {
	svc := entitlementsvc.NewService(subscriptionReaderStub{}, catalog.New(nil, nil))
	h := NewSubscriptionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription/status", nil)
	rr := httptest.NewRecorder()
	h.Status(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}
