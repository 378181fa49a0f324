package invoices

import (
	"context"
	"errors"
	"testing"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

type linkStub struct {
	lastSpec InvoiceSpec
	link     string
	err      error
}

func (s *linkStub) CreateInvoiceLink(_ context.Context, spec InvoiceSpec) (string, error) {
	s.lastSpec = spec
	return s.link, s.err
}

func testCatalog() *catalog.Catalog {
	return catalog.New(
		[]config.TierConfig{
			{ID: "monthly", Name: "Monthly", Description: "30 days", StarsPrice: 1000, DurationDays: 30},
		},
		[]config.ChannelConfig{
			{ID: "disruptors_journal", Name: "Disruptors Journal", StarsPrice: 1024, DurationDays: 30},
		},
	)
}

func TestIssueTermInvoice(t *testing.T) {
	links := &linkStub{link: "https://t.me/invoice/abc"}
	svc := NewService(testCatalog(), links, false, nil)

	link, err := svc.IssueTermInvoice(context.Background(), 42, "monthly")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if link != "https://t.me/invoice/abc" {
		t.Fatalf("unexpected link: %s", link)
	}
	if links.lastSpec.Currency != CurrencyStars {
		t.Fatalf("unexpected currency: %s", links.lastSpec.Currency)
	}
	if links.lastSpec.Amount != 1000 {
		t.Fatalf("unexpected amount: %d", links.lastSpec.Amount)
	}

	payload, err := DecodePayload(links.lastSpec.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Type != enums.ProductTypeTerm || payload.TierID != "monthly" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.UserID != 42 || payload.Duration != 30 || payload.Test {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestIssueChannelInvoiceTestMode(t *testing.T) {
	links := &linkStub{link: "https://t.me/invoice/ch"}
	svc := NewService(testCatalog(), links, true, nil)

	if _, err := svc.IssueChannelInvoice(context.Background(), 42, "disruptors_journal"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if links.lastSpec.Amount != 1 {
		t.Fatalf("test mode must charge a nominal amount, got %d", links.lastSpec.Amount)
	}

	payload, err := DecodePayload(links.lastSpec.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Test {
		t.Fatal("test flag not set on payload")
	}
	if payload.Duration != 30 {
		t.Fatalf("test mode must keep the real duration, got %d", payload.Duration)
	}
	if payload.ChannelID != "disruptors_journal" || payload.ProductID() != "disruptors_journal" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestIssueUnknownProduct(t *testing.T) {
	svc := NewService(testCatalog(), &linkStub{}, false, nil)

	if _, err := svc.IssueTermInvoice(context.Background(), 42, "lifetime"); !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.IssueChannelInvoice(context.Background(), 42, "nope"); !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestIssueWithoutRail(t *testing.T) {
	svc := NewService(testCatalog(), nil, false, nil)

	if _, err := svc.IssueTermInvoice(context.Background(), 42, "monthly"); !errors.Is(err, ErrRailUnavailable) {
		t.Fatalf("expected ErrRailUnavailable, got %v", err)
	}
}

func TestIssueRejectsNonPositivePrice(t *testing.T) {
	cat := catalog.New(
		[]config.TierConfig{
			{ID: "free", Name: "Free", StarsPrice: 0, DurationDays: 30},
		},
		nil,
	)
	svc := NewService(cat, &linkStub{}, false, nil)

	if _, err := svc.IssueTermInvoice(context.Background(), 42, "free"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not-json",
		`{"type":"term_subscription","userId":0,"tierId":"monthly","duration":30}`,
		`{"type":"term_subscription","userId":42,"duration":30}`,
		`{"type":"mystery","userId":42,"tierId":"monthly","duration":30}`,
		`{"type":"channel_subscription","userId":42,"channelId":"x","duration":0}`,
	}
	for _, raw := range cases {
		if _, err := DecodePayload(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("payload %q: expected ErrMalformedPayload, got %v", raw, err)
		}
	}
}
