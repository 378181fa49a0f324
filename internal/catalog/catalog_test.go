package catalog

import (
	"errors"
	"testing"

	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

func newTestCatalog() *Catalog {
	return New(
		[]config.TierConfig{
			{ID: "monthly", Name: "Monthly", StarsPrice: 1000, DurationDays: 30},
			{ID: "annual", Name: "Annual", StarsPrice: 9600, DurationDays: 365},
		},
		[]config.ChannelConfig{
			{ID: "lab", Name: "Lab", StarsPrice: 1337, Username: "@lab"},
		},
	)
}

func TestProductLookupByType(t *testing.T) {
	c := newTestCatalog()

	tier, err := c.Product(enums.ProductTypeTerm, "monthly")
	if err != nil {
		t.Fatalf("lookup tier: %v", err)
	}
	if tier.DurationDays != 30 || tier.StarsPrice != 1000 {
		t.Fatalf("unexpected tier: %+v", tier)
	}

	channel, err := c.Product(enums.ProductTypeChannel, "lab")
	if err != nil {
		t.Fatalf("lookup channel: %v", err)
	}
	if channel.DurationDays != 30 {
		t.Fatalf("channel duration must default to 30 days, got %d", channel.DurationDays)
	}
}

func TestUnknownProduct(t *testing.T) {
	c := newTestCatalog()

	if _, err := c.Tier("weekly"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := c.Product(enums.ProductTypeChannel, "monthly"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("tier id must not resolve as channel, got %v", err)
	}
	if _, err := c.Product(enums.ProductType("bogus"), "monthly"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("unknown product type must not resolve, got %v", err)
	}
}
