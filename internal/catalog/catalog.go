package catalog

import (
	"errors"

	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

var ErrProductNotFound = errors.New("product not found")

// Product is an immutable purchasable entry, either a term tier or a
// private channel. Price is in Stars minor units.
type Product struct {
	Type         enums.ProductType
	ID           string
	Name         string
	Description  string
	StarsPrice   int64
	DurationDays int
	Username     string
	InviteLink   string
}

// Catalog is a read-only lookup over the configured tiers and channels.
// It is built once at startup and freely shared between goroutines.
type Catalog struct {
	tiers    map[string]Product
	channels map[string]Product
	tierList []Product
	chanList []Product
}

func New(tiers []config.TierConfig, channels []config.ChannelConfig) *Catalog {
	c := &Catalog{
		tiers:    make(map[string]Product, len(tiers)),
		channels: make(map[string]Product, len(channels)),
	}

	for _, t := range tiers {
		p := Product{
			Type:         enums.ProductTypeTerm,
			ID:           t.ID,
			Name:         t.Name,
			Description:  t.Description,
			StarsPrice:   t.StarsPrice,
			DurationDays: t.DurationDays,
		}
		c.tiers[t.ID] = p
		c.tierList = append(c.tierList, p)
	}

	for _, ch := range channels {
		duration := ch.DurationDays
		if duration <= 0 {
			duration = 30
		}
		p := Product{
			Type:         enums.ProductTypeChannel,
			ID:           ch.ID,
			Name:         ch.Name,
			Description:  ch.Description,
			StarsPrice:   ch.StarsPrice,
			DurationDays: duration,
			Username:     ch.Username,
			InviteLink:   ch.InviteLink,
		}
		c.channels[ch.ID] = p
		c.chanList = append(c.chanList, p)
	}

	return c
}

func (c *Catalog) Tier(id string) (Product, error) {
	p, ok := c.tiers[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (c *Catalog) Channel(id string) (Product, error) {
	p, ok := c.channels[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (c *Catalog) Product(productType enums.ProductType, id string) (Product, error) {
	switch productType {
	case enums.ProductTypeTerm:
		return c.Tier(id)
	case enums.ProductTypeChannel:
		return c.Channel(id)
	default:
		return Product{}, ErrProductNotFound
	}
}

func (c *Catalog) Tiers() []Product {
	return c.tierList
}

func (c *Catalog) Channels() []Product {
	return c.chanList
}
