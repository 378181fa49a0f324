package invoices

import (
	"encoding/json"
	"errors"

	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

// CurrencyStars is the only currency Telegram accepts for Stars invoices.
const CurrencyStars = "XTR"

var ErrMalformedPayload = errors.New("malformed invoice payload")

// CorrelationPayload travels inside the invoice as its payload and comes
// back verbatim on pre-checkout and successful-payment updates. It is the
// only link between a charge and the product it pays for, so its field
// names are a wire contract.
type CorrelationPayload struct {
	Type      enums.ProductType `json:"type"`
	TierID    string            `json:"tierId,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
	UserID    int64             `json:"userId"`
	Duration  int               `json:"duration"`
	Test      bool              `json:"test,omitempty"`
}

// ProductID returns the tier or channel identifier depending on the
// payload type.
func (p CorrelationPayload) ProductID() string {
	if p.Type == enums.ProductTypeChannel {
		return p.ChannelID
	}
	return p.TierID
}

func (p CorrelationPayload) Encode() (string, error) {
	if _, ok := enums.ParseProductType(string(p.Type)); !ok {
		return "", ErrMalformedPayload
	}
	if p.UserID <= 0 || p.ProductID() == "" || p.Duration <= 0 {
		return "", ErrMalformedPayload
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", ErrMalformedPayload
	}
	return string(raw), nil
}

func DecodePayload(raw string) (CorrelationPayload, error) {
	var payload CorrelationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return CorrelationPayload{}, ErrMalformedPayload
	}
	if _, ok := enums.ParseProductType(string(payload.Type)); !ok {
		return CorrelationPayload{}, ErrMalformedPayload
	}
	if payload.UserID <= 0 || payload.ProductID() == "" || payload.Duration <= 0 {
		return CorrelationPayload{}, ErrMalformedPayload
	}
	return payload, nil
}
