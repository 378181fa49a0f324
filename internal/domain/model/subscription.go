package model

import (
	"time"

	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

type TermSubscription struct {
	UserID        int64               `json:"user_id"`
	Active        bool                `json:"active"`
	Tier          enums.Tier          `json:"tier"`
	StartDate     *time.Time          `json:"start_date"`
	EndDate       *time.Time          `json:"end_date"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

type ChannelSubscription struct {
	UserID    int64      `json:"user_id"`
	ChannelID string     `json:"channel_id"`
	Active    bool       `json:"active"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// PaymentEntry is an append-only payment history record. TransactionID is
// the external charge id and is unique per user, which is what makes
// confirmed-payment delivery idempotent.
type PaymentEntry struct {
	UserID        int64               `json:"user_id"`
	ProductType   enums.ProductType   `json:"product_type"`
	ProductID     string              `json:"product_id"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	Method        enums.PaymentMethod `json:"method"`
	TransactionID string              `json:"transaction_id"`
	Timestamp     time.Time           `json:"timestamp"`
}
