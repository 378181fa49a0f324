package model

import (
	"time"

	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

// PendingTermRequest is the single outstanding manual-rail request for a
// term subscription. A user has at most one regardless of tier.
type PendingTermRequest struct {
	UserID      int64               `json:"user_id"`
	Tier        enums.Tier          `json:"tier"`
	RequestDate time.Time           `json:"request_date"`
	Status      enums.RequestStatus `json:"status"`
}

type PendingChannelRequest struct {
	UserID      int64               `json:"user_id"`
	ChannelID   string              `json:"channel_id"`
	RequestDate time.Time           `json:"request_date"`
	Status      enums.RequestStatus `json:"status"`
}
