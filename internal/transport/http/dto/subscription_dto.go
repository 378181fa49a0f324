package dto

import "time"

type TermStatusResponse struct {
	Active   bool       `json:"active"`
	Tier     string     `json:"tier"`
	EndDate  *time.Time `json:"end_date"`
	DaysLeft int        `json:"days_left"`
}

type ChannelStatusResponse struct {
	ChannelID  string     `json:"channel_id"`
	Name       string     `json:"name"`
	Active     bool       `json:"active"`
	EndDate    *time.Time `json:"end_date"`
	DaysLeft   int        `json:"days_left"`
	InviteLink string     `json:"invite_link,omitempty"`
}

type SubscriptionStatusResponse struct {
	Term     TermStatusResponse      `json:"term"`
	Channels []ChannelStatusResponse `json:"channels"`
}
