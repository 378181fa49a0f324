package dto

type TermInvoiceRequest struct {
	TierID string `json:"tier_id"`
}

type ChannelInvoiceRequest struct {
	ChannelID string `json:"channel_id"`
}

type InvoiceLinkResponse struct {
	InvoiceLink string `json:"invoice_link"`
}
