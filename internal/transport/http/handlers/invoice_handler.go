package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	authsvc "github.com/RetardedCafeLab/term-bot/internal/services/auth"
	invoicesvc "github.com/RetardedCafeLab/term-bot/internal/services/invoices"
	"github.com/RetardedCafeLab/term-bot/internal/transport/http/dto"
	httperrors "github.com/RetardedCafeLab/term-bot/internal/transport/http/errors"
)

type InvoiceHandler struct {
	service *invoicesvc.Service
}

func NewInvoiceHandler(service *invoicesvc.Service) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

func (h *InvoiceHandler) Term(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "INVOICE_SERVICE_UNAVAILABLE", "invoice service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.TermInvoiceRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.TierID) == "" {
		writeBadRequest(w, "INVALID_REQUEST", "tier_id is required")
		return
	}

	link, err := h.service.IssueTermInvoice(r.Context(), identity.UserID, req.TierID)
	if err != nil {
		handleInvoiceError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InvoiceLinkResponse{InvoiceLink: link})
}

func (h *InvoiceHandler) Channel(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "INVOICE_SERVICE_UNAVAILABLE", "invoice service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.ChannelInvoiceRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ChannelID) == "" {
		writeBadRequest(w, "INVALID_REQUEST", "channel_id is required")
		return
	}

	link, err := h.service.IssueChannelInvoice(r.Context(), identity.UserID, req.ChannelID)
	if err != nil {
		handleInvoiceError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InvoiceLinkResponse{InvoiceLink: link})
}

func handleInvoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		writeNotFound(w, "PRODUCT_NOT_FOUND", "unknown product")
	case errors.Is(err, invoicesvc.ErrRailUnavailable):
		writeInternal(w, "RAIL_UNAVAILABLE", "payment rail is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
