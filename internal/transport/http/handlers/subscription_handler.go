package handlers

import (
	"net/http"

	authsvc "github.com/RetardedCafeLab/term-bot/internal/services/auth"
	entitlementsvc "github.com/RetardedCafeLab/term-bot/internal/services/entitlements"
	"github.com/RetardedCafeLab/term-bot/internal/transport/http/dto"
	httperrors "github.com/RetardedCafeLab/term-bot/internal/transport/http/errors"
)

type SubscriptionHandler struct {
	service *entitlementsvc.Service
}

func NewSubscriptionHandler(service *entitlementsvc.Service) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SUBSCRIPTION_SERVICE_UNAVAILABLE", "subscription service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	status, err := h.service.Status(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	channels := make([]dto.ChannelStatusResponse, 0, len(status.Channels))
	for _, ch := range status.Channels {
		channels = append(channels, dto.ChannelStatusResponse{
			ChannelID:  ch.ChannelID,
			Name:       ch.Name,
			Active:     ch.Active,
			EndDate:    ch.EndDate,
			DaysLeft:   ch.DaysLeft,
			InviteLink: ch.InviteLink,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.SubscriptionStatusResponse{
		Term: dto.TermStatusResponse{
			Active:   status.Term.Active,
			Tier:     string(status.Term.Tier),
			EndDate:  status.Term.EndDate,
			DaysLeft: status.Term.DaysLeft,
		},
		Channels: channels,
	})
}
