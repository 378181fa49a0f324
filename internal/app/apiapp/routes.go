package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/RetardedCafeLab/term-bot/internal/services/auth"
	entitlementsvc "github.com/RetardedCafeLab/term-bot/internal/services/entitlements"
	invoicesvc "github.com/RetardedCafeLab/term-bot/internal/services/invoices"
	"github.com/RetardedCafeLab/term-bot/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	InvoiceService     *invoicesvc.Service
	EntitlementService *entitlementsvc.Service
	Logger             *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	invoiceHandler := handlers.NewInvoiceHandler(deps.InvoiceService)
	subscriptionHandler := handlers.NewSubscriptionHandler(deps.EntitlementService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/telegram", authHandler.Telegram)
		r.With(authMW).Post("/invoices/term", invoiceHandler.Term)
		r.With(authMW).Post("/invoices/channel", invoiceHandler.Channel)
		r.With(authMW).Get("/subscription/status", subscriptionHandler.Status)
	})
}
