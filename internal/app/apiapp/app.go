package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	tginfra "github.com/RetardedCafeLab/term-bot/internal/infra/telegram"
	pgrepo "github.com/RetardedCafeLab/term-bot/internal/repo/postgres"
	authsvc "github.com/RetardedCafeLab/term-bot/internal/services/auth"
	"github.com/RetardedCafeLab/term-bot/internal/services/authz"
	entitlementsvc "github.com/RetardedCafeLab/term-bot/internal/services/entitlements"
	invoicesvc "github.com/RetardedCafeLab/term-bot/internal/services/invoices"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	httpRouter http.Handler
}

// userRegistrar adapts the user repo to the auth service's first-contact
// registration hook.
type userRegistrar struct {
	users *pgrepo.UserRepo
}

func (u userRegistrar) Register(ctx context.Context, user authsvc.TelegramUser, isAdmin bool, now time.Time) error {
	_, err := u.users.UpsertFromTelegram(ctx, user.ID, user.Username, user.FirstName, user.LastName, isAdmin, now)
	return err
}

// invoiceLinks adapts the telegram bot to the invoice issuer.
type invoiceLinks struct {
	bot *tginfra.Bot
}

func (l invoiceLinks) CreateInvoiceLink(ctx context.Context, spec invoicesvc.InvoiceSpec) (string, error) {
	return l.bot.CreateInvoiceLink(ctx, tginfra.InvoiceParams{
		Title:       spec.Title,
		Description: spec.Description,
		Payload:     spec.Payload,
		Currency:    spec.Currency,
		Amount:      spec.Amount,
	})
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for api app: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	subRepo := pgrepo.NewSubscriptionRepo(pool)

	cat := catalog.New(cfg.Tiers, cfg.Channels)
	admins := authz.NewAdmins(cfg.Bot.AdminUserIDs)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, admins, cfg.Bot.Token)
	authService.AttachRegistrar(userRegistrar{users: userRepo})

	var links invoicesvc.LinkCreator
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err := tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			log.Warn("telegram init failed, invoice issuing disabled", zap.Error(err))
		} else {
			links = invoiceLinks{bot: bot}
		}
	} else {
		log.Warn("BOT_TOKEN is empty, invoice issuing disabled")
	}

	invoiceService := invoicesvc.NewService(cat, links, cfg.Payment.TestMode, log)
	entitlementService := entitlementsvc.NewService(subRepo, cat)

	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		InvoiceService:     invoiceService,
		EntitlementService: entitlementService,
		Logger:             log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
