package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	tginfra "github.com/RetardedCafeLab/term-bot/internal/infra/telegram"
	"github.com/RetardedCafeLab/term-bot/internal/jobs/expiring"
	pgrepo "github.com/RetardedCafeLab/term-bot/internal/repo/postgres"
	redisrepo "github.com/RetardedCafeLab/term-bot/internal/repo/redis"
	"github.com/RetardedCafeLab/term-bot/internal/services/authz"
	entitlementsvc "github.com/RetardedCafeLab/term-bot/internal/services/entitlements"
	invoicesvc "github.com/RetardedCafeLab/term-bot/internal/services/invoices"
	paymentsvc "github.com/RetardedCafeLab/term-bot/internal/services/payments"
)

const (
	welcomeText          = "Добро пожаловать! Выберите подписку или откройте Mini App."
	invoiceCreatedText   = "Счёт создан, оплатите по кнопке ниже."
	invoiceFailedText    = "Не удалось создать счёт, попробуйте позже."
	manualCreatedText    = "Заявка принята. Оператор свяжется с вами для оплаты."
	manualDuplicateText  = "Заявка уже существует, оператор скоро свяжется с вами."
	manualCancelledText  = "Заявка отменена."
	paymentFailedText    = "Оплата получена, но при обработке возникла ошибка. Напишите в поддержку."
	wrongCurrencyReason  = "Оплата в этой валюте не поддерживается."
	unknownActionText    = "Неизвестное действие."
	noSubscriptionsText  = "Активных подписок нет."
	confirmUsageTerm     = "Использование: /confirm_payment USER_ID TIER_ID"
	confirmUsageChannel  = "Использование: /confirm_channel USER_ID CHANNEL_ID"
	confirmNotAdminText  = "Недостаточно прав."
	confirmNoRequestText = "У пользователя нет активной заявки."
	confirmNoUserText    = "Пользователь не найден."
	confirmNoProductText = "Неизвестный продукт."
	confirmFailedText    = "Не удалось подтвердить оплату."
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	bot      *tginfra.Bot
	catalog  *catalog.Catalog
	admins   *authz.Admins

	userRepo *pgrepo.UserRepo
	subRepo  *pgrepo.SubscriptionRepo

	invoices     *invoicesvc.Service
	payments     *paymentsvc.Service
	entitlements *entitlementsvc.Service
	expiringJob  *expiring.Job
}

// invoiceLinks adapts the telegram bot to the invoice issuer's
// LinkCreator capability.
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

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	bot, err := tginfra.NewBot(cfg.Bot.Token)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	var redisClient *goredis.Client
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient = redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		logger.Warn("redis addr is empty, reminder dedupe degraded to at-least-once")
	}

	cat := catalog.New(cfg.Tiers, cfg.Channels)
	admins := authz.NewAdmins(cfg.Bot.AdminUserIDs)

	userRepo := pgrepo.NewUserRepo(pool)
	subRepo := pgrepo.NewSubscriptionRepo(pool)
	pendingRepo := pgrepo.NewPendingRequestRepo(pool)

	notif := newNotifier(bot, cat, cfg.Bot.AdminUserIDs, logger)
	invoiceService := invoicesvc.NewService(cat, invoiceLinks{bot: bot}, cfg.Payment.TestMode, logger)
	paymentService := paymentsvc.NewService(subRepo, pendingRepo, userRepo, cat, notif, admins, logger)
	entitlementService := entitlementsvc.NewService(subRepo, cat)

	loc := time.UTC
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if loaded, err := time.LoadLocation(tz); err == nil {
			loc = loaded
		} else {
			logger.Warn("unknown scheduler timezone, falling back to UTC", zap.String("timezone", tz))
		}
	}

	var marks expiring.ReminderMarks
	if redisClient != nil {
		marks = redisrepo.NewReminderRepo(redisClient)
	}
	expiringJob := expiring.NewJob(subRepo, marks, notif,
		cfg.Scheduler.LeadTimeDays, loc, cfg.Scheduler.ReminderTTL, logger)

	return &App{
		cfg:          cfg,
		logger:       logger,
		postgres:     pool,
		redis:        redisClient,
		bot:          bot,
		catalog:      cat,
		admins:       admins,
		userRepo:     userRepo,
		subRepo:      subRepo,
		invoices:     invoiceService,
		payments:     paymentService,
		entitlements: entitlementService,
		expiringJob:  expiringJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runReminderLoop(ctx)
	}()
	go func() {
		errCh <- a.bot.Listen(ctx, tginfra.Handlers{
			OnCommand:     a.handleCommand,
			OnCallback:    a.handleCallback,
			OnPreCheckout: a.handlePreCheckout,
			OnPayment:     a.handlePayment,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runReminderLoop(ctx context.Context) error {
	interval := a.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if err := a.expiringJob.Run(ctx); err != nil {
		a.logger.Error("expiry sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.expiringJob.Run(ctx); err != nil {
				a.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

func (a *App) handlePreCheckout(ctx context.Context, update tginfra.PreCheckoutUpdate) error {
	if err := a.payments.ValidateCheckout(ctx, update.Currency); err != nil {
		a.logger.Warn("pre-checkout declined",
			zap.Int64("user_id", update.UserID),
			zap.String("currency", update.Currency))
		if err := a.bot.AnswerPreCheckout(ctx, update.QueryID, false, wrongCurrencyReason); err != nil {
			a.logger.Error("answer pre-checkout failed", zap.Error(err))
		}
		return nil
	}

	if err := a.bot.AnswerPreCheckout(ctx, update.QueryID, true, ""); err != nil {
		a.logger.Error("answer pre-checkout failed", zap.Error(err))
	}
	return nil
}

func (a *App) handlePayment(ctx context.Context, update tginfra.PaymentUpdate) error {
	a.registerUser(ctx, update.UserID, update.Username, update.FirstName, update.LastName)

	_, err := a.payments.ApplyConfirmedPayment(ctx, paymentsvc.ConfirmedPayment{
		Currency:      update.Currency,
		TotalAmount:   update.TotalAmount,
		Payload:       update.Payload,
		TransactionID: update.TelegramChargeID,
	})
	if err != nil {
		a.logger.Error("confirmed payment failed",
			zap.Int64("user_id", update.UserID),
			zap.String("charge_id", update.TelegramChargeID),
			zap.Error(err))
		if sendErr := a.bot.SendText(ctx, update.ChatID, paymentFailedText); sendErr != nil {
			a.logger.Warn("payment failure notice not delivered", zap.Error(sendErr))
		}
	}
	return nil
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	a.registerUser(ctx, update.UserID, update.Username, update.FirstName, update.LastName)

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.sendWelcome(ctx, update.ChatID)
	case "status":
		return a.sendStatus(ctx, update.ChatID, update.UserID)
	case "confirm_payment":
		return a.confirmManual(ctx, update, enums.ProductTypeTerm, confirmUsageTerm)
	case "confirm_channel":
		return a.confirmManual(ctx, update, enums.ProductTypeChannel, confirmUsageChannel)
	default:
		return nil
	}
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	a.registerUser(ctx, update.UserID, update.Username, update.FirstName, update.LastName)

	parts := strings.Split(strings.TrimSpace(update.Data), ":")
	if len(parts) != 3 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
	}

	productType := enums.ProductTypeTerm
	if parts[1] == "channel" {
		productType = enums.ProductTypeChannel
	} else if parts[1] != "term" {
		return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
	}
	productID := parts[2]

	switch parts[0] {
	case "buy":
		return a.sendInvoice(ctx, update, productType, productID)
	case "manual":
		return a.requestManual(ctx, update, productType, productID)
	case "cancel":
		return a.cancelManual(ctx, update, productType, productID)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
	}
}

func (a *App) sendWelcome(ctx context.Context, chatID int64) error {
	rows := make([][]tginfra.Button, 0, len(a.catalog.Tiers())+len(a.catalog.Channels())+1)
	if url := strings.TrimSpace(a.cfg.Bot.MiniAppURL); url != "" {
		rows = append(rows, []tginfra.Button{{Text: "Открыть Mini App", URL: url}})
	}
	for _, tier := range a.catalog.Tiers() {
		rows = append(rows, []tginfra.Button{
			{Text: fmt.Sprintf("%s — %d⭐", tier.Name, tier.StarsPrice), CallbackData: "buy:term:" + tier.ID},
			{Text: "Картой", CallbackData: "manual:term:" + tier.ID},
		})
	}
	for _, channel := range a.catalog.Channels() {
		rows = append(rows, []tginfra.Button{
			{Text: fmt.Sprintf("%s — %d⭐", channel.Name, channel.StarsPrice), CallbackData: "buy:channel:" + channel.ID},
			{Text: "Картой", CallbackData: "manual:channel:" + channel.ID},
		})
	}
	return a.bot.SendWithKeyboard(ctx, chatID, welcomeText, rows)
}

func (a *App) sendStatus(ctx context.Context, chatID, userID int64) error {
	status, err := a.entitlements.Status(ctx, userID)
	if err != nil {
		a.logger.Error("status query failed", zap.Int64("user_id", userID), zap.Error(err))
		return a.bot.SendText(ctx, chatID, confirmFailedText)
	}
	return a.bot.SendText(ctx, chatID, formatStatusMessage(status))
}

func (a *App) sendInvoice(ctx context.Context, update tginfra.CallbackUpdate, productType enums.ProductType, productID string) error {
	var (
		link string
		err  error
	)
	if productType == enums.ProductTypeChannel {
		link, err = a.invoices.IssueChannelInvoice(ctx, update.UserID, productID)
	} else {
		link, err = a.invoices.IssueTermInvoice(ctx, update.UserID, productID)
	}
	if err != nil {
		a.logger.Error("invoice issue failed",
			zap.Int64("user_id", update.UserID),
			zap.String("product_id", productID),
			zap.Error(err))
		return a.bot.AnswerCallback(ctx, update.CallbackID, invoiceFailedText)
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		a.logger.Warn("answer callback failed", zap.Error(err))
	}
	rows := [][]tginfra.Button{{{Text: "Оплатить", URL: link}}}
	return a.bot.SendWithKeyboard(ctx, update.ChatID, invoiceCreatedText, rows)
}

func (a *App) requestManual(ctx context.Context, update tginfra.CallbackUpdate, productType enums.ProductType, productID string) error {
	created, err := a.payments.RequestManual(ctx, update.UserID, productType, productID)
	if err != nil {
		a.logger.Error("manual request failed",
			zap.Int64("user_id", update.UserID),
			zap.String("product_id", productID),
			zap.Error(err))
		return a.bot.AnswerCallback(ctx, update.CallbackID, confirmFailedText)
	}

	text := manualCreatedText
	if !created {
		text = manualDuplicateText
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		a.logger.Warn("answer callback failed", zap.Error(err))
	}
	kind := "term"
	if productType == enums.ProductTypeChannel {
		kind = "channel"
	}
	rows := [][]tginfra.Button{{{Text: "Отменить заявку", CallbackData: "cancel:" + kind + ":" + productID}}}
	return a.bot.SendWithKeyboard(ctx, update.ChatID, text, rows)
}

func (a *App) cancelManual(ctx context.Context, update tginfra.CallbackUpdate, productType enums.ProductType, productID string) error {
	if _, err := a.payments.CancelPendingRequest(ctx, update.UserID, productType, productID); err != nil {
		a.logger.Error("cancel pending request failed",
			zap.Int64("user_id", update.UserID),
			zap.String("product_id", productID),
			zap.Error(err))
		return a.bot.AnswerCallback(ctx, update.CallbackID, confirmFailedText)
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		a.logger.Warn("answer callback failed", zap.Error(err))
	}
	return a.bot.SendText(ctx, update.ChatID, manualCancelledText)
}

func (a *App) confirmManual(ctx context.Context, update tginfra.CommandUpdate, productType enums.ProductType, usage string) error {
	fields := strings.Fields(update.Args)
	if len(fields) != 2 {
		return a.bot.SendText(ctx, update.ChatID, usage)
	}
	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || targetID <= 0 {
		return a.bot.SendText(ctx, update.ChatID, usage)
	}

	receipt, err := a.payments.ApplyManualConfirmation(ctx, update.UserID, targetID, productType, fields[1])
	if err != nil {
		return a.bot.SendText(ctx, update.ChatID, manualConfirmError(err))
	}

	return a.bot.SendText(ctx, update.ChatID,
		fmt.Sprintf("Оплата подтверждена. «%s» для %d активна до %s.",
			receipt.Product.Name, targetID, receipt.NewEndDate.Format("02.01.2006")))
}

func manualConfirmError(err error) string {
	switch {
	case errors.Is(err, paymentsvc.ErrNotAdmin):
		return confirmNotAdminText
	case errors.Is(err, pgrepo.ErrNoPendingRequest):
		return confirmNoRequestText
	case errors.Is(err, pgrepo.ErrUserNotFound):
		return confirmNoUserText
	case errors.Is(err, catalog.ErrProductNotFound):
		return confirmNoProductText
	default:
		return confirmFailedText
	}
}

func formatStatusMessage(status entitlementsvc.Status) string {
	lines := make([]string, 0, 4+len(status.Channels))

	if status.Term.Active && status.Term.EndDate != nil {
		lines = append(lines, fmt.Sprintf("Подписка: %s, до %s (%s).",
			status.Term.Tier, status.Term.EndDate.Format("02.01.2006"), daysWord(status.Term.DaysLeft)))
	}

	for _, ch := range status.Channels {
		if !ch.Active || ch.EndDate == nil {
			continue
		}
		name := ch.Name
		if name == "" {
			name = ch.ChannelID
		}
		lines = append(lines, fmt.Sprintf("Канал «%s»: до %s (%s).",
			name, ch.EndDate.Format("02.01.2006"), daysWord(ch.DaysLeft)))
	}

	if len(lines) == 0 {
		return noSubscriptionsText
	}
	return strings.Join(lines, "\n")
}

func (a *App) registerUser(ctx context.Context, telegramID int64, username, firstName, lastName string) {
	now := time.Now().UTC()
	if _, err := a.userRepo.UpsertFromTelegram(ctx, telegramID, username, firstName, lastName,
		a.admins.IsAdmin(telegramID), now); err != nil {
		a.logger.Warn("user upsert failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
