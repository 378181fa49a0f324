package botapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	tginfra "github.com/RetardedCafeLab/term-bot/internal/infra/telegram"
)

// notifier delivers payment and expiry messages over the bot. Every
// method is best-effort: callers treat failures as log-and-continue.
type notifier struct {
	bot      *tginfra.Bot
	catalog  *catalog.Catalog
	adminIDs []int64
	logger   *zap.Logger
}

func newNotifier(bot *tginfra.Bot, cat *catalog.Catalog, adminIDs []int64, logger *zap.Logger) *notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notifier{
		bot:      bot,
		catalog:  cat,
		adminIDs: adminIDs,
		logger:   logger,
	}
}

func (n *notifier) PaymentConfirmed(ctx context.Context, userID int64, product catalog.Product, newEnd time.Time) error {
	if n.bot == nil {
		return nil
	}

	text := fmt.Sprintf("Оплата получена! Подписка «%s» активна до %s.",
		product.Name, newEnd.Format("02.01.2006"))

	if product.Type == enums.ProductTypeChannel && product.InviteLink != "" {
		rows := [][]tginfra.Button{{
			{Text: "Перейти в канал", URL: product.InviteLink},
		}}
		return n.bot.SendWithKeyboard(ctx, userID, text, rows)
	}
	return n.bot.SendText(ctx, userID, text)
}

func (n *notifier) ManualRequested(ctx context.Context, user model.User, product catalog.Product) error {
	if n.bot == nil {
		return nil
	}

	name := strings.TrimSpace(user.Username)
	if name != "" {
		name = "@" + name
	} else {
		name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}

	var command string
	if product.Type == enums.ProductTypeChannel {
		command = fmt.Sprintf("/confirm_channel %d %s", user.TelegramID, product.ID)
	} else {
		command = fmt.Sprintf("/confirm_payment %d %s", user.TelegramID, product.ID)
	}

	text := fmt.Sprintf("Новая заявка на ручную оплату.\nПользователь: %s (id %d)\nПродукт: %s\nПодтвердить: %s",
		name, user.TelegramID, product.Name, command)
	return n.broadcastAdmins(ctx, text)
}

func (n *notifier) OperatorAlert(ctx context.Context, message string) error {
	return n.broadcastAdmins(ctx, "⚠️ "+message)
}

func (n *notifier) TermExpiring(ctx context.Context, sub model.TermSubscription, daysLeft int) error {
	if n.bot == nil || sub.EndDate == nil {
		return nil
	}

	text := fmt.Sprintf("Подписка истекает %s (%s). Продлите её, чтобы не потерять доступ.",
		sub.EndDate.Format("02.01.2006"), daysWord(daysLeft))
	rows := [][]tginfra.Button{{
		{Text: "Продлить", CallbackData: "buy:term:" + string(sub.Tier)},
	}}
	return n.bot.SendWithKeyboard(ctx, sub.UserID, text, rows)
}

func (n *notifier) ChannelExpiring(ctx context.Context, sub model.ChannelSubscription, daysLeft int) error {
	if n.bot == nil || sub.EndDate == nil {
		return nil
	}

	name := sub.ChannelID
	if product, err := n.catalog.Channel(sub.ChannelID); err == nil {
		name = product.Name
	}

	text := fmt.Sprintf("Доступ к каналу «%s» истекает %s (%s).",
		name, sub.EndDate.Format("02.01.2006"), daysWord(daysLeft))
	rows := [][]tginfra.Button{{
		{Text: "Продлить", CallbackData: "buy:channel:" + sub.ChannelID},
	}}
	return n.bot.SendWithKeyboard(ctx, sub.UserID, text, rows)
}

func (n *notifier) broadcastAdmins(ctx context.Context, text string) error {
	if n.bot == nil {
		return nil
	}

	var firstErr error
	for _, adminID := range n.adminIDs {
		if err := n.bot.SendText(ctx, adminID, text); err != nil {
			n.logger.Warn("admin notification failed",
				zap.Int64("admin_id", adminID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func daysWord(days int) string {
	switch {
	case days == 1:
		return "остался 1 день"
	case days >= 2 && days <= 4:
		return fmt.Sprintf("осталось %d дня", days)
	default:
		return fmt.Sprintf("осталось %d дней", days)
	}
}
