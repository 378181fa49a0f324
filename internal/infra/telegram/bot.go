package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

type CommandUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Command   string
	Args      string
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	UserID     int64
	Username   string
	FirstName  string
	LastName   string
	Data       string
}

// PreCheckoutUpdate must be answered within ten seconds or Telegram
// cancels the checkout on its own.
type PreCheckoutUpdate struct {
	QueryID     string
	UserID      int64
	Currency    string
	TotalAmount int64
	Payload     string
}

// PaymentUpdate is a successful charge. The money is already taken when
// this arrives.
type PaymentUpdate struct {
	ChatID           int64
	UserID           int64
	Username         string
	FirstName        string
	LastName         string
	Currency         string
	TotalAmount      int64
	Payload          string
	TelegramChargeID string
}

type Handlers struct {
	OnCommand     func(context.Context, CommandUpdate) error
	OnCallback    func(context.Context, CallbackUpdate) error
	OnPreCheckout func(context.Context, PreCheckoutUpdate) error
	OnPayment     func(context.Context, PaymentUpdate) error
}

// InvoiceParams describes one single-price Stars invoice.
type InvoiceParams struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Amount      int64
}

// Button is one inline keyboard button. Exactly one of CallbackData and
// URL should be set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updateCfg.AllowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.PreCheckoutQuery != nil && handlers.OnPreCheckout != nil {
				err := handlers.OnPreCheckout(ctx, PreCheckoutUpdate{
					QueryID:     update.PreCheckoutQuery.ID,
					UserID:      update.PreCheckoutQuery.From.ID,
					Currency:    update.PreCheckoutQuery.Currency,
					TotalAmount: int64(update.PreCheckoutQuery.TotalAmount),
					Payload:     update.PreCheckoutQuery.InvoicePayload,
				})
				if err != nil {
					return err
				}
				continue
			}

			if update.Message != nil && update.Message.From != nil {
				if update.Message.SuccessfulPayment != nil && handlers.OnPayment != nil {
					payment := update.Message.SuccessfulPayment
					err := handlers.OnPayment(ctx, PaymentUpdate{
						ChatID:           update.Message.Chat.ID,
						UserID:           update.Message.From.ID,
						Username:         update.Message.From.UserName,
						FirstName:        update.Message.From.FirstName,
						LastName:         update.Message.From.LastName,
						Currency:         payment.Currency,
						TotalAmount:      int64(payment.TotalAmount),
						Payload:          payment.InvoicePayload,
						TelegramChargeID: payment.TelegramPaymentChargeID,
					})
					if err != nil {
						return err
					}
					continue
				}

				if update.Message.IsCommand() && handlers.OnCommand != nil {
					err := handlers.OnCommand(ctx, CommandUpdate{
						ChatID:    update.Message.Chat.ID,
						UserID:    update.Message.From.ID,
						Username:  update.Message.From.UserName,
						FirstName: update.Message.From.FirstName,
						LastName:  update.Message.From.LastName,
						Command:   update.Message.Command(),
						Args:      update.Message.CommandArguments(),
					})
					if err != nil {
						return err
					}
					continue
				}
			}

			if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
				chatID := int64(0)
				if update.CallbackQuery.Message != nil {
					chatID = update.CallbackQuery.Message.Chat.ID
				}
				err := handlers.OnCallback(ctx, CallbackUpdate{
					CallbackID: update.CallbackQuery.ID,
					ChatID:     chatID,
					UserID:     update.CallbackQuery.From.ID,
					Username:   update.CallbackQuery.From.UserName,
					FirstName:  update.CallbackQuery.From.FirstName,
					LastName:   update.CallbackQuery.From.LastName,
					Data:       update.CallbackQuery.Data,
				})
				if err != nil {
					return err
				}
			}
		}
	}
}

// CreateInvoiceLink calls the createInvoiceLink Bot API method. Stars
// invoices carry no provider token and exactly one price row.
func (b *Bot) CreateInvoiceLink(ctx context.Context, params InvoiceParams) (string, error) {
	if b == nil || b.api == nil {
		return "", fmt.Errorf("telegram bot is not initialized")
	}
	if params.Amount <= 0 {
		return "", fmt.Errorf("invoice amount must be positive, got %d", params.Amount)
	}

	prices, err := json.Marshal([]tgbotapi.LabeledPrice{
		{Label: params.Title, Amount: int(params.Amount)},
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoice prices: %w", err)
	}

	resp, err := b.api.MakeRequest("createInvoiceLink", tgbotapi.Params{
		"title":       params.Title,
		"description": params.Description,
		"payload":     params.Payload,
		"currency":    params.Currency,
		"prices":      string(prices),
	})
	if err != nil {
		return "", fmt.Errorf("create invoice link: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invoice link response: %w", err)
	}

	_ = ctx
	return link, nil
}

// AnswerPreCheckout approves or declines a pre-checkout query. The
// reason is shown to the user when ok is false.
func (b *Bot) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(queryID) == "" {
		return fmt.Errorf("pre-checkout query id is required")
	}

	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       reason,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer pre-checkout query: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, chatID, text, nil)
}

func (b *Bot) SendWithKeyboard(ctx context.Context, chatID int64, text string, rows [][]Button) error {
	return b.send(ctx, chatID, text, rows)
}

func (b *Bot) send(_ context.Context, chatID int64, text string, rows [][]Button) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if len(rows) > 0 {
		keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
		for _, row := range rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, btn := range row {
				if btn.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
					continue
				}
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
			keyboard = append(keyboard, buttons)
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}
