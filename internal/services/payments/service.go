package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	"github.com/RetardedCafeLab/term-bot/internal/repo/postgres"
	"github.com/RetardedCafeLab/term-bot/internal/services/invoices"
)

var (
	ErrWrongCurrency = errors.New("unsupported invoice currency")
	ErrNotAdmin      = errors.New("operator rights required")
)

type SubscriptionStore interface {
	ApplyPayment(ctx context.Context, p postgres.ApplyPaymentParams) (postgres.ApplyPaymentResult, error)
}

type PendingStore interface {
	CreateTermRequest(ctx context.Context, userID int64, tier enums.Tier, now time.Time) (model.PendingTermRequest, bool, error)
	CreateChannelRequest(ctx context.Context, userID int64, channelID string, now time.Time) (model.PendingChannelRequest, bool, error)
	ClearTermRequest(ctx context.Context, userID int64) (bool, error)
	ClearChannelRequest(ctx context.Context, userID int64, channelID string) (bool, error)
}

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (model.User, error)
}

// Notifier delivers user-facing and operator-facing messages. Delivery
// failures never roll back a committed payment.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, userID int64, product catalog.Product, newEnd time.Time) error
	ManualRequested(ctx context.Context, user model.User, product catalog.Product) error
	OperatorAlert(ctx context.Context, message string) error
}

type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// Receipt reports the outcome of one applied payment.
type Receipt struct {
	UserID         int64
	Product        catalog.Product
	NewEndDate     time.Time
	Idempotent     bool
	PendingCleared bool
}

// ConfirmedPayment carries the fields of a successful-payment update
// that matter to reconciliation.
type ConfirmedPayment struct {
	Currency      string
	TotalAmount   int64
	Payload       string
	TransactionID string
}

// Service reconciles confirmed charges with subscription state. Both
// payment rails converge here: the Stars rail feeds ApplyConfirmedPayment
// from bot updates, the manual rail feeds ApplyManualConfirmation from
// operator commands.
type Service struct {
	subs     SubscriptionStore
	pending  PendingStore
	users    UserStore
	catalog  *catalog.Catalog
	notifier Notifier
	admins   AdminChecker
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(
	subs SubscriptionStore,
	pending PendingStore,
	users UserStore,
	cat *catalog.Catalog,
	notifier Notifier,
	admins AdminChecker,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		subs:     subs,
		pending:  pending,
		users:    users,
		catalog:  cat,
		notifier: notifier,
		admins:   admins,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateCheckout answers a pre-checkout query. Telegram gives ten
// seconds to respond, so the check stays cheap: only the currency is
// verified here, everything else is reconciled after the charge.
func (s *Service) ValidateCheckout(_ context.Context, currency string) error {
	if currency != invoices.CurrencyStars {
		return fmt.Errorf("currency %q: %w", currency, ErrWrongCurrency)
	}
	return nil
}

// ApplyConfirmedPayment processes a successful Stars charge. The charge
// has already been taken by Telegram, so every failure past the payload
// decode raises an operator alert instead of silently dropping money.
func (s *Service) ApplyConfirmedPayment(ctx context.Context, payment ConfirmedPayment) (Receipt, error) {
	if payment.Currency != invoices.CurrencyStars {
		s.alert(ctx, fmt.Sprintf("paid charge %s has currency %s, expected %s",
			payment.TransactionID, payment.Currency, invoices.CurrencyStars))
		return Receipt{}, fmt.Errorf("charge %s: %w", payment.TransactionID, ErrWrongCurrency)
	}

	payload, err := invoices.DecodePayload(payment.Payload)
	if err != nil {
		s.alert(ctx, fmt.Sprintf("paid charge %s carries an undecodable payload: %s",
			payment.TransactionID, payment.Payload))
		return Receipt{}, fmt.Errorf("charge %s: %w", payment.TransactionID, err)
	}

	product, err := s.catalog.Product(payload.Type, payload.ProductID())
	if err != nil {
		s.alert(ctx, fmt.Sprintf("paid charge %s references unknown product %s/%s for user %d",
			payment.TransactionID, payload.Type, payload.ProductID(), payload.UserID))
		return Receipt{}, fmt.Errorf("charge %s product %s: %w", payment.TransactionID, payload.ProductID(), err)
	}

	if _, err := s.users.FindByTelegramID(ctx, payload.UserID); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			s.alert(ctx, fmt.Sprintf("paid charge %s belongs to unknown user %d",
				payment.TransactionID, payload.UserID))
		}
		return Receipt{}, fmt.Errorf("charge %s user %d: %w", payment.TransactionID, payload.UserID, err)
	}

	result, err := s.subs.ApplyPayment(ctx, postgres.ApplyPaymentParams{
		UserID:        payload.UserID,
		ProductType:   payload.Type,
		ProductID:     product.ID,
		Tier:          termTier(product),
		DurationDays:  payload.Duration,
		Amount:        payment.TotalAmount,
		Currency:      payment.Currency,
		Method:        enums.PaymentMethodStars,
		TransactionID: payment.TransactionID,
		Now:           s.now().UTC(),
	})
	if err != nil {
		s.alert(ctx, fmt.Sprintf("paid charge %s for user %d failed to apply: %v",
			payment.TransactionID, payload.UserID, err))
		return Receipt{}, fmt.Errorf("apply charge %s: %w", payment.TransactionID, err)
	}

	receipt := Receipt{
		UserID:         payload.UserID,
		Product:        product,
		NewEndDate:     result.NewEndDate,
		Idempotent:     !result.Applied,
		PendingCleared: result.PendingCleared,
	}

	if receipt.Idempotent {
		s.logger.Info("duplicate charge ignored",
			zap.Int64("user_id", payload.UserID),
			zap.String("transaction_id", payment.TransactionID),
		)
		return receipt, nil
	}

	s.logger.Info("stars payment applied",
		zap.Int64("user_id", payload.UserID),
		zap.String("product_type", string(product.Type)),
		zap.String("product_id", product.ID),
		zap.Time("new_end_date", result.NewEndDate),
	)

	s.notifyConfirmed(ctx, payload.UserID, product, result.NewEndDate)
	return receipt, nil
}

// ApplyManualConfirmation settles a pending manual request. The request
// must still exist: approving the same user twice fails with
// ErrNoPendingRequest instead of granting a second period.
func (s *Service) ApplyManualConfirmation(ctx context.Context, adminID, userID int64, productType enums.ProductType, productID string) (Receipt, error) {
	if s.admins == nil || !s.admins.IsAdmin(adminID) {
		return Receipt{}, fmt.Errorf("user %d: %w", adminID, ErrNotAdmin)
	}

	product, err := s.catalog.Product(productType, productID)
	if err != nil {
		return Receipt{}, fmt.Errorf("product %s/%s: %w", productType, productID, err)
	}

	if _, err := s.users.FindByTelegramID(ctx, userID); err != nil {
		return Receipt{}, fmt.Errorf("user %d: %w", userID, err)
	}

	result, err := s.subs.ApplyPayment(ctx, postgres.ApplyPaymentParams{
		UserID:         userID,
		ProductType:    productType,
		ProductID:      product.ID,
		Tier:           termTier(product),
		DurationDays:   product.DurationDays,
		Amount:         product.StarsPrice,
		Currency:       invoices.CurrencyStars,
		Method:         enums.PaymentMethodCard,
		TransactionID:  "manual_" + uuid.NewString(),
		RequirePending: true,
		Now:            s.now().UTC(),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("confirm manual payment for user %d: %w", userID, err)
	}

	s.logger.Info("manual payment confirmed",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", userID),
		zap.String("product_type", string(productType)),
		zap.String("product_id", product.ID),
		zap.Time("new_end_date", result.NewEndDate),
	)

	s.notifyConfirmed(ctx, userID, product, result.NewEndDate)

	return Receipt{
		UserID:         userID,
		Product:        product,
		NewEndDate:     result.NewEndDate,
		PendingCleared: result.PendingCleared,
	}, nil
}

// RequestManual records a user's intent to pay off-platform and pings
// the operators. Repeated requests collapse into the existing one.
func (s *Service) RequestManual(ctx context.Context, userID int64, productType enums.ProductType, productID string) (bool, error) {
	product, err := s.catalog.Product(productType, productID)
	if err != nil {
		return false, fmt.Errorf("product %s/%s: %w", productType, productID, err)
	}

	user, err := s.users.FindByTelegramID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("user %d: %w", userID, err)
	}

	now := s.now().UTC()
	var created bool
	switch productType {
	case enums.ProductTypeChannel:
		_, created, err = s.pending.CreateChannelRequest(ctx, userID, product.ID, now)
	default:
		_, created, err = s.pending.CreateTermRequest(ctx, userID, termTier(product), now)
	}
	if err != nil {
		return false, fmt.Errorf("record manual request for user %d: %w", userID, err)
	}
	if !created {
		return false, nil
	}

	s.logger.Info("manual payment requested",
		zap.Int64("user_id", userID),
		zap.String("product_type", string(productType)),
		zap.String("product_id", product.ID),
	)

	if s.notifier != nil {
		if notifyErr := s.notifier.ManualRequested(ctx, user, product); notifyErr != nil {
			s.logger.Warn("manual request notification failed",
				zap.Int64("user_id", userID), zap.Error(notifyErr))
		}
	}
	return true, nil
}

// CancelPendingRequest withdraws a manual request. Cancelling a request
// that no longer exists is a no-op.
func (s *Service) CancelPendingRequest(ctx context.Context, userID int64, productType enums.ProductType, productID string) (bool, error) {
	switch productType {
	case enums.ProductTypeChannel:
		if strings.TrimSpace(productID) == "" {
			return false, fmt.Errorf("channel id is empty: %w", catalog.ErrProductNotFound)
		}
		return s.pending.ClearChannelRequest(ctx, userID, productID)
	default:
		return s.pending.ClearTermRequest(ctx, userID)
	}
}

func (s *Service) notifyConfirmed(ctx context.Context, userID int64, product catalog.Product, newEnd time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PaymentConfirmed(ctx, userID, product, newEnd); err != nil {
		s.logger.Warn("payment confirmation notification failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *Service) alert(ctx context.Context, message string) {
	s.logger.Error("payment anomaly", zap.String("detail", message))
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OperatorAlert(ctx, message); err != nil {
		s.logger.Warn("operator alert delivery failed", zap.Error(err))
	}
}

func termTier(product catalog.Product) enums.Tier {
	if product.Type == enums.ProductTypeChannel {
		return enums.TierNone
	}
	return enums.Tier(product.ID)
}
