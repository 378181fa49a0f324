package invoices

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
)

var (
	ErrRailUnavailable = errors.New("stars rail unavailable")
	ErrInvalidAmount   = errors.New("invoice amount must be positive")
)

// InvoiceSpec is everything the transport needs to create a Telegram
// invoice link.
type InvoiceSpec struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Amount      int64
}

type LinkCreator interface {
	CreateInvoiceLink(ctx context.Context, spec InvoiceSpec) (string, error)
}

// Service issues Stars invoice links for catalog products. In test mode
// every invoice charges a nominal single star while keeping the real
// duration, so the full payment path can be exercised cheaply.
type Service struct {
	catalog  *catalog.Catalog
	links    LinkCreator
	testMode bool
	logger   *zap.Logger
}

func NewService(cat *catalog.Catalog, links LinkCreator, testMode bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:  cat,
		links:    links,
		testMode: testMode,
		logger:   logger,
	}
}

func (s *Service) IssueTermInvoice(ctx context.Context, userID int64, tierID string) (string, error) {
	product, err := s.catalog.Tier(tierID)
	if err != nil {
		return "", err
	}
	return s.issue(ctx, userID, product)
}

func (s *Service) IssueChannelInvoice(ctx context.Context, userID int64, channelID string) (string, error) {
	product, err := s.catalog.Channel(channelID)
	if err != nil {
		return "", err
	}
	return s.issue(ctx, userID, product)
}

func (s *Service) issue(ctx context.Context, userID int64, product catalog.Product) (string, error) {
	if s.links == nil {
		return "", ErrRailUnavailable
	}
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}

	payload := CorrelationPayload{
		Type:     product.Type,
		UserID:   userID,
		Duration: product.DurationDays,
		Test:     s.testMode,
	}
	if product.Type == enums.ProductTypeChannel {
		payload.ChannelID = product.ID
	} else {
		payload.TierID = product.ID
	}

	encoded, err := payload.Encode()
	if err != nil {
		return "", err
	}

	amount := product.StarsPrice
	if s.testMode {
		amount = 1
	}
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	link, err := s.links.CreateInvoiceLink(ctx, InvoiceSpec{
		Title:       product.Name,
		Description: product.Description,
		Payload:     encoded,
		Currency:    CurrencyStars,
		Amount:      amount,
	})
	if err != nil {
		return "", fmt.Errorf("create invoice link: %w", err)
	}

	s.logger.Info("invoice link issued",
		zap.Int64("user_id", userID),
		zap.String("product_type", string(product.Type)),
		zap.String("product_id", product.ID),
		zap.Int64("amount", amount),
	)

	return link, nil
}
