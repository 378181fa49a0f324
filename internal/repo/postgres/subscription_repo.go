package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RetardedCafeLab/term-bot/internal/domain/enums"
	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
	"github.com/RetardedCafeLab/term-bot/internal/domain/rules"
)

var ErrNoPendingRequest = errors.New("no pending request")

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

type ApplyPaymentParams struct {
	UserID        int64
	ProductType   enums.ProductType
	ProductID     string
	Tier          enums.Tier
	DurationDays  int
	Amount        int64
	Currency      string
	Method        enums.PaymentMethod
	TransactionID string
	// RequirePending makes the transition fail with ErrNoPendingRequest
	// unless a matching manual request exists. The automatic rail clears
	// a matching request opportunistically instead.
	RequirePending bool
	Now            time.Time
}

type ApplyPaymentResult struct {
	NewEndDate     time.Time
	Applied        bool
	PendingCleared bool
}

// ApplyPayment commits one confirmed payment: the appended history entry,
// the recomputed subscription period and the pending-request resolution
// land in a single transaction. A transaction id already present for the
// user short-circuits into an idempotent no-op that reports the current
// end date.
func (r *SubscriptionRepo) ApplyPayment(ctx context.Context, p ApplyPaymentParams) (ApplyPaymentResult, error) {
	if r.pool == nil {
		return ApplyPaymentResult{}, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 || p.DurationDays <= 0 || strings.TrimSpace(p.TransactionID) == "" {
		return ApplyPaymentResult{}, fmt.Errorf("invalid apply payment payload")
	}
	if p.ProductType == enums.ProductTypeChannel && strings.TrimSpace(p.ProductID) == "" {
		return ApplyPaymentResult{}, fmt.Errorf("channel payment requires a channel id")
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	now = now.UTC()

	var out ApplyPaymentResult
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(txCtx, `
INSERT INTO payment_history (user_id, product_type, product_id, amount, currency, method, transaction_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, transaction_id) DO NOTHING
`, p.UserID, string(p.ProductType), p.ProductID, p.Amount, p.Currency, string(p.Method), strings.TrimSpace(p.TransactionID), now)
		if err != nil {
			return fmt.Errorf("append payment history: %w", err)
		}

		if tag.RowsAffected() == 0 {
			// Duplicate delivery. The first application already moved the
			// dates and cleared the pending request.
			end, err := r.currentEndTx(txCtx, tx, p)
			if err != nil {
				return err
			}
			out = ApplyPaymentResult{NewEndDate: end, Applied: false}
			return nil
		}

		cleared, err := r.resolvePendingTx(txCtx, tx, p)
		if err != nil {
			return err
		}

		newEnd, err := r.extendTx(txCtx, tx, p, now)
		if err != nil {
			return err
		}

		out = ApplyPaymentResult{NewEndDate: newEnd, Applied: true, PendingCleared: cleared}
		return nil
	})
	if err != nil {
		return ApplyPaymentResult{}, err
	}

	return out, nil
}

func (r *SubscriptionRepo) resolvePendingTx(ctx context.Context, tx pgx.Tx, p ApplyPaymentParams) (bool, error) {
	var tag string
	var err error
	switch p.ProductType {
	case enums.ProductTypeTerm:
		err = tx.QueryRow(ctx, `
DELETE FROM pending_term_requests
WHERE user_id = $1 AND status = 'pending'
RETURNING tier
`, p.UserID).Scan(&tag)
	case enums.ProductTypeChannel:
		err = tx.QueryRow(ctx, `
DELETE FROM pending_channel_requests
WHERE user_id = $1 AND channel_id = $2 AND status = 'pending'
RETURNING channel_id
`, p.UserID, p.ProductID).Scan(&tag)
	default:
		return false, fmt.Errorf("unsupported product type %q", p.ProductType)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if p.RequirePending {
				return false, ErrNoPendingRequest
			}
			return false, nil
		}
		return false, fmt.Errorf("resolve pending request: %w", err)
	}

	return true, nil
}

func (r *SubscriptionRepo) extendTx(ctx context.Context, tx pgx.Tx, p ApplyPaymentParams, now time.Time) (time.Time, error) {
	switch p.ProductType {
	case enums.ProductTypeTerm:
		var active bool
		var end *time.Time
		err := tx.QueryRow(ctx, `
SELECT active, end_date FROM term_subscriptions WHERE user_id = $1 FOR UPDATE
`, p.UserID).Scan(&active, &end)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("lock term subscription: %w", err)
		}

		base := end
		if !rules.IsActive(now, active, end) {
			base = nil
		}
		newEnd := rules.ExtendedEnd(now, base, p.DurationDays)

		if _, err := tx.Exec(ctx, `
INSERT INTO term_subscriptions (user_id, active, tier, start_date, end_date, payment_method)
VALUES ($1, TRUE, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET active = TRUE, tier = EXCLUDED.tier, start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date, payment_method = EXCLUDED.payment_method
`, p.UserID, string(p.Tier), now, newEnd, string(p.Method)); err != nil {
			return time.Time{}, fmt.Errorf("upsert term subscription: %w", err)
		}
		return newEnd, nil

	case enums.ProductTypeChannel:
		var active bool
		var end *time.Time
		err := tx.QueryRow(ctx, `
SELECT active, end_date FROM channel_subscriptions WHERE user_id = $1 AND channel_id = $2 FOR UPDATE
`, p.UserID, p.ProductID).Scan(&active, &end)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("lock channel subscription: %w", err)
		}

		base := end
		if !rules.IsActive(now, active, end) {
			base = nil
		}
		newEnd := rules.ExtendedEnd(now, base, p.DurationDays)

		if _, err := tx.Exec(ctx, `
INSERT INTO channel_subscriptions (user_id, channel_id, active, start_date, end_date)
VALUES ($1, $2, TRUE, $3, $4)
ON CONFLICT (user_id, channel_id) DO UPDATE
SET active = TRUE, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date
`, p.UserID, p.ProductID, now, newEnd); err != nil {
			return time.Time{}, fmt.Errorf("upsert channel subscription: %w", err)
		}
		return newEnd, nil

	default:
		return time.Time{}, fmt.Errorf("unsupported product type %q", p.ProductType)
	}
}

func (r *SubscriptionRepo) currentEndTx(ctx context.Context, tx pgx.Tx, p ApplyPaymentParams) (time.Time, error) {
	var end *time.Time
	var err error
	switch p.ProductType {
	case enums.ProductTypeTerm:
		err = tx.QueryRow(ctx, `
SELECT end_date FROM term_subscriptions WHERE user_id = $1
`, p.UserID).Scan(&end)
	case enums.ProductTypeChannel:
		err = tx.QueryRow(ctx, `
SELECT end_date FROM channel_subscriptions WHERE user_id = $1 AND channel_id = $2
`, p.UserID, p.ProductID).Scan(&end)
	default:
		return time.Time{}, fmt.Errorf("unsupported product type %q", p.ProductType)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("read current end date: %w", err)
	}
	if end == nil {
		return time.Time{}, nil
	}
	return *end, nil
}

func (r *SubscriptionRepo) TermByUser(ctx context.Context, userID int64) (model.TermSubscription, error) {
	if r.pool == nil {
		return model.TermSubscription{UserID: userID}, nil
	}

	var sub model.TermSubscription
	var tier, method string
	err := r.pool.QueryRow(ctx, `
SELECT user_id, active, tier, start_date, end_date, payment_method
FROM term_subscriptions
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&sub.UserID, &sub.Active, &tier, &sub.StartDate, &sub.EndDate, &method)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TermSubscription{UserID: userID, Tier: enums.TierNone, PaymentMethod: enums.PaymentMethodNone}, nil
		}
		return model.TermSubscription{}, fmt.Errorf("get term subscription: %w", err)
	}

	sub.Tier = enums.Tier(tier)
	sub.PaymentMethod = enums.PaymentMethod(method)
	return sub, nil
}

func (r *SubscriptionRepo) ChannelsByUser(ctx context.Context, userID int64) ([]model.ChannelSubscription, error) {
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, channel_id, active, start_date, end_date
FROM channel_subscriptions
WHERE user_id = $1
ORDER BY channel_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list channel subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.ChannelSubscription
	for rows.Next() {
		var sub model.ChannelSubscription
		if err := rows.Scan(&sub.UserID, &sub.ChannelID, &sub.Active, &sub.StartDate, &sub.EndDate); err != nil {
			return nil, fmt.Errorf("scan channel subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel subscriptions: %w", err)
	}

	return subs, nil
}

func (r *SubscriptionRepo) ListTermExpiringBetween(ctx context.Context, from, to time.Time) ([]model.TermSubscription, error) {
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, active, tier, start_date, end_date, payment_method
FROM term_subscriptions
WHERE active = TRUE AND end_date >= $1 AND end_date <= $2
ORDER BY user_id
`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expiring term subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.TermSubscription
	for rows.Next() {
		var sub model.TermSubscription
		var tier, method string
		if err := rows.Scan(&sub.UserID, &sub.Active, &tier, &sub.StartDate, &sub.EndDate, &method); err != nil {
			return nil, fmt.Errorf("scan expiring term subscription: %w", err)
		}
		sub.Tier = enums.Tier(tier)
		sub.PaymentMethod = enums.PaymentMethod(method)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring term subscriptions: %w", err)
	}

	return subs, nil
}

func (r *SubscriptionRepo) ListChannelExpiringBetween(ctx context.Context, from, to time.Time) ([]model.ChannelSubscription, error) {
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, channel_id, active, start_date, end_date
FROM channel_subscriptions
WHERE active = TRUE AND end_date >= $1 AND end_date <= $2
ORDER BY user_id, channel_id
`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expiring channel subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.ChannelSubscription
	for rows.Next() {
		var sub model.ChannelSubscription
		if err := rows.Scan(&sub.UserID, &sub.ChannelID, &sub.Active, &sub.StartDate, &sub.EndDate); err != nil {
			return nil, fmt.Errorf("scan expiring channel subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring channel subscriptions: %w", err)
	}

	return subs, nil
}

func (r *SubscriptionRepo) PaymentHistory(ctx context.Context, userID int64) ([]model.PaymentEntry, error) {
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, product_type, product_id, amount, currency, method, transaction_id, created_at
FROM payment_history
WHERE user_id = $1
ORDER BY created_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment history: %w", err)
	}
	defer rows.Close()

	var entries []model.PaymentEntry
	for rows.Next() {
		var entry model.PaymentEntry
		var productType, method string
		if err := rows.Scan(&entry.UserID, &productType, &entry.ProductID, &entry.Amount, &entry.Currency, &method, &entry.TransactionID, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan payment history entry: %w", err)
		}
		entry.ProductType = enums.ProductType(productType)
		entry.Method = enums.PaymentMethod(method)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment history: %w", err)
	}

	return entries, nil
}
