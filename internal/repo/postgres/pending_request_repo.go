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
)

type PendingRequestRepo struct {
	pool *pgxpool.Pool
}

func NewPendingRequestRepo(pool *pgxpool.Pool) *PendingRequestRepo {
	return &PendingRequestRepo{pool: pool}
}

// CreateTermRequest records a manual-rail term request. A user holds at
// most one; a second create while one is pending returns the existing
// entry with created=false.
func (r *PendingRequestRepo) CreateTermRequest(ctx context.Context, userID int64, tier enums.Tier, now time.Time) (model.PendingTermRequest, bool, error) {
	if r.pool == nil {
		return model.PendingTermRequest{}, false, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || tier == enums.TierNone {
		return model.PendingTermRequest{}, false, fmt.Errorf("invalid pending term request payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO pending_term_requests (user_id, tier, request_date, status)
VALUES ($1, $2, $3, 'pending')
ON CONFLICT (user_id) DO NOTHING
`, userID, string(tier), now.UTC())
	if err != nil {
		return model.PendingTermRequest{}, false, fmt.Errorf("create pending term request: %w", err)
	}

	req, err := r.TermRequest(ctx, userID)
	if err != nil {
		return model.PendingTermRequest{}, false, err
	}

	return req, tag.RowsAffected() > 0, nil
}

func (r *PendingRequestRepo) CreateChannelRequest(ctx context.Context, userID int64, channelID string, now time.Time) (model.PendingChannelRequest, bool, error) {
	if r.pool == nil {
		return model.PendingChannelRequest{}, false, fmt.Errorf("postgres pool is nil")
	}
	channelID = strings.TrimSpace(channelID)
	if userID <= 0 || channelID == "" {
		return model.PendingChannelRequest{}, false, fmt.Errorf("invalid pending channel request payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO pending_channel_requests (user_id, channel_id, request_date, status)
VALUES ($1, $2, $3, 'pending')
ON CONFLICT (user_id, channel_id) DO NOTHING
`, userID, channelID, now.UTC())
	if err != nil {
		return model.PendingChannelRequest{}, false, fmt.Errorf("create pending channel request: %w", err)
	}

	req, err := r.ChannelRequest(ctx, userID, channelID)
	if err != nil {
		return model.PendingChannelRequest{}, false, err
	}

	return req, tag.RowsAffected() > 0, nil
}

func (r *PendingRequestRepo) TermRequest(ctx context.Context, userID int64) (model.PendingTermRequest, error) {
	if r.pool == nil {
		return model.PendingTermRequest{}, ErrNoPendingRequest
	}

	var req model.PendingTermRequest
	var tier, status string
	err := r.pool.QueryRow(ctx, `
SELECT user_id, tier, request_date, status
FROM pending_term_requests
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&req.UserID, &tier, &req.RequestDate, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PendingTermRequest{}, ErrNoPendingRequest
		}
		return model.PendingTermRequest{}, fmt.Errorf("get pending term request: %w", err)
	}

	req.Tier = enums.Tier(tier)
	req.Status = enums.RequestStatus(status)
	return req, nil
}

func (r *PendingRequestRepo) ChannelRequest(ctx context.Context, userID int64, channelID string) (model.PendingChannelRequest, error) {
	if r.pool == nil {
		return model.PendingChannelRequest{}, ErrNoPendingRequest
	}

	var req model.PendingChannelRequest
	var status string
	err := r.pool.QueryRow(ctx, `
SELECT user_id, channel_id, request_date, status
FROM pending_channel_requests
WHERE user_id = $1 AND channel_id = $2
LIMIT 1
`, userID, channelID).Scan(&req.UserID, &req.ChannelID, &req.RequestDate, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PendingChannelRequest{}, ErrNoPendingRequest
		}
		return model.PendingChannelRequest{}, fmt.Errorf("get pending channel request: %w", err)
	}

	req.Status = enums.RequestStatus(status)
	return req, nil
}

// ClearTermRequest removes the pending marker. Clearing when none exists
// is a no-op reported through the bool.
func (r *PendingRequestRepo) ClearTermRequest(ctx context.Context, userID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM pending_term_requests WHERE user_id = $1
`, userID)
	if err != nil {
		return false, fmt.Errorf("clear pending term request: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PendingRequestRepo) ClearChannelRequest(ctx context.Context, userID int64, channelID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM pending_channel_requests WHERE user_id = $1 AND channel_id = $2
`, userID, channelID)
	if err != nil {
		return false, fmt.Errorf("clear pending channel request: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
