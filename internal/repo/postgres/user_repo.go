package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RetardedCafeLab/term-bot/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertFromTelegram registers the user on first contact and refreshes
// profile fields plus last activity on every later one. IsAdmin is
// re-derived from the allow-list at identification time, never by the
// caller after the fact.
func (r *UserRepo) UpsertFromTelegram(
	ctx context.Context,
	telegramID int64,
	username, firstName, lastName string,
	isAdmin bool,
	now time.Time,
) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return model.User{}, fmt.Errorf("invalid telegram id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))

	var user model.User
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, username, first_name, last_name, is_admin, registered_at, last_activity)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (telegram_id) DO UPDATE
SET username      = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
	first_name    = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
	last_name     = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
	is_admin      = EXCLUDED.is_admin,
	last_activity = EXCLUDED.last_activity
RETURNING telegram_id, username, first_name, last_name, is_admin, registered_at, last_activity
`, telegramID, username, firstName, lastName, isAdmin, now.UTC()).Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.IsAdmin,
		&user.RegisteredAt,
		&user.LastActivity,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user from telegram: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return model.User{}, fmt.Errorf("invalid telegram id")
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT telegram_id, username, first_name, last_name, is_admin, registered_at, last_activity
FROM users
WHERE telegram_id = $1
LIMIT 1
`, telegramID).Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.IsAdmin,
		&user.RegisteredAt,
		&user.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by telegram id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) TouchActivity(ctx context.Context, telegramID int64, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users SET last_activity = $2 WHERE telegram_id = $1
`, telegramID, now.UTC()); err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}

	return nil
}
