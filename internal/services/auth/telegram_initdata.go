package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// TelegramUser is the identity carried inside Mini App init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ValidateTelegramInitData checks the Mini App init-data signature per
// the WebAppData HMAC scheme and returns the embedded user. The bot
// token is the shared secret with Telegram.
func ValidateTelegramInitData(botToken, initData string) (TelegramUser, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" || strings.TrimSpace(botToken) == "" {
		return TelegramUser{}, ErrInvalidInput
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse init data: %w", ErrInvalidInput)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return TelegramUser{}, ErrUnauthorized
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return TelegramUser{}, ErrUnauthorized
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return TelegramUser{}, ErrUnauthorized
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.ID <= 0 {
		return TelegramUser{}, ErrUnauthorized
	}

	return user, nil
}
