package dto

type TelegramAuthRequest struct {
	InitData string `json:"init_data"`
}

type AuthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
}
