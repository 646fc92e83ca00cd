// Package models holds the persisted records of the auth server.
package models

import "time"

// Profile is this service's user record, one per Telegram account.
// TelegramID is unique. Points, IsVIP and ReferralCode are owned by other
// flows; a login only ever rewrites the display fields.
type Profile struct {
	ID           string     `json:"id"`
	TelegramID   int64      `json:"telegram_id"`
	FirstName    string     `json:"first_name"`
	LastName     *string    `json:"last_name"`
	Username     *string    `json:"username"`
	PhotoURL     *string    `json:"photo_url"`
	Points       int64      `json:"points"`
	IsVIP        bool       `json:"is_vip"`
	VIPExpiresAt *time.Time `json:"vip_expires_at"`
	ReferralCode string     `json:"referral_code"`
	ReferredBy   *string    `json:"referred_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayFields are the profile columns refreshed from Telegram on every login.
type DisplayFields struct {
	FirstName string
	LastName  *string
	Username  *string
	PhotoURL  *string
}
