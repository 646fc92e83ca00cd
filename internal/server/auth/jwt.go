// Package auth issues and parses the HS256 session tokens handed to Mini-App
// clients after a successful Telegram login. The claim layout matches what a
// Supabase-compatible PostgREST expects from an "authenticated" user.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/telegram/initdata"
)

const (
	// RoleAuthenticated is both the role and the audience of every session.
	RoleAuthenticated = "authenticated"

	providerTelegram = "telegram"
)

var ErrSigningSecretMissing = fmt.Errorf("%w: session signing secret is not set", common.ErrorConfiguration)

// AppMetadata mirrors the provider block written by the identity service.
type AppMetadata struct {
	Provider  string   `json:"provider"`
	Providers []string `json:"providers"`
}

// UserMetadata is a copy of the Telegram user fields at login time.
type UserMetadata struct {
	TelegramID int64   `json:"telegram_id"`
	FirstName  string  `json:"first_name"`
	LastName   *string `json:"last_name"`
	Username   *string `json:"username"`
	PhotoURL   *string `json:"photo_url"`
}

// SessionClaims are the claims carried by a session token. Subject is the
// profile id.
type SessionClaims struct {
	jwt.RegisteredClaims
	Role         string       `json:"role"`
	Email        string       `json:"email,omitempty"`
	AppMetadata  AppMetadata  `json:"app_metadata"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Session is an issued token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionTTL is the fixed lifetime of every issued session.
const SessionTTL = 24 * time.Hour

// Issuer signs and verifies session tokens with a single shared secret.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIssuer returns an Issuer. A nil now defaults to time.Now. An empty secret
// is accepted here so the process can start; Issue and Parse then fail closed.
func NewIssuer(secret, issuer string, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, now: now}
}

// Configured reports whether a signing secret is present.
func (i *Issuer) Configured() bool {
	return len(i.secret) > 0
}

// Issue signs a session for profile p on behalf of Telegram user u.
func (i *Issuer) Issue(p *models.Profile, u *initdata.User) (*Session, error) {
	if !i.Configured() {
		return nil, ErrSigningSecretMissing
	}

	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}

	now := i.now().Truncate(time.Second)
	exp := now.Add(SessionTTL)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    i.issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{RoleAuthenticated},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:  RoleAuthenticated,
		Email: strconv.FormatInt(u.ID, 10) + "@telegram.user",
		AppMetadata: AppMetadata{
			Provider:  providerTelegram,
			Providers: []string{providerTelegram},
		},
		UserMetadata: UserMetadata{
			TelegramID: u.ID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Username:   u.Username,
			PhotoURL:   u.PhotoURL,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &Session{Token: token, ExpiresAt: exp}, nil
}

// Parse validates a session token and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (i *Issuer) Parse(token string) (*SessionClaims, error) {
	if !i.Configured() {
		return nil, ErrSigningSecretMissing
	}

	claims := &SessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(RoleAuthenticated),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.Role != RoleAuthenticated {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
