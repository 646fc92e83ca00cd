// Package profiles declares the profile store contract and its PostgreSQL
// implementation.
package profiles

import (
	"context"
	"fmt"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/models"
)

var (
	// ErrTelegramIDTaken means another profile already owns the Telegram id,
	// typically because a concurrent first login won the insert.
	ErrTelegramIDTaken = fmt.Errorf("%w: telegram id", common.ErrorAlreadyExists)

	// ErrReferralCodeTaken means the generated referral code collided.
	ErrReferralCodeTaken = fmt.Errorf("%w: referral code", common.ErrorAlreadyExists)
)

// Repository defines profile persistence. Lookups return common.ErrorNotFound
// when no row matches.
type Repository interface {
	// Create inserts p and fills its timestamps. Unique violations surface as
	// ErrTelegramIDTaken or ErrReferralCodeTaken.
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)

	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Profile, error)

	// UpdateDisplay rewrites only the display columns and returns the stored row.
	UpdateDisplay(ctx context.Context, id string, f models.DisplayFields) (*models.Profile, error)

	// SetReferredBy records the referrer once; an already referred profile is left unchanged.
	SetReferredBy(ctx context.Context, id, referrerID string) error
}
