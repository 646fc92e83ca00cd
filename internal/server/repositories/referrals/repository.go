// Package referrals stores referrer to referred edges.
package referrals

import (
	"context"

	"github.com/shreels/tgauth/internal/server/models"
)

type Repository interface {
	// Create records the edge. A profile that was already referred yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, r *models.Referral) (*models.Referral, error)
	CountByReferrer(ctx context.Context, referrerID string) (int64, error)
}
