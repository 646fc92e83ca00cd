// Package identities stores the login records profiles are keyed by.
package identities

import (
	"context"

	"github.com/shreels/tgauth/internal/server/models"
)

type Repository interface {
	// Create inserts the identity and fills CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, i *models.Identity) (*models.Identity, error)
}
