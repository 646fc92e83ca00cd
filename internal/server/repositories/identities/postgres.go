package identities

import (
	"context"
	"fmt"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/dbx"
	"github.com/shreels/tgauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, i *models.Identity) (*models.Identity, error) {
	query :=
		`INSERT INTO identities (id, email, provider)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, i.ID, i.Email, i.Provider).Scan(&i.CreatedAt)
	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return i, nil
}
