package referrals

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

func (r *PostgresRepository) Create(ctx context.Context, ref *models.Referral) (*models.Referral, error) {
	query :=
		`INSERT INTO referrals (id, referrer_id, referred_id, code)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, ref.ID, ref.ReferrerID, ref.ReferredID, ref.Code).Scan(&ref.CreatedAt)
	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ref, nil
}

func (r *PostgresRepository) CountByReferrer(ctx context.Context, referrerID string) (int64, error) {
	query := `SELECT count(*) FROM referrals WHERE referrer_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, referrerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
