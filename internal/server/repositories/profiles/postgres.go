package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/dbx"
	"github.com/shreels/tgauth/internal/server/models"
)

const profileColumns = `id, telegram_id, first_name, last_name, username, photo_url,
		 points, is_vip, vip_expires_at, referral_code, referred_by, created_at, updated_at`

const (
	telegramIDConstraint   = "profiles_telegram_id_key"
	referralCodeConstraint = "profiles_referral_code_key"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {

	query :=
		`INSERT INTO profiles (id, telegram_id, first_name, last_name, username, photo_url,
		 points, is_vip, referral_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.TelegramID, p.FirstName, p.LastName, p.Username, p.PhotoURL,
		p.Points, p.IsVIP, p.ReferralCode).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			switch constraint {
			case referralCodeConstraint:
				return nil, ErrReferralCodeTaken
			default:
				return nil, ErrTelegramIDTaken
			}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query :=
		`SELECT ` + profileColumns + ` FROM profiles
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	query :=
		`SELECT ` + profileColumns + ` FROM profiles
		 WHERE telegram_id = $1
		 `
	return r.getOne(ctx, query, telegramID)
}

func (r *PostgresRepository) GetByReferralCode(ctx context.Context, code string) (*models.Profile, error) {
	query :=
		`SELECT ` + profileColumns + ` FROM profiles
		 WHERE referral_code = $1
		 `
	return r.getOne(ctx, query, code)
}

func (r *PostgresRepository) UpdateDisplay(ctx context.Context, id string, f models.DisplayFields) (*models.Profile, error) {
	query :=
		`UPDATE profiles
		 SET first_name = $2, last_name = $3, username = $4, photo_url = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + profileColumns + `
		 `
	return r.getOne(ctx, query, id, f.FirstName, f.LastName, f.Username, f.PhotoURL)
}

func (r *PostgresRepository) SetReferredBy(ctx context.Context, id, referrerID string) error {
	query :=
		`UPDATE profiles SET referred_by = $2, updated_at = now()
		 WHERE id = $1 AND referred_by IS NULL
		 `

	if _, err := r.db.ExecContext(ctx, query, id, referrerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		p          models.Profile
		lastName   sql.NullString
		username   sql.NullString
		photoURL   sql.NullString
		vipExpires sql.NullTime
		referredBy sql.NullString
	)

	err := row.Scan(&p.ID, &p.TelegramID, &p.FirstName, &lastName, &username, &photoURL,
		&p.Points, &p.IsVIP, &vipExpires, &p.ReferralCode, &referredBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.LastName = nullString(lastName)
	p.Username = nullString(username)
	p.PhotoURL = nullString(photoURL)
	p.ReferredBy = nullString(referredBy)
	if vipExpires.Valid {
		p.VIPExpiresAt = &vipExpires.Time
	}
	return &p, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
