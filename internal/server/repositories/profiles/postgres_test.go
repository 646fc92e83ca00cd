package profiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/models"
)

var columns = []string{
	"id", "telegram_id", "first_name", "last_name", "username", "photo_url",
	"points", "is_vip", "vip_expires_at", "referral_code", "referred_by", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func annRow(ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow("p-1", int64(123), "Ann", nil, "ann", nil, int64(10), false, nil, "ABCD1234", nil, ts, ts)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := `(?s)^INSERT\s+INTO\s+profiles\s*\(id,\s*telegram_id,.*referral_code\)\s*VALUES\s*\(\$1,.*\$9\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

	mock.ExpectQuery(q).
		WithArgs("p-1", int64(123), "Ann", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0), false, "ABCD1234").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	p := &models.Profile{ID: "p-1", TelegramID: 123, FirstName: "Ann", ReferralCode: "ABCD1234"}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.CreatedAt.Equal(ts) || !got.UpdatedAt.Equal(ts) {
		t.Fatalf("timestamps not filled: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"telegram id", telegramIDConstraint, ErrTelegramIDTaken},
		{"referral code", referralCodeConstraint, ErrReferralCodeTaken},
		{"unnamed constraint", "", ErrTelegramIDTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+profiles`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", TelegramID: 1, FirstName: "A"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if !errors.Is(err, common.ErrorAlreadyExists) {
				t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
			}
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+profiles`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", TelegramID: 1, FirstName: "A"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByTelegramID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := `(?s)^SELECT\s+id,\s*telegram_id,.*updated_at\s+FROM\s+profiles\s+WHERE\s+telegram_id\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs(int64(123)).WillReturnRows(annRow(ts))

	got, err := repo.GetByTelegramID(context.Background(), 123)
	if err != nil {
		t.Fatalf("GetByTelegramID error: %v", err)
	}
	if got.ID != "p-1" || got.TelegramID != 123 || got.FirstName != "Ann" || got.Points != 10 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if got.LastName != nil || got.PhotoURL != nil || got.ReferredBy != nil || got.VIPExpiresAt != nil {
		t.Fatalf("NULL columns must scan to nil: %+v", got)
	}
	if got.Username == nil || *got.Username != "ann" {
		t.Fatalf("username = %v, want ann", got.Username)
	}
}

func TestGetByTelegramID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.+FROM\s+profiles\s+WHERE\s+telegram_id`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByTelegramID(context.Background(), 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.+FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("p-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "p-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByReferralCode_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectQuery(`(?s)^SELECT.+FROM\s+profiles\s+WHERE\s+referral_code\s*=\s*\$1`).
		WithArgs("ABCD1234").
		WillReturnRows(annRow(ts))

	got, err := repo.GetByReferralCode(context.Background(), "ABCD1234")
	if err != nil {
		t.Fatalf("GetByReferralCode error: %v", err)
	}
	if got.ReferralCode != "ABCD1234" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestUpdateDisplay_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now().UTC()
	q := `(?s)^UPDATE\s+profiles\s+SET\s+first_name\s*=\s*\$2,\s*last_name\s*=\s*\$3,\s*username\s*=\s*\$4,\s*photo_url\s*=\s*\$5,.*WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`
	mock.ExpectQuery(q).
		WithArgs("p-1", "Ann", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(annRow(ts))

	username := "ann"
	got, err := repo.UpdateDisplay(context.Background(), "p-1", models.DisplayFields{FirstName: "Ann", Username: &username})
	if err != nil {
		t.Fatalf("UpdateDisplay error: %v", err)
	}
	if got.Points != 10 || got.ReferralCode != "ABCD1234" {
		t.Fatalf("non-display fields must come from the stored row: %+v", got)
	}
}

func TestUpdateDisplay_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+profiles`).WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateDisplay(context.Background(), "ghost", models.DisplayFields{FirstName: "X"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSetReferredBy(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+profiles\s+SET\s+referred_by\s*=\s*\$2,.*WHERE\s+id\s*=\s*\$1\s+AND\s+referred_by\s+IS\s+NULL\s*$`
	mock.ExpectExec(q).WithArgs("p-2", "p-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p-3", "p-1").WillReturnError(errors.New("boom"))

	if err := repo.SetReferredBy(context.Background(), "p-2", "p-1"); err != nil {
		t.Fatalf("SetReferredBy error: %v", err)
	}
	err := repo.SetReferredBy(context.Background(), "p-3", "p-1")
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
