package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/dbx"
	"github.com/shreels/tgauth/internal/logging"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/server/repositories/identities"
	"github.com/shreels/tgauth/internal/server/repositories/profiles"
	"github.com/shreels/tgauth/internal/server/repositories/referrals"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// recordingLogger keeps the messages logged at each level.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Debug(context.Context, string, ...any) {}
func (l *recordingLogger) Info(context.Context, string, ...any)  {}

func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func (l *recordingLogger) With(...any) logging.Logger { return l }

// fakeProfilesRepo is an in-memory profiles store.
type fakeProfilesRepo struct {
	byTelegram map[int64]*models.Profile

	getErr        error
	createErrs    []error
	updateErr     error
	setReferrerTo map[string]string

	// raceWinner is stored and ErrTelegramIDTaken returned on the next Create,
	// as if a concurrent request had inserted it first.
	raceWinner *models.Profile

	createCalls int
	lastCtx     context.Context
}

func newFakeProfilesRepo(existing ...*models.Profile) *fakeProfilesRepo {
	f := &fakeProfilesRepo{byTelegram: map[int64]*models.Profile{}, setReferrerTo: map[string]string{}}
	for _, p := range existing {
		f.byTelegram[p.TelegramID] = p
	}
	return f
}

func (f *fakeProfilesRepo) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	f.createCalls++
	if f.raceWinner != nil {
		f.byTelegram[f.raceWinner.TelegramID] = f.raceWinner
		f.raceWinner = nil
		return nil, profiles.ErrTelegramIDTaken
	}
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return nil, err
	}
	if _, ok := f.byTelegram[p.TelegramID]; ok {
		return nil, profiles.ErrTelegramIDTaken
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	f.byTelegram[p.TelegramID] = &stored
	return p, nil
}

func (f *fakeProfilesRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	for _, p := range f.byTelegram {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfilesRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	f.lastCtx = ctx
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.byTelegram[telegramID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakeProfilesRepo) GetByReferralCode(ctx context.Context, code string) (*models.Profile, error) {
	for _, p := range f.byTelegram {
		if p.ReferralCode == code {
			return p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfilesRepo) UpdateDisplay(ctx context.Context, id string, d models.DisplayFields) (*models.Profile, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, p := range f.byTelegram {
		if p.ID == id {
			updated := *p
			updated.FirstName, updated.LastName = d.FirstName, d.LastName
			updated.Username, updated.PhotoURL = d.Username, d.PhotoURL
			f.byTelegram[p.TelegramID] = &updated
			return &updated, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfilesRepo) SetReferredBy(ctx context.Context, id, referrerID string) error {
	f.setReferrerTo[id] = referrerID
	return nil
}

type fakeIdentitiesRepo struct {
	created []*models.Identity
	err     error
}

func (f *fakeIdentitiesRepo) Create(ctx context.Context, i *models.Identity) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, i)
	return i, nil
}

type fakeReferralsRepo struct {
	created []*models.Referral
	err     error
	count   int64
}

func (f *fakeReferralsRepo) Create(ctx context.Context, r *models.Referral) (*models.Referral, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeReferralsRepo) CountByReferrer(ctx context.Context, referrerID string) (int64, error) {
	return f.count, f.err
}

type fakeRepoManager struct {
	i *fakeIdentitiesRepo
	p *fakeProfilesRepo
	r *fakeReferralsRepo
}

func newFakeRepoManager(existing ...*models.Profile) *fakeRepoManager {
	return &fakeRepoManager{
		i: &fakeIdentitiesRepo{},
		p: newFakeProfilesRepo(existing...),
		r: &fakeReferralsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Identities(dbx.DBTX) identities.Repository    { return m.i }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository        { return m.p }
func (m *fakeRepoManager) Referrals(dbx.DBTX) referrals.Repository      { return m.r }

// sequence returns a generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// referralCodes returns a generator yielding the given referral codes in order.
func referralCodes(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}
