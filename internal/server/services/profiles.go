package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/dbx"
	"github.com/shreels/tgauth/internal/logging"
	"github.com/shreels/tgauth/internal/server/config"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/server/repositories/profiles"
	"github.com/shreels/tgauth/internal/server/repositories/repomanager"
	"github.com/shreels/tgauth/internal/telegram/initdata"
)

const (
	identityProvider = "telegram"
	identityDomain   = "@telegram.user"

	// maxReferralCodeAttempts bounds retries after a referral code collision.
	maxReferralCodeAttempts = 3
)

// referralStartParam accepts "ABCD1234", "ref_ABCD1234" and "r_ABCD1234".
var referralStartParam = regexp.MustCompile(`^(?:ref_|r_)?([A-Z0-9]{8})$`)

// ProfileService maps Telegram users to stored profiles, creating them on
// first login and refreshing their display fields on later ones.
type ProfileService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	logger         logging.Logger
	storageTimeout time.Duration

	newID           func() string
	newReferralCode func() string
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *ProfileService {
	return &ProfileService{
		db:              db,
		repomanager:     m,
		logger:          logger.With("module", "profiles"),
		storageTimeout:  cfg.StorageTimeout,
		newID:           uuid.NewString,
		newReferralCode: common.MakeReferralCode,
	}
}

// Resolve returns the profile of u, creating it when u logs in for the first
// time. created reports whether this call inserted the profile. Storage
// failures are wrapped with common.ErrorStorage.
//
// Two concurrent first logins race on the unique telegram id; the loser
// re-reads the winner's row and reports created=false.
func (s *ProfileService) Resolve(ctx context.Context, u *initdata.User, startParam *string) (*models.Profile, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Profiles(s.db)

	p, err := repo.GetByTelegramID(ctx, u.ID)
	if err == nil {
		return s.refresh(ctx, p, u), false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, storageError("lookup profile", err)
	}

	p, err = s.create(ctx, u)
	if err != nil {
		if !isCreationRace(err) {
			return nil, false, storageError("create profile", err)
		}

		s.logger.Info(ctx, "concurrent profile creation, re-fetching", "telegram_id", u.ID)
		existing, ferr := repo.GetByTelegramID(ctx, u.ID)
		if ferr != nil {
			return nil, false, storageError("re-fetch profile", ferr)
		}
		return s.refresh(ctx, existing, u), false, nil
	}

	s.logger.Info(ctx, "profile created", "profile_id", p.ID, "telegram_id", u.ID)
	s.attributeReferral(ctx, p, startParam)
	return p, true, nil
}

// Get returns the profile with the given id.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.repomanager.Profiles(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, storageError("get profile", err)
	}
	return p, nil
}

// ReferralCount returns how many profiles were referred by id.
func (s *ProfileService) ReferralCount(ctx context.Context, id string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.repomanager.Referrals(s.db).CountByReferrer(ctx, id)
	if err != nil {
		return 0, storageError("count referrals", err)
	}
	return n, nil
}

// create inserts the identity and the profile in one transaction, retrying
// with a fresh referral code when the generated one is taken.
func (s *ProfileService) create(ctx context.Context, u *initdata.User) (*models.Profile, error) {
	var lastErr error

	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		id := s.newID()
		p := &models.Profile{
			ID:           id,
			TelegramID:   u.ID,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Username:     u.Username,
			PhotoURL:     u.PhotoURL,
			ReferralCode: s.newReferralCode(),
		}

		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			identity := &models.Identity{
				ID:       id,
				Email:    fmt.Sprintf("%d%s", u.ID, identityDomain),
				Provider: identityProvider,
			}
			if _, err := s.repomanager.Identities(tx).Create(ctx, identity); err != nil {
				return fmt.Errorf("create identity: %w", err)
			}
			created, err := s.repomanager.Profiles(tx).Create(ctx, p)
			if err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			p = created
			return nil
		})
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, profiles.ErrReferralCodeTaken) {
			return nil, err
		}

		s.logger.Debug(ctx, "referral code collision, retrying", "attempt", attempt+1)
		lastErr = err
	}

	return nil, lastErr
}

// refresh rewrites the display fields of p from u. A failed update is logged
// and the stored profile is returned unchanged.
func (s *ProfileService) refresh(ctx context.Context, p *models.Profile, u *initdata.User) *models.Profile {
	fields := models.DisplayFields{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		PhotoURL:  u.PhotoURL,
	}

	updated, err := s.repomanager.Profiles(s.db).UpdateDisplay(ctx, p.ID, fields)
	if err != nil {
		s.logger.Warn(ctx, "profile display update failed", "profile_id", p.ID, "error", err)
		return p
	}
	return updated
}

// attributeReferral links a new profile to the owner of the referral code in
// startParam. Failures never reach the caller.
func (s *ProfileService) attributeReferral(ctx context.Context, p *models.Profile, startParam *string) {
	code, ok := ParseReferralCode(startParam)
	if !ok {
		return
	}

	referrer, err := s.repomanager.Profiles(s.db).GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "unknown referral code", "code", code)
			return
		}
		s.logger.Warn(ctx, "referral lookup failed", "code", code, "error", err)
		return
	}
	if referrer.ID == p.ID {
		return
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ref := &models.Referral{
			ID:         s.newID(),
			ReferrerID: referrer.ID,
			ReferredID: p.ID,
			Code:       code,
		}
		if _, err := s.repomanager.Referrals(tx).Create(ctx, ref); err != nil {
			return err
		}
		return s.repomanager.Profiles(tx).SetReferredBy(ctx, p.ID, referrer.ID)
	})
	if err != nil {
		s.logger.Warn(ctx, "referral attribution failed", "profile_id", p.ID, "referrer_id", referrer.ID, "error", err)
		return
	}

	p.ReferredBy = &referrer.ID
	s.logger.Info(ctx, "referral recorded", "profile_id", p.ID, "referrer_id", referrer.ID)
}

func (s *ProfileService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}

// ParseReferralCode extracts the referral code carried by a start param.
func ParseReferralCode(startParam *string) (string, bool) {
	if startParam == nil {
		return "", false
	}
	m := referralStartParam.FindStringSubmatch(*startParam)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// isCreationRace reports whether err means another request inserted the same
// Telegram user first.
func isCreationRace(err error) bool {
	return errors.Is(err, common.ErrorAlreadyExists) && !errors.Is(err, profiles.ErrReferralCodeTaken)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrorStorage, op, err)
}
