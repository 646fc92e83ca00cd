// Package services contains server-side business logic. This file implements
// AuthService, which turns a Telegram initData string into a session.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/logging"
	"github.com/shreels/tgauth/internal/server/auth"
	"github.com/shreels/tgauth/internal/server/config"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/telegram/initdata"
)

const tracerName = "github.com/shreels/tgauth/internal/server/services"

var (
	ErrInitDataRequired = fmt.Errorf("%w: initData is required", common.ErrorValidation)
	ErrUserMissing      = fmt.Errorf("%w: User data not found in initData", common.ErrorValidation)
)

// ProfileResolver finds or creates the profile of a Telegram user.
type ProfileResolver interface {
	Resolve(ctx context.Context, u *initdata.User, startParam *string) (*models.Profile, bool, error)
}

// AuthResult is what a successful login hands back to the client.
type AuthResult struct {
	Session *auth.Session
	User    *initdata.User
	Profile *models.Profile
	IsNew   bool
}

// AuthService exchanges a Telegram initData string for a session.
type AuthService struct {
	botToken string
	maxAge   time.Duration
	issuer   *auth.Issuer
	profiles ProfileResolver
	logger   logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewAuthService(cfg *config.Config, issuer *auth.Issuer, profiles ProfileResolver, logger logging.Logger) *AuthService {
	return &AuthService{
		botToken: cfg.BotToken,
		maxAge:   cfg.InitDataMaxAge,
		issuer:   issuer,
		profiles: profiles,
		logger:   logger.With("module", "auth"),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// Authenticate verifies raw, resolves the profile it names and issues a
// session. Errors carry one of the common taxonomy sentinels:
// ErrorValidation, ErrorUnauthorized, ErrorConfiguration or ErrorStorage.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (res *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Authenticate")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(raw) == "" {
		return nil, ErrInitDataRequired
	}

	// No profile is created for a login that could never get a session.
	if !s.issuer.Configured() {
		s.logger.Error(ctx, "configuration error", "kind", "configuration", "missing", "SUPABASE_JWT_SECRET")
		return nil, auth.ErrSigningSecretMissing
	}

	if err := s.verify(ctx, raw); err != nil {
		return nil, err
	}

	data, err := s.parse(ctx, raw)
	if err != nil {
		return nil, err
	}

	profile, created, err := s.resolve(ctx, data)
	if err != nil {
		return nil, err
	}

	session, err := s.issue(ctx, profile, data.User)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "session issued", "profile_id", profile.ID, "is_new", created)
	return &AuthResult{Session: session, User: data.User, Profile: profile, IsNew: created}, nil
}

func (s *AuthService) verify(ctx context.Context, raw string) (err error) {
	_, span := s.tracer.Start(ctx, "initdata.Verify")
	defer func() { endSpan(span, err) }()

	if s.maxAge > 0 {
		err = initdata.VerifyFresh(raw, s.botToken, s.maxAge, s.now())
	} else {
		err = initdata.Verify(raw, s.botToken)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorConfiguration):
		s.logger.Error(ctx, "configuration error", "kind", "configuration", "missing", "BOT_TOKEN")
	default:
		s.logger.Warn(ctx, "init data rejected", "reason", err)
	}
	return err
}

func (s *AuthService) parse(ctx context.Context, raw string) (_ *initdata.Data, err error) {
	_, span := s.tracer.Start(ctx, "initdata.Parse")
	defer func() { endSpan(span, err) }()

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, ErrUserMissing
	}
	span.SetAttributes(attribute.Int64("telegram.user_id", data.User.ID))
	return data, nil
}

func (s *AuthService) resolve(ctx context.Context, data *initdata.Data) (_ *models.Profile, _ bool, err error) {
	ctx, span := s.tracer.Start(ctx, "profiles.Resolve")
	defer func() { endSpan(span, err) }()

	profile, created, err := s.profiles.Resolve(ctx, data.User, data.StartParam)
	if err != nil {
		s.logger.Error(ctx, "profile resolution failed", "telegram_id", data.User.ID, "error", err)
		if !errors.Is(err, common.ErrorStorage) {
			err = fmt.Errorf("%w: %w", common.ErrorStorage, err)
		}
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("profile.created", created))
	return profile, created, nil
}

func (s *AuthService) issue(ctx context.Context, p *models.Profile, u *initdata.User) (_ *auth.Session, err error) {
	_, span := s.tracer.Start(ctx, "auth.Issue")
	defer func() { endSpan(span, err) }()

	session, err := s.issuer.Issue(p, u)
	if err != nil {
		if errors.Is(err, common.ErrorConfiguration) {
			s.logger.Error(ctx, "configuration error", "kind", "configuration", "missing", "SUPABASE_JWT_SECRET")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return session, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
