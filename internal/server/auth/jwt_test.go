package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/telegram/initdata"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func testProfile() *models.Profile {
	return &models.Profile{ID: "7b0c5f0e-1a7e-4bd3-9a44-5d0f2b0c9a11", TelegramID: 123, FirstName: "Ann"}
}

func testUser() *initdata.User {
	return &initdata.User{ID: 123, FirstName: "Ann", Username: strPtr("ann")}
}

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	iss := NewIssuer("super-secret", "telegram-auth", fixedClock(now))

	s, err := iss.Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !s.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("ExpiresAt = %v, want %v", s.ExpiresAt, now.Add(24*time.Hour))
	}

	claims, err := iss.Parse(s.Token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != testProfile().ID {
		t.Fatalf("subject mismatch: got %q", claims.Subject)
	}
	if claims.Role != "authenticated" {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "authenticated" {
		t.Fatalf("audience mismatch: got %v", claims.Audience)
	}
	if claims.Issuer != "telegram-auth" {
		t.Fatalf("issuer mismatch: got %q", claims.Issuer)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != 86400*time.Second {
		t.Fatalf("exp - iat = %v, want 24h", d)
	}
	if claims.UserMetadata.TelegramID != 123 || claims.UserMetadata.FirstName != "Ann" {
		t.Fatalf("unexpected user metadata: %+v", claims.UserMetadata)
	}
	if claims.UserMetadata.Username == nil || *claims.UserMetadata.Username != "ann" {
		t.Fatalf("username not embedded: %+v", claims.UserMetadata)
	}
	if claims.AppMetadata.Provider != "telegram" {
		t.Fatalf("provider mismatch: %+v", claims.AppMetadata)
	}
	if claims.Email != "123@telegram.user" {
		t.Fatalf("email mismatch: %q", claims.Email)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestIssue_TokenIDsDiffer(t *testing.T) {
	t.Parallel()

	iss := NewIssuer("k", "i", nil)
	a, err := iss.Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	b, err := iss.Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if a.Token == b.Token {
		t.Fatal("two sessions issued in the same second must still differ")
	}
}

func TestIssue_MissingSecret(t *testing.T) {
	t.Parallel()

	iss := NewIssuer("", "telegram-auth", nil)
	if iss.Configured() {
		t.Fatal("issuer without secret reports configured")
	}
	_, err := iss.Issue(testProfile(), testUser())
	if !errors.Is(err, ErrSigningSecretMissing) || !errors.Is(err, common.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := iss.Parse("x.y.z"); !errors.Is(err, common.ErrorConfiguration) {
		t.Fatalf("Parse without secret: expected configuration error, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	iss := NewIssuer("secret", "telegram-auth", fixedClock(issuedAt))
	s, err := iss.Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	later := NewIssuer("secret", "telegram-auth", fixedClock(issuedAt.Add(SessionTTL + time.Minute)))
	_, err = later.Parse(s.Token)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	s, err := NewIssuer("right-secret", "i", nil).Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewIssuer("wrong-secret", "i", nil).Parse(s.Token)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	t.Parallel()

	s, err := NewIssuer("secret", "someone-else", nil).Issue(testProfile(), testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewIssuer("secret", "telegram-auth", nil).Parse(s.Token)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "p",
			Audience:  jwt.ClaimStrings{RoleAuthenticated},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAuthenticated,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = NewIssuer("secret", "", nil).Parse(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for HS512, got %v", err)
	}
}

func TestParse_RejectsWrongAudienceOrRole(t *testing.T) {
	t.Parallel()

	sign := func(c SessionClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	wrongAud := sign(SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "p", Audience: jwt.ClaimStrings{"anon"}, ExpiresAt: exp},
		Role:             RoleAuthenticated,
	})
	wrongRole := sign(SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "p", Audience: jwt.ClaimStrings{RoleAuthenticated}, ExpiresAt: exp},
		Role:             "service_role",
	})

	iss := NewIssuer("secret", "", nil)
	for name, tok := range map[string]string{"audience": wrongAud, "role": wrongRole} {
		if _, err := iss.Parse(tok); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("k", "", nil).Parse("not.a.jwt")
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
