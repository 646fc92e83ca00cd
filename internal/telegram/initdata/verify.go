package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shreels/tgauth/internal/common"
)

const (
	hashKey     = "hash"
	authDateKey = "auth_date"

	// webAppDataKey is the HMAC key Telegram uses to derive the per-bot secret.
	webAppDataKey = "WebAppData"

	// maxClockSkew bounds how far in the future auth_date may be.
	maxClockSkew = time.Minute
)

var (
	ErrMalformed         = fmt.Errorf("%w: malformed init data", common.ErrorUnauthorized)
	ErrHashMissing       = fmt.Errorf("%w: hash is missing", common.ErrorUnauthorized)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", common.ErrorUnauthorized)
	ErrAuthDateMissing   = fmt.Errorf("%w: auth_date is missing or invalid", common.ErrorUnauthorized)
	ErrExpired           = fmt.Errorf("%w: init data expired", common.ErrorUnauthorized)

	ErrBotTokenMissing = fmt.Errorf("%w: bot token is not set", common.ErrorConfiguration)
)

// Verify checks that raw was signed by Telegram for the bot owning botToken.
// It never panics; every failure is returned as one of the package errors.
func Verify(raw, botToken string) error {
	_, err := verify(raw, botToken)
	return err
}

// VerifyFresh runs Verify and additionally requires auth_date to be present
// and no older than maxAge relative to now.
func VerifyFresh(raw, botToken string, maxAge time.Duration, now time.Time) error {
	values, err := verify(raw, botToken)
	if err != nil {
		return err
	}

	authDate, err := parseAuthDate(last(values[authDateKey]))
	if err != nil {
		return ErrAuthDateMissing
	}

	if now.Sub(authDate) > maxAge || authDate.Sub(now) > maxClockSkew {
		return ErrExpired
	}
	return nil
}

func verify(raw, botToken string) (url.Values, error) {
	if botToken == "" {
		return nil, ErrBotTokenMissing
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	hash := last(values[hashKey])
	if hash == "" {
		return nil, ErrHashMissing
	}

	if !hmac.Equal([]byte(hash), []byte(Sign(values, botToken))) {
		return nil, ErrSignatureMismatch
	}
	return values, nil
}

// Sign returns the lowercase hex hash Telegram would attach to values for
// botToken. Any hash already present in values is ignored.
func Sign(values url.Values, botToken string) string {
	return hex.EncodeToString(signature(values, botToken))
}

func signature(values url.Values, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(DataCheckString(values)))
	return mac.Sum(nil)
}

// DataCheckString builds the canonical string covered by the signature: one
// key=value line per key except hash, sorted byte-wise by key, joined by '\n'.
// For repeated keys the last value wins.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == hashKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+last(values[k]))
	}
	return strings.Join(lines, "\n")
}

func last(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

func parseAuthDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty auth_date")
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, errors.New("invalid auth_date")
	}
	return time.Unix(sec, 0), nil
}
