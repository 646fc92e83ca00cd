package initdata

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

const (
	userKey       = "user"
	startParamKey = "start_param"
	queryIDKey    = "query_id"
)

// User is the Telegram account embedded in initData. ID is required; the
// other fields are whatever the client chose to share.
type User struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name,omitempty"`
	Username     *string `json:"username,omitempty"`
	PhotoURL     *string `json:"photo_url,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
	IsPremium    bool    `json:"is_premium,omitempty"`
}

// Data holds the typed fields of a verified initData string.
type Data struct {
	User       *User
	StartParam *string
	AuthDate   *time.Time
	QueryID    string
}

// Parse extracts typed fields from raw. A user field that is absent, not
// valid JSON, or lacks an id leaves Data.User nil; callers treat that as a
// missing required field rather than a signature failure.
func Parse(raw string) (*Data, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	d := &Data{QueryID: last(values[queryIDKey])}

	if v := last(values[userKey]); v != "" {
		d.User = parseUser(v)
	}

	if v, ok := values[startParamKey]; ok {
		sp := last(v)
		d.StartParam = &sp
	}

	if v := last(values[authDateKey]); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(sec, 0)
			d.AuthDate = &t
		}
	}

	return d, nil
}

// parseUser decodes the user field. Some clients percent-encode the JSON a
// second time, so one more unescape is attempted before decoding.
func parseUser(v string) *User {
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}

	var u User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil
	}
	if u.ID == 0 {
		return nil
	}
	return &u
}
