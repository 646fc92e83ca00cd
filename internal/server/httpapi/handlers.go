package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/server/services"
	"github.com/shreels/tgauth/internal/telegram/initdata"
)

// maxBodyBytes caps request bodies; initData is a few kilobytes at most.
const maxBodyBytes = 64 << 10

type authRequest struct {
	InitData string `json:"initData"`
}

type authResponse struct {
	Success   bool            `json:"success"`
	JWT       string          `json:"jwt"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *initdata.User  `json:"user"`
	Profile   *models.Profile `json:"profile"`
	IsNew     bool            `json:"is_new"`
}

type meResponse struct {
	Profile   *models.Profile `json:"profile"`
	Referrals int64           `json:"referrals"`
}

type presignRequest struct {
	Key string `json:"key"`
}

type healthResponse struct {
	OK        bool      `json:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		a.writeError(w, r, services.ErrInitDataRequired)
		return
	}

	res, err := a.auth.Authenticate(r.Context(), req.InitData)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success:   true,
		JWT:       res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt.UTC(),
		User:      res.User,
		Profile:   res.Profile,
		IsNew:     res.IsNew,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	p, err := a.profiles.Get(r.Context(), claims.Subject)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	n, err := a.profiles.ReferralCount(r.Context(), p.ID)
	if err != nil {
		a.logger.Warn(r.Context(), "referral count failed", "profile_id", p.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, meResponse{Profile: p, Referrals: n})
}

func (a *API) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	url, err := a.media.PresignGet(r.Context(), req.Key)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.logger.Debug(r.Context(), "media presigned", "profile_id", claimsFrom(r.Context()).Subject, "key", req.Key)
	writeJSON(w, http.StatusOK, url)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Timestamp: a.now().UTC(), Service: serviceName})
}
