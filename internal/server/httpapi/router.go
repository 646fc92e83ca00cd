// Package httpapi exposes the auth service over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shreels/tgauth/internal/logging"
	"github.com/shreels/tgauth/internal/server/auth"
	"github.com/shreels/tgauth/internal/server/media"
	"github.com/shreels/tgauth/internal/server/models"
	"github.com/shreels/tgauth/internal/server/services"
)

const serviceName = "tgauth"

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*services.AuthResult, error)
}

type ProfileReader interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	ReferralCount(ctx context.Context, id string) (int64, error)
}

type SessionParser interface {
	Parse(token string) (*auth.SessionClaims, error)
}

type MediaPresigner interface {
	PresignGet(ctx context.Context, key string) (*media.PresignedURL, error)
}

// API holds the handler dependencies.
type API struct {
	auth       Authenticator
	profiles   ProfileReader
	sessions   SessionParser
	media      MediaPresigner
	logger     logging.Logger
	production bool
	now        func() time.Time
}

func NewAPI(a Authenticator, p ProfileReader, s SessionParser, m MediaPresigner, logger logging.Logger, production bool) *API {
	return &API{
		auth:       a,
		profiles:   p,
		sessions:   s,
		media:      m,
		logger:     logger,
		production: production,
		now:        time.Now,
	}
}

// Handler returns the routed API. Every route answers CORS preflights and
// advertises only its own method.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()

	handle(r, "/api/auth/telegram", http.MethodPost, a.handleAuth)
	handle(r, "/api/auth", http.MethodPost, a.handleAuth)
	handle(r, "/api/me", http.MethodGet, a.requireSession(a.handleMe))
	handle(r, "/api/media/presign", http.MethodPost, a.requireSession(a.handlePresign))
	handle(r, "/healthz", http.MethodGet, a.handleHealth)

	r.NotFoundHandler = corsMiddleware(
		http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		}),
	)

	return r
}

func handle(r *mux.Router, path, method string, h http.HandlerFunc) {
	r.Handle(path, corsMiddleware(method+", "+http.MethodOptions, allowOnly(method, h)))
}

func corsMiddleware(methods string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowOnly answers 405 for every method but method.
func allowOnly(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method+", "+http.MethodOptions)
			writeJSON(w, http.StatusMethodNotAllowed, methodNotAllowedResponse{
				Error:   "Method Not Allowed",
				Message: fmt.Sprintf("Method %s is not allowed. Use %s instead.", r.Method, method),
			})
			return
		}
		h(w, r)
	})
}
