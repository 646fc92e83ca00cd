package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

// requireSession rejects requests without a valid bearer session and stores
// the parsed claims in the request context.
func (a *API) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			a.writeError(w, r, common.ErrInvalidToken)
			return
		}

		claims, err := a.sessions.Parse(strings.TrimSpace(token))
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFrom(ctx context.Context) *auth.SessionClaims {
	c, _ := ctx.Value(claimsKey).(*auth.SessionClaims)
	return c
}
