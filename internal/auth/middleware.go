package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// UnauthorizedMessage is the only body a rejected request ever sees.
const UnauthorizedMessage = "You are not authorized"

type contextKey string

// emailKey is the context key for the verified email.
const emailKey = contextKey("authEmail")

// Middleware creates a middleware for protecting routes. Requests without a
// valid bearer token are rejected with 401; the reason is only logged.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Warn().Str("path", r.URL.Path).Msg("Rejected request without bearer token")
				unauthorized(w)
				return
			}

			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected request with invalid token")
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), emailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext returns the email attached by Middleware.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": UnauthorizedMessage})
}
