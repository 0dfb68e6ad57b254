package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tiltcast/tiltcast/pkg/log"
)

type user struct {
	Email string
	Admin bool
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			// no audience configured, everyone is an admin
			ctx = context.WithValue(ctx, userContextKey, user{Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, err := extractToken(r)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header", slog.Any("error", err))
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}
		if token == "" {
			log.Ctx(ctx).WarnContext(ctx, "unauthenticated request")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		email, _, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authEmail", email)))
		log.Ctx(ctx).DebugContext(ctx, "authenticated request")

		ctx = context.WithValue(ctx, userContextKey, user{Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls a bearer token from the Authorization header or the
// auth cookie. An empty string with nil error means no credentials at all.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", fmt.Errorf("authorization header is not a bearer token")
		}
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}

	authCookie, err := r.Cookie(authTokenCookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", err
	}
	return authCookie.Value, nil
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, time.Time, error) {
	idToken, err := s.oidcVerifier(ctx, token)
	if err != nil {
		return "", time.Time{}, err
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Email == "" {
		return "", time.Time{}, errors.New("no email claim in token")
	}
	return claims.Email, idToken.Expiry, nil
}
