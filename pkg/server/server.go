// Package server exposes the estimator over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/tiltcast/tiltcast/pkg/estimator"
	"github.com/tiltcast/tiltcast/pkg/log"
)

const authTokenCookie = "auth_token"

type contextKey string

const userContextKey contextKey = "user"

// tokenVerifier is a function that validates an OIDC ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API for the estimator.
type Server struct {
	estimator *estimator.Service

	listenAddr string
	httpServer *http.Server

	adminEmails  []string
	oidcVerifier tokenVerifier
	bypassAuth   bool
	serverName   string

	rateLimit rateLimitConfig
	limiters  *ipLimiters
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(est *estimator.Service) *Server {
	srv := &Server{
		estimator:  est,
		serverName: "tiltcast",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to manage the cache")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "OIDC issuer to validate tokens against")
	oidcAudience := lflag.String("oidc-audience", "", "audience/client ID to validate for id tokens")
	rateLimit := defaultRateLimit()
	lflag.JSON(&rateLimit, "rate-limit", rateLimit, "JSON rate limit config: {\"rps\": n, \"burst\": n}")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
		} else {
			srv.bypassAuth = true
		}
		srv.rateLimit = rateLimit
		srv.limiters = newIPLimiters(rateLimit)
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/estimate", s.handleEstimate)
	apiMux.HandleFunc("GET /api/cache/keys", s.handleListCacheKeys)
	apiMux.HandleFunc("DELETE /api/cache", s.handleInvalidateCache)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(s.rateLimitMiddleware(apiMux)))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.requestIDMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

func (s *Server) getUser(r *http.Request) user {
	if u, ok := r.Context().Value(userContextKey).(user); ok {
		return u
	}
	return user{}
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// requestIDMiddleware tags every request with an ID for log correlation and
// sets the Server header.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		if s.serverName != "" {
			w.Header().Set("Server", s.serverName)
		}

		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqID", reqID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isAdmin returns true if the user's email is in the adminEmails list.
func (s *Server) isAdmin(u user) bool {
	if u.Admin {
		return true
	}
	for _, adminEmail := range s.adminEmails {
		if u.Email == adminEmail {
			return true
		}
	}
	return false
}
