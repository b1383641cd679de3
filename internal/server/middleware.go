package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"volunteerhub/internal/gate"
	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"
)

type contextKey string

const contextKeyAccess contextKey = "user_access"

// gateRetryAfter is sent with 503 while signing keys are unavailable.
const gateRetryAfter = "2"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// SessionMiddleware resolves the session once and attaches it to the request context.
func (s *Service) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Load(r)
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// GateMiddleware runs the access gate for protected pages. It issues at most
// one redirect and attaches the fetched access record for the handlers.
func (s *Service) GateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())

		decision, access := s.gate.Evaluate(r.Context(), r.URL.Path, sess)
		switch {
		case decision == gate.Wait:
			w.Header().Set("Retry-After", gateRetryAfter)
			http.Error(w, "authentication is still loading, please retry", http.StatusServiceUnavailable)
			return
		case decision.Redirects():
			if decision == gate.RedirectNotAllowed && !sess.Authenticated() && r.Method == http.MethodGet {
				s.sessions.SetRedirect(w, r.URL.Path, 5*time.Minute)
			}
			http.Redirect(w, r, decision.Target(), http.StatusSeeOther)
			return
		}

		ctx := r.Context()
		if access != nil {
			ctx = context.WithValue(ctx, contextKeyAccess, access)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessFromContext(ctx context.Context) *types.UserAccess {
	access, _ := ctx.Value(contextKeyAccess).(*types.UserAccess)
	return access
}

// CSRF protects every state changing request. Plain HTTP is allowed outside production.
func (s *Service) CSRF() (func(http.Handler) http.Handler, error) {
	key, err := base64.StdEncoding.DecodeString(s.config.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode csrf key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(key))
	}

	protect := csrf.Protect(key,
		csrf.Secure(s.config.IsProduction()),
		csrf.Path("/"),
		csrf.TrustedOrigins(trustedOrigins(s.config.PublicBaseURL)),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailure)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.config.IsProduction() {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}, nil
}

func (s *Service) csrfFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.WithError(csrf.FailureReason(r)).WithField("path", r.URL.Path).Warn("csrf check failed")
	http.Error(w, "forbidden", http.StatusForbidden)
}

func trustedOrigins(baseURL string) []string {
	host := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return nil
	}
	return []string{host}
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
