// Package middleware authenticates requests and records access logs.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/metrics"
	"github.com/Doud-FR/Wiki/internal/models"
	"github.com/Doud-FR/Wiki/internal/security"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated caller.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the caller stored by RequireUser, or nil.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// UserLoader resolves a session's user id to an active user.
type UserLoader interface {
	Lookup(ctx context.Context, id int64) (*models.User, error)
}

type Auth struct {
	sessions *security.SessionStore
	users    UserLoader
	logger   *zap.Logger
}

func NewAuth(sessions *security.SessionStore, users UserLoader, logger *zap.Logger) *Auth {
	return &Auth{sessions: sessions, users: users, logger: logger}
}

// RequireUser rejects requests without a valid session for an active user.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.sessions.UserID(r)
		if err != nil {
			httputil.JSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		user, err := a.users.Lookup(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil || !user.IsAdmin {
			httputil.JSONError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs every request and feeds the latency histogram, labelled
// with the matched route template.
func AccessLog(logger *zap.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if m != nil {
				m.ObserveRequest(route, r.Method, rec.status, elapsed)
			}
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", elapsed),
				zap.String("remote", r.RemoteAddr))
		})
	}
}

// Recover turns a panic into a logged 500.
func Recover(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic serving request",
						zap.String("path", r.URL.Path),
						zap.Any("panic", v),
						zap.Stack("stack"))
					httputil.Errorf(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
