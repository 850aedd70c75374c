package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nooperation/slutils/internal/auth"
	"github.com/nooperation/slutils/pkg/logger"
)

// RequestIDKey is the context key for request ID
type RequestIDKey struct{}

// SessionKey is the context key for the resolved login session
type SessionKey struct{}

// SessionCookie is the cookie carrying the login session token.
const SessionCookie = "sessionid"

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			requestID := GetRequestID(r.Context())

			log.Info("HTTP request",
				logger.F("method", r.Method),
				logger.F("path", r.URL.Path),
				logger.F("status", fmt.Sprintf("%d", ww.Status())),
				logger.F("duration_ms", fmt.Sprintf("%d", duration.Milliseconds())),
				logger.F("request_id", requestID),
			)
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequireUser resolves the login session from the request and blocks
// unauthenticated calls before they reach ownership-gated operations. The
// token comes from the session cookie or a bearer Authorization header.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.auth.Resolve(r.Context(), sessionToken(r))
		if err != nil {
			h.respondError(w, http.StatusUnauthorized, "login required")
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession retrieves the resolved login session from context
func GetSession(ctx context.Context) *auth.Session {
	if session, ok := ctx.Value(SessionKey{}).(*auth.Session); ok {
		return session
	}
	return nil
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
