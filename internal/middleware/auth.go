package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"railboard/pkg/errors"
	"railboard/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// AdminSubjectContextKey is the key for the authenticated admin subject
	AdminSubjectContextKey ContextKey = "admin_subject"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// AdminAuth guards the operational endpoints. It expects a Bearer token
// signed with the shared admin secret (HMAC) and carrying a subject claim.
func AdminAuth(secret string, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeAuthError(w, errors.NewAuthenticationError("admin endpoints are disabled", nil), logger)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, errors.NewAuthenticationError("authorization header is required", nil), logger)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, errors.NewAuthenticationError("invalid authorization header format", nil), logger)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				writeAuthError(w, errors.NewAuthenticationError("token is required", nil), logger)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.WithError(err).Warn("Admin token rejected")
				writeAuthError(w, errors.NewAuthenticationError("invalid or expired token", nil), logger)
				return
			}

			ctx := context.WithValue(r.Context(), AdminSubjectContextKey, claims.Subject)
			r = r.WithContext(ctx)

			logger.WithField("subject", claims.Subject).Debug("Admin authenticated")
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generateRequestID()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// generateRequestID generates a simple request ID
func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}

// writeAuthError writes an authentication error response to the client
func writeAuthError(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).Warn("Request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":{"type":%q,"message":%q,"timestamp":%q}}`,
		appErr.Type, appErr.Message, time.Now().UTC().Format(time.RFC3339))
}
