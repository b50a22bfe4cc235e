package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/ratelimit"
	"textbook-chatbot/internal/storage"
)

const sessionCookieName = "session_id"

// LoggerMiddleware adds a structured request logger to the context.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default().With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		ctx := contextutil.WithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORS adds CORS headers to allow cross-origin requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware assigns a session ID cookie on first contact and
// threads the ID through the request context. Known sessions get their
// length refreshed. Storage failures downgrade to logging; a broken
// session table must not take chat down.
func SessionMiddleware(sessions storage.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := contextutil.LoggerFromContext(ctx)

			var sessionID string
			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				sessionID = cookie.Value
				if err := sessions.Touch(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
					logger.WarnContext(ctx, "failed to touch session", "session_id", sessionID, "error", err)
				} else if errors.Is(err, storage.ErrNotFound) {
					// Stale cookie from a wiped database.
					if err := sessions.Create(ctx, sessionID); err != nil {
						logger.WarnContext(ctx, "failed to recreate session", "session_id", sessionID, "error", err)
					}
				}
			} else {
				sessionID = uuid.NewString()
				if err := sessions.Create(ctx, sessionID); err != nil {
					logger.WarnContext(ctx, "failed to create session", "session_id", sessionID, "error", err)
				}
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = contextutil.WithSessionID(ctx, sessionID)
			ctx = contextutil.WithLogger(ctx, logger.With("session_id", sessionID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware enforces the per-session question quota. Denied
// requests get 429 with a Retry-After header.
func RateLimitMiddleware(limiter *ratelimit.SessionLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := contextutil.LoggerFromContext(ctx)

			sessionID := contextutil.SessionIDFromContext(ctx)
			allowed, retryAfter := limiter.Allow(sessionID)
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				logger.InfoContext(ctx, "rate limit exceeded", "retry_after_sec", seconds)
				w.Header().Set("Retry-After", time.Now().Add(retryAfter).UTC().Format(http.TimeFormat))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":           "Too many questions. Please wait before asking again.",
					"retry_after_sec": seconds,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
