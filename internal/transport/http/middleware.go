package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey int

const userIDKey ctxKey = 0

// requireUser extracts the x-user-id header forwarded by the gateway and
// rejects requests without one.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("x-user-id")
		if userID == "" {
			writeErrMsg(w, http.StatusUnauthorized, "missing x-user-id header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// ensureIdentity upserts the caller's profile from the identity headers
// forwarded by the gateway. Best-effort: a failed upsert never blocks the
// request.
func (h *Handler) ensureIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := userID(r); id != "" {
			first := r.Header.Get("x-user-first-name")
			last := r.Header.Get("x-user-last-name")
			if err := h.db.EnsureUser(r.Context(), id, first, last); err != nil {
				h.log.Warn("ensure user failed", "user_id", id, "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}
