package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

const maxCapturedBody = 64 << 10

// redactedFields never reach the activity log
var redactedFields = map[string]bool{
	"password": true,
	"code":     true,
	"secret":   true,
}

// ActivityLogger records every successful POST/PUT/DELETE of an authenticated user,
// unless the handler opted the request out with userctx.SkipActivity
func ActivityLogger(activityRepo repositories.ActivityRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only log mutation operations
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			details := captureBody(r)
			r = r.WithContext(userctx.TrackActivity(r.Context()))
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			ownerID, err := userctx.RequireUserID(r.Context())
			if err != nil || ww.Status() >= http.StatusBadRequest || userctx.ActivitySkipped(r.Context()) {
				return
			}

			entry := &models.ActivityEntry{
				OwnerID:   ownerID,
				Action:    actionName(r),
				Method:    r.Method,
				Path:      r.URL.Path,
				Details:   details,
				IPAddress: getIPAddress(r),
				UserAgent: r.UserAgent(),
			}

			// Log asynchronously to avoid blocking request
			ctx := context.WithoutCancel(r.Context())
			go func() {
				if err := activityRepo.Create(ctx, entry); err != nil {
					logger.Error("failed to record activity", zap.String("path", entry.Path), zap.Error(err))
				}
			}()
		})
	}
}

// actionName is the matched route, e.g. "POST /api/prompts/{id}"
func actionName(r *http.Request) string {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	return r.Method + " " + pattern
}

// getIPAddress extracts IP address from request, checking X-Forwarded-For first
func getIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// captureBody returns the JSON request body with sensitive fields removed and puts
// the body back for the handler
func captureBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCapturedBody))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for key := range fields {
		if redactedFields[strings.ToLower(key)] {
			fields[key] = "[redacted]"
		}
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(out)
}
