package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"gitea.com/go-chi/session"

	"github.com/blogem/promptforge/userctx"
)

// RequireAuth ensures the user is authenticated and puts the user into the request context.
// API requests without a session get a 401; page requests are redirected to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.GetSession(r)
		userID, _ := sess.Get(userctx.SessionUserID).(string)

		if userID == "" {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{"code": "unauthorized", "message": "Authentication required"},
				})
				return
			}

			// Store the intended destination for redirect after login
			_ = sess.Set(userctx.SessionRedirect, r.URL.Path)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		email, _ := sess.Get(userctx.SessionUserEmail).(string)

		ctx := userctx.SetUser(r.Context(), userctx.User{ID: userID, Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
