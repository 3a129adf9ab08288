package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"gitea.com/go-chi/session"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/authenticator"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

const sessionState = "state"

type AuthController struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

func NewAuthController(users repositories.UserRepository, logger *zap.Logger) *AuthController {
	return &AuthController{users: users, logger: logger}
}

// Login initiates the authentication process
func (ac *AuthController) Login(auth authenticator.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Generate random state
		state, err := generateRandomState()
		if err != nil {
			handleError(w, r, ac.logger, err)
			return
		}

		// Save the state in the session to validate in callback
		sess := session.GetSession(r)
		if err := sess.Set(sessionState, state); err != nil {
			handleError(w, r, ac.logger, err)
			return
		}

		http.Redirect(w, r, auth.GetAuthURL(state), http.StatusTemporaryRedirect)
	}
}

// Callback handles the callback from the identity provider
func (ac *AuthController) Callback(auth authenticator.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.GetSession(r)

		// Verify state
		storedState, _ := sess.Get(sessionState).(string)
		if storedState == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_state", "State not found in session")
			return
		}
		if r.URL.Query().Get("state") != storedState {
			writeError(w, r, http.StatusBadRequest, "invalid_state", "Invalid state parameter")
			return
		}

		// Exchange the code for a token
		token, err := auth.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			ac.logger.Warn("code exchange failed", zap.Error(err))
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "Failed to exchange authorization code for a token")
			return
		}

		claims, err := auth.GetClaims(r.Context(), token)
		if err != nil {
			ac.logger.Warn("id token verification failed", zap.Error(err))
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "Failed to verify ID token")
			return
		}

		subject := claims.Subject()
		if subject == "" {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "ID token has no subject")
			return
		}

		user := &models.User{
			ID:    subject,
			Email: claims.String("email"),
			Name:  claims.DisplayName(),
		}
		if err := ac.users.Upsert(r.Context(), user); err != nil {
			handleError(w, r, ac.logger, err)
			return
		}

		_ = sess.Set(userctx.SessionUserID, user.ID)
		_ = sess.Set(userctx.SessionUserEmail, user.Email)
		_ = sess.Set(userctx.SessionUserNickname, user.Name)
		_ = sess.Delete(sessionState)

		redirect := "/api/dashboard"
		if target, ok := sess.Get(userctx.SessionRedirect).(string); ok && target != "" {
			redirect = target
			_ = sess.Delete(userctx.SessionRedirect)
		}

		ac.logger.Info("user signed in", zap.String("user_id", user.ID))
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	}
}

// Logout clears the session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := session.GetSession(r).Flush(); err != nil {
		ac.logger.Warn("failed to clear session", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
