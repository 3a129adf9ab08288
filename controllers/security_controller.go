package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/promptforge/encryption"
)

// SecurityController exposes password checks for encrypted exports
type SecurityController struct {
	logger *zap.Logger
}

// NewSecurityController creates a new security controller
func NewSecurityController(logger *zap.Logger) *SecurityController {
	return &SecurityController{logger: logger}
}

type passwordStrengthForm struct {
	Password string `json:"password"`
}

// PasswordStrength handles POST /api/security/password-strength
func (c *SecurityController) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var form passwordStrengthForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, encryption.PasswordStrength(form.Password))
}
