package userctx

import (
	"context"

	"github.com/blogem/promptforge/models"
)

// Context key type
type contextKey string

const userKey contextKey = "user"

// User is the authenticated principal of a request. WorkspaceID scopes tenant data
// and defaults to the user's own ID.
type User struct {
	ID          string
	Email       string
	WorkspaceID string
}

// SetUser adds the request principal to the context
func SetUser(ctx context.Context, user User) context.Context {
	if user.WorkspaceID == "" {
		user.WorkspaceID = user.ID
	}
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the request principal
func GetUser(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey).(User)
	return user, ok
}

// GetUserEmail retrieves user email from request context
func GetUserEmail(ctx context.Context) string {
	user, ok := GetUser(ctx)
	if !ok || user.Email == "" {
		return "anonymous"
	}
	return user.Email
}

// GetUserID retrieves user ID from request context
func GetUserID(ctx context.Context) string {
	user, _ := GetUser(ctx)
	return user.ID
}

// RequireUserID returns the owner that tenant data is scoped to, or ErrUnauthorized
func RequireUserID(ctx context.Context) (string, error) {
	user, ok := GetUser(ctx)
	if !ok || user.WorkspaceID == "" {
		return "", models.ErrUnauthorized
	}
	return user.WorkspaceID, nil
}
