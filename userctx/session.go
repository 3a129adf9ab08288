package userctx

// Session keys written at login and read by the auth middleware
const (
	SessionUserID       = "user_id"
	SessionUserEmail    = "user_email"
	SessionUserNickname = "user_nickname"
	SessionRedirect     = "redirect_after_login"
)
