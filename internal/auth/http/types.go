package http

import "github.com/GoSim-25-26J-441/playground-sync/internal/auth"

type Handler struct {
	session *auth.Session
}

func New(session *auth.Session) *Handler {
	return &Handler{
		session: session,
	}
}

type sessionResp struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	SignInEnabled bool   `json:"sign_in_enabled"`
}

type signInReq struct {
	Token string `json:"token"`
}
