package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetSession reports who, if anyone, the device is signed in as.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "session": h.state()})
}

// SignIn verifies an ID token and makes its subject the current user. The
// token comes from the Authorization header or a JSON body.
func (h *Handler) SignIn(c *gin.Context) {
	token := extractToken(c)
	if token == "" && c.Request.ContentLength > 0 {
		var body signInReq
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
			return
		}
		token = strings.TrimSpace(body.Token)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
		return
	}

	if _, err := h.session.SignIn(c.Request.Context(), token); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "session": h.state()})
}

// SignOut returns the device to anonymous, local-only mode.
func (h *Handler) SignOut(c *gin.Context) {
	h.session.SignOut()
	c.JSON(http.StatusOK, gin.H{"ok": true, "session": h.state()})
}

func (h *Handler) state() sessionResp {
	st := h.session.State()
	return sessionResp{
		Authenticated: st.Authenticated,
		UserID:        st.UserID,
		SignInEnabled: h.session.SignInEnabled(),
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
