package middleware

import (
	"log/slog"
	"net/http"

	"ctchen222/Finger-Auth/internal/api/response"
	"ctchen222/Finger-Auth/internal/session"

	"github.com/gin-gonic/gin"
)

const sessionIDKey = "session.id"

// Session makes sure every request carries a session id. A missing or
// invalid cookie is replaced by a freshly signed one.
func Session(codec *session.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := codec.FromRequest(c.Request)
		if !ok {
			var err error
			sid, err = session.GenerateID()
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "Failed to create session id", "error", err)
				response.AbortWithError(c, http.StatusInternalServerError, "Internal server error")
				return
			}
			if err := codec.SetCookie(c.Writer, sid); err != nil {
				slog.ErrorContext(c.Request.Context(), "Failed to issue session cookie", "error", err)
				response.AbortWithError(c, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		c.Set(sessionIDKey, sid)
		c.Next()
	}
}

// SessionID returns the id attached by Session.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// RequireAuthenticated redirects to redirectTo unless the request's session
// has completed both authentication steps.
func RequireAuthenticated(store session.Store, redirectTo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Get(c.Request.Context(), SessionID(c))
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "Failed to load session", "error", err)
		}
		if err != nil || !st.IsAuthenticated() {
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}
