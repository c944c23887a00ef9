package response

import (
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/Finger-Auth/internal/api/service"
	"ctchen222/Finger-Auth/internal/session"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoPendingAuth):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrChallengeNotPassed):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// MessageFor returns the client-facing message for err. Internal failures
// are not described to the client.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, session.ErrNoPendingAuth):
		return "No pending authentication found"
	case errors.Is(err, session.ErrChallengeNotPassed):
		return "Challenge not passed"
	case errors.Is(err, session.ErrConflict):
		return "Request conflicted with another one, please retry"
	case StatusFor(err) == http.StatusInternalServerError:
		return "Internal server error"
	}
	return err.Error()
}

// Error writes err as a failure response and logs internal errors.
func Error(c *gin.Context, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Request failed", "http.route", c.FullPath(), "error", err)
	}
	ErrorResponse(c, code, MessageFor(err))
}
