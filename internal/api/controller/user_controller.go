package controller

import (
	"errors"
	"net/http"

	"ctchen222/Finger-Auth/internal/api/middleware"
	"ctchen222/Finger-Auth/internal/api/models"
	"ctchen222/Finger-Auth/internal/api/response"
	"ctchen222/Finger-Auth/internal/api/service"
	"ctchen222/Finger-Auth/internal/session"

	"github.com/gin-gonic/gin"
)

// UserController handles credential, challenge completion and session
// lifecycle requests.
type UserController struct {
	userService service.UserService
	codec       *session.Codec
}

// NewUserController creates a new UserController.
func NewUserController(userService service.UserService, codec *session.Codec) *UserController {
	return &UserController{
		userService: userService,
		codec:       codec,
	}
}

// Index reports where the session stands in the authentication flow.
func (uc *UserController) Index(c *gin.Context) {
	st, err := uc.userService.Session(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{
		"success":       true,
		"authenticated": st.IsAuthenticated(),
		"pending":       st.IsPending(),
	}
	switch {
	case st.IsAuthenticated():
		body["username"] = st.Auth.Username
	case st.IsPending():
		body["username"] = st.Pending.Username
		body["action"] = st.Pending.Action
	}
	response.SuccessResponse(c, body)
}

// Register handles the user registration endpoint.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "All fields are required")
		return
	}

	if _, err := uc.userService.Register(c.Request.Context(), middleware.SessionID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Registration successful! Complete finger challenge to continue.")
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "Username and password required")
		return
	}

	if _, err := uc.userService.Login(c.Request.Context(), middleware.SessionID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Credentials verified! Complete finger challenge to continue.")
}

// CompleteChallenge promotes a pending authentication. Flow failures are
// reported with success=false and a 200 status so the client can retry.
func (uc *UserController) CompleteChallenge(c *gin.Context) {
	var req models.CompleteChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	auth, err := uc.userService.CompleteChallenge(c.Request.Context(), middleware.SessionID(c), req.ChallengePassed)
	if err != nil {
		if isFlowFailure(err) {
			c.JSON(http.StatusOK, response.NewResponse(false, http.StatusOK, response.MessageFor(err)))
			return
		}
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, models.CompleteChallengeResponse{Success: true, Username: auth.Username})
}

func isFlowFailure(err error) bool {
	return errors.Is(err, session.ErrChallengeNotPassed) ||
		errors.Is(err, session.ErrNoPendingAuth) ||
		errors.Is(err, service.ErrUserNotFound)
}

// Dashboard returns the authenticated user. Sessions that lost their user
// are sent back to the landing page.
func (uc *UserController) Dashboard(c *gin.Context) {
	user, err := uc.userService.CurrentUser(c.Request.Context(), middleware.SessionID(c))
	if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrNotAuthenticated) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, models.DashboardResponse{Success: true, User: user})
}

// Logout clears the session and its cookie.
func (uc *UserController) Logout(c *gin.Context) {
	if err := uc.userService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		response.Error(c, err)
		return
	}
	uc.codec.ClearCookie(c.Writer)
	c.Redirect(http.StatusFound, "/")
}

// CancelAuth abandons a pending authentication.
func (uc *UserController) CancelAuth(c *gin.Context) {
	if err := uc.userService.Cancel(c.Request.Context(), middleware.SessionID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
