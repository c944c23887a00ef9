package controller

import (
	"net/http"

	"ctchen222/Finger-Auth/internal/api/middleware"
	"ctchen222/Finger-Auth/internal/api/models"
	"ctchen222/Finger-Auth/internal/api/response"
	"ctchen222/Finger-Auth/internal/api/service"
	"ctchen222/Finger-Auth/internal/challenge"

	"github.com/gin-gonic/gin"
)

// ChallengeController serves the finger challenge endpoints.
type ChallengeController struct {
	challengeService service.ChallengeService
}

// NewChallengeController creates a new ChallengeController.
func NewChallengeController(challengeService service.ChallengeService) *ChallengeController {
	return &ChallengeController{challengeService: challengeService}
}

// Generate issues a new target for the session.
func (cc *ChallengeController) Generate(c *gin.Context) {
	st, err := cc.challengeService.Generate(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.GenerateChallengeResponse{TargetNumber: st.Target})
}

// Fingers evaluates one submitted frame. Detection problems come back as a
// 200 with success=false.
func (cc *ChallengeController) Fingers(c *gin.Context) {
	var req models.FingerChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, challenge.Result{Message: "No image data provided"})
		return
	}

	res, err := cc.challengeService.Evaluate(c.Request.Context(), middleware.SessionID(c), req.Image)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
