package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope for simple acknowledgements.
type Response struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func NewResponse(success bool, code int, message string) Response {
	return Response{
		Success: success,
		Code:    code,
		Message: message,
	}
}

// SuccessMessage returns a 200 JSON response carrying only a message.
func SuccessMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, NewResponse(true, http.StatusOK, message))
}

// SuccessResponse returns a 200 JSON response with body as is. Bodies that
// need to be read as an outcome carry their own success field.
func SuccessResponse(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// ErrorResponse writes a failure envelope with the given status code.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, NewResponse(false, code, message))
}

// AbortWithError is ErrorResponse for middleware; it stops the handler chain.
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, NewResponse(false, code, message))
}
