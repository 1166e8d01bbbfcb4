// internal/pkg/response/response.go
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error aborts the chain and sends a standardized error response. Data, when
// given, carries the view the client should fall back to.
func Error(c *gin.Context, status int, message string, err error, data ...interface{}) {
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(status, resp)
}

// Fail is Error with a machine readable code and no internal detail.
func Fail(c *gin.Context, status int, code, message string, data ...interface{}) {
	c.Abort()

	resp := Response{
		Success: false,
		Code:    code,
		Message: message,
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(status, resp)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
