package response

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/user-directory/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error sends a JSON error response.
// An AppError decides the status code and message; anything else is a 500
// and its text is not exposed.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperror.StatusOf(err), ErrorResponse{Error: apperror.MessageOf(err)})
}
