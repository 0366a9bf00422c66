package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "mailgate/pkg/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

const internalServerError = "Internal server error"

// writeError converts usecase errors to HTTP responses.
// Internal errors never expose their cause unless withDetail is set.
func writeError(c *gin.Context, err error, withDetail bool) {
	_ = c.Error(err)

	status := apperrors.StatusOf(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ErrorResponse{Error: internalServerError}
	if withDetail {
		var internal *apperrors.InternalError
		if errors.As(err, &internal) {
			resp.Code = internal.Code
			if internal.Err != nil {
				resp.Message = internal.Err.Error()
			} else {
				resp.Message = internal.Message
			}
		}
	}
	c.JSON(http.StatusInternalServerError, resp)
}
