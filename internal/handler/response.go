package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps an AppError code to its HTTP status and writes the
// standard error body.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrNotFound:
			status = http.StatusNotFound
		case apperrors.ErrBadRequest, apperrors.ErrValidation, apperrors.ErrPhotoRequired:
			status = http.StatusBadRequest
		case apperrors.ErrPermissionDenied:
			status = http.StatusForbidden
		case apperrors.ErrStorageUnavailable:
			status = http.StatusServiceUnavailable
		case apperrors.ErrDuplicateSession:
			status = http.StatusConflict
		}
	}

	c.JSON(status, NewErrorResponse(err.Error()))
}
