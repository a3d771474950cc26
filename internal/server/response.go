package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/logger"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func fail(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message, nil)
}

// failWith maps err's kind to a status code. data, when set, carries the
// state the client should adopt, e.g. after a conflict.
func failWith(c *gin.Context, err error, data interface{}) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	fail(c, code, err.Error(), data)
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
