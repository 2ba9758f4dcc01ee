package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spigell/question-analyzer/internal/ai"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeTimeout        = "TIMEOUT"
	codeInternalError  = "INTERNAL_ERROR"
)

// Response represents the standard API response structure.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta"`
}

// ErrorInfo represents error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents response metadata.
type MetaInfo struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func newMeta(c *gin.Context) *MetaInfo {
	return &MetaInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: c.GetString(requestIDKey),
	}
}

func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Meta:    newMeta(c),
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Meta: newMeta(c),
	})
}

type errorResponse struct {
	status  int
	code    string
	message string
}

// mapAnalysisError maps analysis errors to HTTP error responses.
func mapAnalysisError(err error) errorResponse {
	switch {
	case errors.Is(err, ai.ErrEmptyText):
		return errorResponse{status: http.StatusBadRequest, code: codeInvalidRequest, message: "transcript must not be empty"}
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse{status: http.StatusGatewayTimeout, code: codeTimeout, message: "analysis timed out"}
	default:
		return errorResponse{status: http.StatusInternalServerError, code: codeInternalError, message: "internal server error"}
	}
}
