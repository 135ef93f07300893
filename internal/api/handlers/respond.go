package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/apperrors"
)

// ErrorResponse is the body of every failed REST call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps domain errors to their HTTP status. Anything else is
// logged and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code == apperrors.CodeInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: domainErr.Code})
		return
	}
	c.JSON(domainErr.HTTPStatus, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: apperrors.CodeValidationFailed})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: apperrors.CodeNotFound})
}
